package handler

import (
	"net/http"

	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	dealRoomService service.DealRoomService
	log             logger.Logger
}

func NewNoteHandler(dealRoomService service.DealRoomService, log logger.Logger) *NoteHandler {
	return &NoteHandler{
		dealRoomService: dealRoomService,
		log:             log,
	}
}

type AddNoteRequest struct {
	Type       string   `json:"type" binding:"required"`
	Content    string   `json:"content" binding:"required"`
	AssignedTo string   `json:"assigned_to"`
	Tags       []string `json:"tags"`
}

func (h *NoteHandler) Add(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUser(c).ID
	note, err := h.dealRoomService.AddNotePoint(c.Request.Context(), roomID, service.NewNotePoint{
		Type:       req.Type,
		Content:    req.Content,
		CreatedBy:  userID,
		AssignedTo: req.AssignedTo,
		Tags:       req.Tags,
		Followers:  []string{userID},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

type UpdateNoteRequest struct {
	Status     *string `json:"status,omitempty"`
	Content    *string `json:"content,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

func (h *NoteHandler) Update(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}
	noteID, ok := parseID(c, "noteId", "note")
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.dealRoomService.UpdateNotePoint(c.Request.Context(), roomID, noteID, currentUser(c).ID, service.NotePointUpdate{
		Status:     req.Status,
		Content:    req.Content,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, note)
}
