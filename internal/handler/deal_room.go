package handler

import (
	"net/http"

	"deal_room/internal/service"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

type DealRoomHandler struct {
	dealRoomService service.DealRoomService
	log             logger.Logger
}

func NewDealRoomHandler(dealRoomService service.DealRoomService, log logger.Logger) *DealRoomHandler {
	return &DealRoomHandler{
		dealRoomService: dealRoomService,
		log:             log,
	}
}

// Create создает комнату для пары стартап/инвестор или возвращает уже активную
func (h *DealRoomHandler) Create(c *gin.Context) {
	user := currentUser(c)
	var req service.CreateDealRoomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Создать комнату может только одна из сторон сделки
	if user.ID != req.FounderID && user.ID != req.VCID {
		respondError(c, apperrors.ErrForbidden)
		return
	}

	room, created, err := h.dealRoomService.CreateDealRoom(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.log.Info("Deal room created via API", "room_id", room.ID, "user_id", user.ID)
	}
	c.JSON(status, gin.H{"deal_room": room, "created": created})
}

func (h *DealRoomHandler) List(c *gin.Context) {
	rooms, err := h.dealRoomService.GetUserDealRooms(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deal_rooms": rooms})
}

func (h *DealRoomHandler) Get(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	room, err := h.dealRoomService.GetDealRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

type RenameRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *DealRoomHandler) Rename(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	var req RenameRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.dealRoomService.RenameRoom(c.Request.Context(), roomID, currentUser(c).ID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *DealRoomHandler) Archive(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	if err := h.dealRoomService.ArchiveRoom(c.Request.Context(), roomID, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

type AddMemberRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TeamType string `json:"team_type"`
}

func (h *DealRoomHandler) AddMember(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.dealRoomService.AddMember(c.Request.Context(), roomID, currentUser(c).ID, service.NewMember{
		UserID:   req.UserID,
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		TeamType: req.TeamType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}
