package handler

import (
	"net/http"
	"strings"

	"deal_room/internal/analysis"
	"deal_room/internal/domain"
	"deal_room/internal/service"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	dealRoomService service.DealRoomService
	callService     service.CallService
	mediaService    service.MediaService
	log             logger.Logger
}

func NewCallHandler(dealRoomService service.DealRoomService, callService service.CallService, mediaService service.MediaService, log logger.Logger) *CallHandler {
	return &CallHandler{
		dealRoomService: dealRoomService,
		callService:     callService,
		mediaService:    mediaService,
		log:             log,
	}
}

type StartCallRequest struct {
	Type         string   `json:"type" binding:"required"`
	Participants []string `json:"participants"`
}

// Start - инициатор всегда первый участник звонка
func (h *CallHandler) Start(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participants := append([]string{currentUser(c).ID}, req.Participants...)
	session, err := h.callService.StartCall(c.Request.Context(), roomID, req.Type, participants)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *CallHandler) End(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	session, err := h.callService.EndCall(c.Request.Context(), roomID, domain.CallEndReasonManual)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("Call ended via API", "room_id", roomID, "call_id", session.ID, "user_id", currentUser(c).ID)
	c.JSON(http.StatusOK, session)
}

func (h *CallHandler) Get(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	session, active := h.callService.GetActiveCall(roomID)
	if !active {
		respondError(c, apperrors.ErrNoActiveCall)
		return
	}

	remaining := h.callService.GetRemainingCallTime(roomID)
	c.JSON(http.StatusOK, gin.H{
		"call":              session,
		"remaining_seconds": remaining,
		"remaining":         analysis.FormatCallTime(remaining),
	})
}

type CallTokenRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *CallHandler) Token(c *gin.Context) {
	roomID, ok := parseID(c, "id", "room")
	if !ok {
		return
	}

	var req CallTokenRequest
	// Тело необязательно, имя по умолчанию берется из токена
	_ = c.ShouldBindJSON(&req)

	user := currentUser(c)
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = user.Name
	}

	token, err := h.mediaService.GetCallToken(c.Request.Context(), roomID, user.ID, displayName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}
