package handler

import (
	"net/http"
	"strings"

	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	dealRoomService service.DealRoomService
	log             logger.Logger
}

func NewInvitationHandler(dealRoomService service.DealRoomService, log logger.Logger) *InvitationHandler {
	return &InvitationHandler{
		dealRoomService: dealRoomService,
		log:             log,
	}
}

type InviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

func (h *InvitationHandler) Invite(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invitation, err := h.dealRoomService.AddTeamMember(c.Request.Context(), roomID, currentUser(c).ID, req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invitation)
}

type AcceptInvitationRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name"`
}

// Accept - email берется из токена, приглашение привязано к адресу
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = user.Name
	}

	roomID, err := h.dealRoomService.AcceptTeamInvitation(c.Request.Context(), req.Code, user.ID, user.Email, name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deal_room_id": roomID})
}
