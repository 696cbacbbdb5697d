package handler

import (
	"net/http"

	"deal_room/internal/config"
	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handlers struct {
	Health     *HealthHandler
	DealRoom   *DealRoomHandler
	Message    *MessageHandler
	Invitation *InvitationHandler
	Note       *NoteHandler
	Call       *CallHandler
	Summary    *SummaryHandler
	WebSocket  *WebSocketHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(cfg),
		DealRoom:   NewDealRoomHandler(services.DealRoom, log),
		Message:    NewMessageHandler(services.DealRoom, services.Assistant, log),
		Invitation: NewInvitationHandler(services.DealRoom, log),
		Note:       NewNoteHandler(services.DealRoom, log),
		Call:       NewCallHandler(services.DealRoom, services.Call, services.Media, log),
		Summary:    NewSummaryHandler(services.DealRoom, services.Assistant, log),
		WebSocket:  NewWebSocketHandler(services.DealRoom, cfg.Server.AllowedOrigins, log),
	}
}

// caller - пользователь из JWT, положенный AuthMiddleware в контекст
type caller struct {
	ID    string
	Email string
	Name  string
}

func currentUser(c *gin.Context) caller {
	return caller{
		ID:    c.GetString("user_id"),
		Email: c.GetString("user_email"),
		Name:  c.GetString("user_name"),
	}
}

// respondError передает ошибку в middleware.ErrorHandler, он выберет HTTP статус
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func parseID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// authorizeRoom разбирает :id и проверяет, что пользователь имеет доступ к комнате
func authorizeRoom(c *gin.Context, rooms service.DealRoomService) (uuid.UUID, bool) {
	roomID, ok := parseID(c, "id", "room")
	if !ok {
		return uuid.Nil, false
	}
	if err := rooms.CanUserAccessDealRoom(c.Request.Context(), roomID, currentUser(c).ID); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return roomID, true
}
