package handler

import (
	"context"
	"net/http"

	"deal_room/internal/domain"
	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SummaryHandler struct {
	dealRoomService  service.DealRoomService
	assistantService service.AssistantService
	log              logger.Logger
}

func NewSummaryHandler(dealRoomService service.DealRoomService, assistantService service.AssistantService, log logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		dealRoomService:  dealRoomService,
		assistantService: assistantService,
		log:              log,
	}
}

func (h *SummaryHandler) Daily(c *gin.Context) {
	h.generate(c, h.assistantService.GenerateDailySummary)
}

func (h *SummaryHandler) Weekly(c *gin.Context) {
	h.generate(c, h.assistantService.GenerateWeeklySummary)
}

func (h *SummaryHandler) generate(c *gin.Context, fn func(ctx context.Context, roomID uuid.UUID) (*domain.Message, error)) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	msg, err := fn(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
