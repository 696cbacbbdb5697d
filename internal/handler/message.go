package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"deal_room/internal/domain"
	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const analysisTimeout = 10 * time.Second

type MessageHandler struct {
	dealRoomService  service.DealRoomService
	assistantService service.AssistantService
	log              logger.Logger
}

func NewMessageHandler(dealRoomService service.DealRoomService, assistantService service.AssistantService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		dealRoomService:  dealRoomService,
		assistantService: assistantService,
		log:              log,
	}
}

type SendMessageRequest struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = domain.MessageTypeText
	}

	user := currentUser(c)
	msg, err := h.dealRoomService.AddMessage(c.Request.Context(), roomID, service.NewMessage{
		SenderID:   user.ID,
		SenderName: user.Name,
		Content:    req.Content,
		Type:       req.Type,
		FileURL:    req.FileURL,
		FileName:   req.FileName,
		FileSize:   req.FileSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// Анализ не задерживает ответ; контекст запроса к этому моменту уже может быть отменен
	go h.analyze(roomID, *msg)

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) analyze(roomID uuid.UUID, msg domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	notes, err := h.assistantService.AnalyzeMessage(ctx, roomID, &msg)
	if err != nil {
		h.log.Error("Message analysis failed", "room_id", roomID, "message_id", msg.ID, "error", err)
		return
	}
	if len(notes) > 0 {
		h.log.Debug("Note points extracted", "room_id", roomID, "message_id", msg.ID, "count", len(notes))
	}
}

func (h *MessageHandler) Search(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	messages, err := h.dealRoomService.SearchMessages(c.Request.Context(), roomID, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *MessageHandler) Edit(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}
	messageID, ok := parseID(c, "messageId", "message")
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.dealRoomService.EditMessage(c.Request.Context(), roomID, messageID, currentUser(c).ID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) TogglePin(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}
	messageID, ok := parseID(c, "messageId", "message")
	if !ok {
		return
	}

	msg, err := h.dealRoomService.TogglePin(c.Request.Context(), roomID, messageID, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// React ставит реакцию; пустой emoji снимает реакцию пользователя
func (h *MessageHandler) React(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}
	messageID, ok := parseID(c, "messageId", "message")
	if !ok {
		return
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.dealRoomService.SetReaction(c.Request.Context(), roomID, messageID, currentUser(c).ID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Analysis(c *gin.Context) {
	if _, ok := authorizeRoom(c, h.dealRoomService); !ok {
		return
	}
	messageID, ok := parseID(c, "messageId", "message")
	if !ok {
		return
	}

	result, err := h.assistantService.GetMessageAnalysis(c.Request.Context(), messageID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
