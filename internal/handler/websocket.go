package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"deal_room/internal/domain"
	"deal_room/internal/service"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type WebSocketHandler struct {
	dealRoomService service.DealRoomService
	upgrader        websocket.Upgrader
	log             logger.Logger
}

func NewWebSocketHandler(dealRoomService service.DealRoomService, allowedOrigins []string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		dealRoomService: dealRoomService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// roomFrame - сообщение клиенту: полный документ комнаты после каждого изменения
type roomFrame struct {
	Type     string           `json:"type"`
	DealRoom *domain.DealRoom `json:"deal_room"`
}

// roomSlot хранит последний снимок комнаты. Каждый кадр содержит комнату целиком,
// поэтому промежуточные снимки можно пропустить, но последний теряться не должен.
type roomSlot struct {
	mu     sync.Mutex
	room   *domain.DealRoom
	notify chan struct{}
}

func newRoomSlot(initial *domain.DealRoom) *roomSlot {
	s := &roomSlot{room: initial, notify: make(chan struct{}, 1)}
	s.notify <- struct{}{}
	return s
}

func (s *roomSlot) put(room *domain.DealRoom) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// take забирает снимок; nil, если его уже отправили
func (s *roomSlot) take() *domain.DealRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.room
	s.room = nil
	return room
}

// StreamRoom отдает снимок комнаты сразу после подключения и затем при каждом изменении.
// Подписка живет, пока открыто соединение.
func (h *WebSocketHandler) StreamRoom(c *gin.Context) {
	roomID, ok := authorizeRoom(c, h.dealRoomService)
	if !ok {
		return
	}
	userID := currentUser(c).ID

	room, err := h.dealRoomService.GetDealRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "room_id", roomID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := newRoomSlot(room)
	unsubscribe, err := h.dealRoomService.SubscribeToDealRoom(ctx, roomID, updates.put)
	if err != nil {
		h.log.Error("Failed to subscribe to deal room", "room_id", roomID, "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer unsubscribe()

	h.log.Info("Room stream opened", "room_id", roomID, "user_id", userID)
	go h.readLoop(conn, cancel)
	h.writeLoop(ctx, conn, updates)
	h.log.Info("Room stream closed", "room_id", roomID, "user_id", userID)
}

// readLoop обслуживает pong и close от клиента; входящие данные игнорируются
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("WebSocket read error", "error", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, updates *roomSlot) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-updates.notify:
			room := updates.take()
			if room == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(roomFrame{Type: "deal_room", DealRoom: room}); err != nil {
				h.log.Warn("WebSocket write failed", "room_id", room.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
