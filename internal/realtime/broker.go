package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventRoomUpdated  = "room_updated"
	EventMessageAdded = "message_added"
	EventCallStarted  = "call_started"
	EventCallEnded    = "call_ended"
)

// Event - уведомление об изменении документа комнаты. Подписчики перечитывают комнату сами.
type Event struct {
	RoomID uuid.UUID `json:"room_id"`
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
}

// Broker раздает события об изменениях комнат.
// Подписка снимается вызовом возвращенной функции или отменой ctx.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, roomID uuid.UUID, handler func(Event)) (unsubscribe func(), err error)
	Close() error
}
