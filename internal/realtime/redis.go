package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisBroker рассылает события через Redis Pub/Sub, чтобы подписчики на всех инстансах
// видели изменения комнаты
type redisBroker struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRedisBroker(redis *redis.Client, log logger.Logger) Broker {
	return &redisBroker{redis: redis, log: log}
}

func channelName(roomID uuid.UUID) string {
	return fmt.Sprintf("dealroom:events:%s", roomID)
}

func (b *redisBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.redis.Publish(ctx, channelName(event.RoomID), data).Err(); err != nil {
		b.log.Error("Failed to publish room event", "room_id", event.RoomID, "error", err)
		return err
	}
	return nil
}

func (b *redisBroker) Subscribe(ctx context.Context, roomID uuid.UUID, handler func(Event)) (func(), error) {
	pubsub := b.redis.Subscribe(ctx, channelName(roomID))
	// Дожидаемся подтверждения подписки, иначе первые события могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				b.log.Warn("Failed to close pubsub", "room_id", roomID, "error", err)
			}
		})
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				unsubscribe()
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Warn("Skipping malformed room event", "room_id", roomID, "error", err)
					continue
				}
				handler(event)
			}
		}
	}()

	return unsubscribe, nil
}

func (b *redisBroker) Close() error {
	return nil
}
