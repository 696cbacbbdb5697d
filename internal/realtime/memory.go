package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryBroker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uuid.UUID]map[uint64]func(Event)
}

// NewMemoryBroker - брокер внутри процесса; обработчики вызываются синхронно в Publish
func NewMemoryBroker() Broker {
	return &memoryBroker{subs: make(map[uuid.UUID]map[uint64]func(Event))}
}

func (b *memoryBroker) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[event.RoomID]))
	for _, h := range b.subs[event.RoomID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, roomID uuid.UUID, handler func(Event)) (func(), error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[uint64]func(Event))
	}
	b.subs[roomID][id] = handler
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subs[roomID], id)
			if len(b.subs[roomID]) == 0 {
				delete(b.subs, roomID)
			}
			b.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()

	return unsubscribe, nil
}

func (b *memoryBroker) subscriberCount(roomID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[roomID])
}

func (b *memoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[uuid.UUID]map[uint64]func(Event))
	return nil
}
