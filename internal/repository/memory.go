package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"

	"github.com/google/uuid"
)

// In-memory реализации для dev-режима и тестов. Наружу всегда отдаются копии.

type memoryDealRooms struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*domain.DealRoom
}

func newMemoryDealRooms() *memoryDealRooms {
	return &memoryDealRooms{rooms: make(map[uuid.UUID]*domain.DealRoom)}
}

// NewMemoryDealRoomRepository возвращает репозиторий комнат и audit-репозиторий над общим хранилищем
func NewMemoryDealRoomRepository() (DealRoomRepository, AuditRepository) {
	store := newMemoryDealRooms()
	return store, store
}

func (m *memoryDealRooms) activeByPair(projectID, vcID string) *domain.DealRoom {
	for _, room := range m.rooms {
		if room.ProjectID == projectID && room.VCID == vcID && room.Status == domain.DealRoomStatusActive {
			return room
		}
	}
	return nil
}

func (m *memoryDealRooms) Create(ctx context.Context, room *domain.DealRoom) (*domain.DealRoom, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.Status == domain.DealRoomStatusActive {
		if existing := m.activeByPair(room.ProjectID, room.VCID); existing != nil {
			return existing.Clone(), false, nil
		}
	}
	if _, ok := m.rooms[room.ID]; ok {
		return nil, false, apperrors.ErrConflict
	}

	m.rooms[room.ID] = room.Clone()
	return room.Clone(), true, nil
}

func (m *memoryDealRooms) GetByID(ctx context.Context, id uuid.UUID) (*domain.DealRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[id]
	if !ok {
		return nil, apperrors.ErrDealRoomNotFound
	}
	return room.Clone(), nil
}

func (m *memoryDealRooms) GetActiveByPair(ctx context.Context, projectID, vcID string) (*domain.DealRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room := m.activeByPair(projectID, vcID)
	if room == nil {
		return nil, apperrors.ErrDealRoomNotFound
	}
	return room.Clone(), nil
}

func (m *memoryDealRooms) ListActiveByUser(ctx context.Context, userID string) ([]*domain.DealRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rooms []*domain.DealRoom
	for _, room := range m.rooms {
		if room.Status != domain.DealRoomStatusActive {
			continue
		}
		if room.FounderID == userID || room.VCID == userID || room.IsMember(userID) {
			rooms = append(rooms, room.Clone())
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastActivity.After(rooms[j].LastActivity)
	})
	return rooms, nil
}

func (m *memoryDealRooms) AppendMessage(ctx context.Context, roomID uuid.UUID, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return apperrors.ErrDealRoomNotFound
	}
	room.Messages = append(room.Messages, msg.Clone())
	room.LastActivity = msg.Timestamp
	room.UpdatedAt = msg.Timestamp
	return nil
}

func (m *memoryDealRooms) Update(ctx context.Context, roomID uuid.UUID, fn func(room *domain.DealRoom) error) (*domain.DealRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrDealRoomNotFound
	}

	room := stored.Clone()
	if err := fn(room); err != nil {
		return nil, err
	}
	room.UpdatedAt = time.Now()

	m.rooms[roomID] = room
	return room.Clone(), nil
}

func (m *memoryDealRooms) AppendEntry(ctx context.Context, roomID uuid.UUID, entry *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return apperrors.ErrDealRoomNotFound
	}
	room.AuditLog = append(room.AuditLog, entry.Clone())
	return nil
}

type memoryInvitations struct {
	mu          sync.Mutex
	invitations map[string]*domain.Invitation
}

func NewMemoryInvitationRepository() InvitationRepository {
	return &memoryInvitations{invitations: make(map[string]*domain.Invitation)}
}

func (m *memoryInvitations) Create(ctx context.Context, inv *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := strings.ToUpper(inv.Code)
	if _, ok := m.invitations[code]; ok {
		return apperrors.ErrConflict
	}
	stored := *inv
	m.invitations[code] = &stored
	return nil
}

func (m *memoryInvitations) GetByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[strings.ToUpper(code)]
	if !ok {
		return nil, apperrors.ErrInvitationInvalid
	}
	out := *inv
	return &out, nil
}

func (m *memoryInvitations) MarkAccepted(ctx context.Context, code, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[strings.ToUpper(code)]
	if !ok || inv.Status != domain.InvitationStatusPending {
		return apperrors.ErrInvitationInvalid
	}
	inv.Status = domain.InvitationStatusAccepted
	inv.AcceptedAt = &at
	inv.AcceptedBy = userID
	return nil
}

type cachedAnalysis struct {
	analysis domain.MessageAnalysis
	exp      time.Time
}

type memoryAnalysis struct {
	mu    sync.RWMutex
	items map[string]cachedAnalysis
}

func NewMemoryAnalysisRepository() AnalysisRepository {
	return &memoryAnalysis{items: make(map[string]cachedAnalysis)}
}

func (m *memoryAnalysis) Save(ctx context.Context, analysis *domain.MessageAnalysis, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[analysis.MessageID] = cachedAnalysis{analysis: *analysis, exp: time.Now().Add(ttl)}
	return nil
}

func (m *memoryAnalysis) Get(ctx context.Context, messageID string) (*domain.MessageAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[messageID]
	if !ok || time.Now().After(item.exp) {
		return nil, apperrors.ErrNotFound
	}
	out := item.analysis
	return &out, nil
}

type counter struct {
	n   int64
	exp time.Time
}

type memoryRateLimit struct {
	mu        sync.Mutex
	counters  map[string]counter
	nextSweep time.Time
}

func NewMemoryRateLimitRepository() RateLimitRepository {
	return &memoryRateLimit{counters: make(map[string]counter)}
}

func (m *memoryRateLimit) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if now.After(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(window)
	}

	c := m.counters[key]
	if c.exp.IsZero() || now.After(c.exp) {
		c = counter{exp: now.Add(window)}
	}
	c.n++
	m.counters[key] = c
	return c.n, nil
}

// sweep удаляет истекшие окна; вызывается под m.mu
func (m *memoryRateLimit) sweep(now time.Time) {
	for key, c := range m.counters {
		if now.After(c.exp) {
			delete(m.counters, key)
		}
	}
}
