package repository

import (
	"deal_room/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Repositories struct {
	DealRoom   DealRoomRepository
	Audit      AuditRepository
	Invitation InvitationRepository
	Analysis   AnalysisRepository
	RateLimit  RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		DealRoom:   NewDealRoomRepository(db, log),
		Audit:      NewAuditRepository(db, log),
		Invitation: NewInvitationRepository(db, log),
		Analysis:   NewAnalysisRepository(redis, log),
		RateLimit:  NewRateLimitRepository(redis, log),
	}
}

// NewMemoryRepositories - все хранилища в памяти процесса (STORAGE_BACKEND=memory)
func NewMemoryRepositories(log logger.Logger) *Repositories {
	dealRooms, audit := NewMemoryDealRoomRepository()
	log.Info("Using in-memory repositories")

	return &Repositories{
		DealRoom:   dealRooms,
		Audit:      audit,
		Invitation: NewMemoryInvitationRepository(),
		Analysis:   NewMemoryAnalysisRepository(),
		RateLimit:  NewMemoryRateLimitRepository(),
	}
}
