package service

import (
	"context"

	"deal_room/internal/domain"
	"deal_room/internal/repository"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type AuditService interface {
	LogEvent(ctx context.Context, roomID uuid.UUID, action, actorID, targetID string, details map[string]interface{}) error
}

type auditService struct {
	auditRepo repository.AuditRepository
	clock     clockwork.Clock
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, clock clockwork.Clock, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		clock:     clock,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, roomID uuid.UUID, action, actorID, targetID string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		ActorID:   actorID,
		TargetID:  targetID,
		Details:   details,
		Timestamp: s.clock.Now(),
	}

	return s.auditRepo.AppendEntry(ctx, roomID, entry)
}
