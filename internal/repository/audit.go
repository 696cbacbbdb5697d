package repository

import (
	"context"

	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository дописывает записи в audit_log комнаты отдельной записью,
// независимо от основной мутации
type AuditRepository interface {
	AppendEntry(ctx context.Context, roomID uuid.UUID, entry *domain.AuditEntry) error
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) AppendEntry(ctx context.Context, roomID uuid.UUID, entry *domain.AuditEntry) error {
	query := `
		UPDATE deal_rooms
		SET audit_log = audit_log || $2::jsonb
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, roomID, []domain.AuditEntry{*entry})
	if err != nil {
		r.log.Error("Failed to append audit entry", "room_id", roomID, "action", entry.Action, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDealRoomNotFound
	}

	return nil
}
