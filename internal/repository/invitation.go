package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	GetByCode(ctx context.Context, code string) (*domain.Invitation, error)
	// MarkAccepted переводит pending -> accepted; выигрывает только один вызов
	MarkAccepted(ctx context.Context, code, userID string, at time.Time) error
}

type invitationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewInvitationRepository(db *pgxpool.Pool, log logger.Logger) InvitationRepository {
	return &invitationRepository{db: db, log: log}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO team_invitations (id, code, room_id, room_name, email, inviter_id, inviter_name,
		                              role, team_type, permissions, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		inv.ID, inv.Code, inv.RoomID, inv.RoomName, inv.Email, inv.InviterID, inv.InviterName,
		inv.Role, inv.TeamType, inv.Permissions, inv.Status, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if apperrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.ErrConflict
		}
		r.log.Error("Failed to create invitation", "room_id", inv.RoomID, "error", err)
		return fmt.Errorf("create invitation: %w", err)
	}

	return nil
}

func (r *invitationRepository) GetByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	query := `
		SELECT id, code, room_id, room_name, email, inviter_id, inviter_name, role, team_type,
		       permissions, status, expires_at, accepted_at, COALESCE(accepted_by, ''), created_at
		FROM team_invitations
		WHERE code = $1
	`

	inv := &domain.Invitation{}
	err := r.db.QueryRow(ctx, query, strings.ToUpper(code)).Scan(
		&inv.ID, &inv.Code, &inv.RoomID, &inv.RoomName, &inv.Email, &inv.InviterID, &inv.InviterName,
		&inv.Role, &inv.TeamType, &inv.Permissions, &inv.Status, &inv.ExpiresAt, &inv.AcceptedAt,
		&inv.AcceptedBy, &inv.CreatedAt,
	)
	if err != nil {
		if apperrors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvitationInvalid
		}
		r.log.Error("Failed to get invitation", "error", err)
		return nil, err
	}

	return inv, nil
}

func (r *invitationRepository) MarkAccepted(ctx context.Context, code, userID string, at time.Time) error {
	query := `
		UPDATE team_invitations
		SET status = 'accepted', accepted_at = $2, accepted_by = $3
		WHERE code = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, strings.ToUpper(code), at, userID)
	if err != nil {
		r.log.Error("Failed to accept invitation", "error", err)
		return fmt.Errorf("accept invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvitationInvalid
	}

	return nil
}
