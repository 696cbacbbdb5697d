package repository

import (
	"context"
	"fmt"
	"time"

	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DealRoomRepository хранит документ комнаты целиком: вложенные массивы лежат в JSONB колонках
type DealRoomRepository interface {
	// Create сохраняет комнату; если для пары (project, vc) уже есть активная, возвращает ее и false
	Create(ctx context.Context, room *domain.DealRoom) (*domain.DealRoom, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DealRoom, error)
	GetActiveByPair(ctx context.Context, projectID, vcID string) (*domain.DealRoom, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.DealRoom, error)
	AppendMessage(ctx context.Context, roomID uuid.UUID, msg *domain.Message) error
	// Update выполняет read-modify-write под блокировкой строки
	Update(ctx context.Context, roomID uuid.UUID, fn func(room *domain.DealRoom) error) (*domain.DealRoom, error)
}

type dealRoomRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewDealRoomRepository(db *pgxpool.Pool, log logger.Logger) DealRoomRepository {
	return &dealRoomRepository{db: db, log: log}
}

const selectDealRoom = `
	SELECT id, name, type, project_id, founder_id, founder_name, founder_logo,
	       vc_id, vc_name, vc_logo, status, members, messages, note_points, audit_log,
	       pending_invitations, settings, privacy, team_settings,
	       last_activity, created_at, updated_at
	FROM deal_rooms
`

func scanDealRoom(row pgx.Row) (*domain.DealRoom, error) {
	room := &domain.DealRoom{}
	err := row.Scan(
		&room.ID, &room.Name, &room.Type, &room.ProjectID, &room.FounderID, &room.FounderName, &room.FounderLogo,
		&room.VCID, &room.VCName, &room.VCLogo, &room.Status, &room.Members, &room.Messages, &room.NotePoints, &room.AuditLog,
		&room.PendingInvitations, &room.Settings, &room.Privacy, &room.TeamSettings,
		&room.LastActivity, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDealRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *dealRoomRepository) Create(ctx context.Context, room *domain.DealRoom) (*domain.DealRoom, bool, error) {
	// Частичный уникальный индекс (project_id, vc_id) WHERE status = 'active'
	// гарантирует не более одной активной комнаты на пару
	query := `
		INSERT INTO deal_rooms (id, name, type, project_id, founder_id, founder_name, founder_logo,
		                        vc_id, vc_name, vc_logo, status, members, messages, note_points, audit_log,
		                        pending_invitations, settings, privacy, team_settings,
		                        last_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (project_id, vc_id) WHERE status = 'active' DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		room.ID, room.Name, room.Type, room.ProjectID, room.FounderID, room.FounderName, room.FounderLogo,
		room.VCID, room.VCName, room.VCLogo, room.Status, room.Members, room.Messages, room.NotePoints, room.AuditLog,
		room.PendingInvitations, room.Settings, room.Privacy, room.TeamSettings,
		room.LastActivity, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create deal room", "error", err)
		return nil, false, fmt.Errorf("create deal room: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, err := r.GetActiveByPair(ctx, room.ProjectID, room.VCID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return room, true, nil
}

func (r *dealRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DealRoom, error) {
	room, err := scanDealRoom(r.db.QueryRow(ctx, selectDealRoom+" WHERE id = $1", id))
	if err != nil && !apperrors.Is(err, apperrors.ErrDealRoomNotFound) {
		r.log.Error("Failed to get deal room by ID", "room_id", id, "error", err)
	}
	return room, err
}

func (r *dealRoomRepository) GetActiveByPair(ctx context.Context, projectID, vcID string) (*domain.DealRoom, error) {
	room, err := scanDealRoom(r.db.QueryRow(ctx,
		selectDealRoom+" WHERE project_id = $1 AND vc_id = $2 AND status = 'active'", projectID, vcID))
	if err != nil && !apperrors.Is(err, apperrors.ErrDealRoomNotFound) {
		r.log.Error("Failed to get deal room by pair", "project_id", projectID, "vc_id", vcID, "error", err)
	}
	return room, err
}

func (r *dealRoomRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.DealRoom, error) {
	query := selectDealRoom + `
		WHERE status = 'active'
		  AND (founder_id = $1 OR vc_id = $1
		       OR members @> jsonb_build_array(jsonb_build_object('user_id', $1::text)))
		ORDER BY last_activity DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list deal rooms", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.DealRoom
	for rows.Next() {
		room, err := scanDealRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (r *dealRoomRepository) AppendMessage(ctx context.Context, roomID uuid.UUID, msg *domain.Message) error {
	query := `
		UPDATE deal_rooms
		SET messages = messages || $2::jsonb, last_activity = $3, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, roomID, []domain.Message{*msg}, msg.Timestamp)
	if err != nil {
		r.log.Error("Failed to append message", "room_id", roomID, "error", err)
		return fmt.Errorf("append message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDealRoomNotFound
	}

	return nil
}

func (r *dealRoomRepository) Update(ctx context.Context, roomID uuid.UUID, fn func(room *domain.DealRoom) error) (*domain.DealRoom, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	room, err := scanDealRoom(tx.QueryRow(ctx, selectDealRoom+" WHERE id = $1 FOR UPDATE", roomID))
	if err != nil {
		return nil, err
	}

	if err := fn(room); err != nil {
		return nil, err
	}
	room.UpdatedAt = time.Now()

	query := `
		UPDATE deal_rooms
		SET name = $2, status = $3, members = $4, messages = $5, note_points = $6, audit_log = $7,
		    pending_invitations = $8, settings = $9, privacy = $10, team_settings = $11,
		    last_activity = $12, updated_at = $13
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, query,
		room.ID, room.Name, room.Status, room.Members, room.Messages, room.NotePoints, room.AuditLog,
		room.PendingInvitations, room.Settings, room.Privacy, room.TeamSettings,
		room.LastActivity, room.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update deal room", "room_id", roomID, "error", err)
		return nil, fmt.Errorf("update deal room: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return room, nil
}
