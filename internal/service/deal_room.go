package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"

	"deal_room/internal/config"
	"deal_room/internal/domain"
	"deal_room/internal/realtime"
	"deal_room/internal/repository"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	invitationCodeLength   = 8
	invitationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	invitationCodeAttempts = 5

	maxRoomNameLength  = 100
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type CreateDealRoomInput struct {
	ProjectID   string `json:"project_id" binding:"required"`
	FounderID   string `json:"founder_id" binding:"required"`
	FounderName string `json:"founder_name" binding:"required"`
	FounderLogo string `json:"founder_logo"`
	VCID        string `json:"vc_id" binding:"required"`
	VCName      string `json:"vc_name" binding:"required"`
	VCLogo      string `json:"vc_logo"`
}

type NewMessage struct {
	SenderID   string
	SenderName string
	Content    string
	Type       string
	FileURL    string
	FileName   string
	FileSize   int64
	Metadata   *domain.MessageMetadata
}

type NewMember struct {
	UserID   string
	Name     string
	Email    string
	Role     string
	TeamType string
}

type NewNotePoint struct {
	Type       string
	Content    string
	CreatedBy  string
	AssignedTo string
	Source     *domain.NoteSource
	Tags       []string
	Followers  []string
}

// NotePointUpdate - nil поля не меняются
type NotePointUpdate struct {
	Status     *string
	Content    *string
	AssignedTo *string
}

type DealRoomService interface {
	CreateDealRoom(ctx context.Context, input CreateDealRoomInput) (*domain.DealRoom, bool, error)
	GetDealRoom(ctx context.Context, roomID uuid.UUID) (*domain.DealRoom, error)
	CanUserAccessDealRoom(ctx context.Context, roomID uuid.UUID, userID string) error
	GetUserDealRooms(ctx context.Context, userID string) ([]*domain.DealRoom, error)

	AddMessage(ctx context.Context, roomID uuid.UUID, input NewMessage) (*domain.Message, error)
	EditMessage(ctx context.Context, roomID, messageID uuid.UUID, editorID, content string) (*domain.Message, error)
	TogglePin(ctx context.Context, roomID, messageID uuid.UUID, userID string) (*domain.Message, error)
	SetReaction(ctx context.Context, roomID, messageID uuid.UUID, userID, emoji string) (*domain.Message, error)
	SearchMessages(ctx context.Context, roomID uuid.UUID, query string, limit int) ([]domain.Message, error)

	AddMember(ctx context.Context, roomID uuid.UUID, actorID string, input NewMember) (*domain.Member, error)
	AddTeamMember(ctx context.Context, roomID uuid.UUID, inviterID, email, role string) (*domain.Invitation, error)
	AcceptTeamInvitation(ctx context.Context, code, userID, email, name string) (uuid.UUID, error)

	AddNotePoint(ctx context.Context, roomID uuid.UUID, input NewNotePoint) (*domain.NotePoint, error)
	AddNotePoints(ctx context.Context, roomID uuid.UUID, notes []domain.NotePoint) error
	UpdateNotePoint(ctx context.Context, roomID, noteID uuid.UUID, actorID string, update NotePointUpdate) (*domain.NotePoint, error)

	RenameRoom(ctx context.Context, roomID uuid.UUID, actorID, name string) (*domain.DealRoom, error)
	ArchiveRoom(ctx context.Context, roomID uuid.UUID, actorID string) error
	// OnArchive регистрирует обработчик, вызываемый после архивации комнаты
	OnArchive(fn func(roomID uuid.UUID))

	SubscribeToDealRoom(ctx context.Context, roomID uuid.UUID, callback func(room *domain.DealRoom)) (func(), error)
}

type dealRoomService struct {
	dealRoomRepo   repository.DealRoomRepository
	invitationRepo repository.InvitationRepository
	audit          AuditService
	broker         realtime.Broker
	clock          clockwork.Clock
	cfg            config.DealRoomConfig
	log            logger.Logger

	hooksMu      sync.RWMutex
	archiveHooks []func(roomID uuid.UUID)
}

func NewDealRoomService(
	dealRoomRepo repository.DealRoomRepository,
	invitationRepo repository.InvitationRepository,
	audit AuditService,
	broker realtime.Broker,
	clock clockwork.Clock,
	cfg config.DealRoomConfig,
	log logger.Logger,
) DealRoomService {
	return &dealRoomService{
		dealRoomRepo:   dealRoomRepo,
		invitationRepo: invitationRepo,
		audit:          audit,
		broker:         broker,
		clock:          clock,
		cfg:            cfg,
		log:            log,
	}
}

func (s *dealRoomService) CreateDealRoom(ctx context.Context, input CreateDealRoomInput) (*domain.DealRoom, bool, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.FounderID = strings.TrimSpace(input.FounderID)
	input.VCID = strings.TrimSpace(input.VCID)
	if input.ProjectID == "" || input.FounderID == "" || input.VCID == "" {
		return nil, false, fmt.Errorf("%w: project, founder and vc ids are required", apperrors.ErrBadRequest)
	}
	if strings.TrimSpace(input.FounderName) == "" || strings.TrimSpace(input.VCName) == "" {
		return nil, false, fmt.Errorf("%w: founder and vc names are required", apperrors.ErrBadRequest)
	}

	existing, err := s.dealRoomRepo.GetActiveByPair(ctx, input.ProjectID, input.VCID)
	if err == nil {
		return existing, false, nil
	}
	if !apperrors.Is(err, apperrors.ErrDealRoomNotFound) {
		return nil, false, err
	}

	room := s.newDealRoom(input)
	stored, created, err := s.dealRoomRepo.Create(ctx, room)
	if err != nil {
		s.log.Error("Failed to create deal room", "project_id", input.ProjectID, "vc_id", input.VCID, "error", err)
		return nil, false, err
	}
	if !created {
		return stored, false, nil
	}

	s.log.Info("Deal room created", "room_id", stored.ID, "project_id", stored.ProjectID, "vc_id", stored.VCID)

	_, err = s.AddMessage(ctx, stored.ID, NewMessage{
		SenderID:   domain.BotUserID,
		SenderName: domain.BotName,
		Content:    fmt.Sprintf("RaftAI created this deal room for %s.", stored.Name),
		Type:       domain.MessageTypeSystem,
	})
	if err != nil {
		s.log.Warn("Failed to post welcome message", "room_id", stored.ID, "error", err)
		return stored, true, nil
	}

	fresh, err := s.dealRoomRepo.GetByID(ctx, stored.ID)
	return fresh, true, err
}

func (s *dealRoomService) newDealRoom(input CreateDealRoomInput) *domain.DealRoom {
	now := s.clock.Now()
	name := domain.RoomName(input.FounderName, input.VCName)

	return &domain.DealRoom{
		ID:          uuid.New(),
		Name:        name,
		Type:        domain.DealRoomTypeDeal,
		ProjectID:   input.ProjectID,
		FounderID:   input.FounderID,
		FounderName: input.FounderName,
		FounderLogo: input.FounderLogo,
		VCID:        input.VCID,
		VCName:      input.VCName,
		VCLogo:      input.VCLogo,
		Status:      domain.DealRoomStatusActive,
		Members: []domain.Member{
			{
				UserID:       input.FounderID,
				Name:         input.FounderName,
				Role:         domain.MemberRoleOwner,
				TeamType:     domain.TeamTypeFounder,
				Permissions:  domain.OwnerPermissions(),
				Notification: domain.NotificationSettings{AllMessages: true},
				JoinedAt:     now,
			},
			{
				UserID:       input.VCID,
				Name:         input.VCName,
				Role:         domain.MemberRoleOwner,
				TeamType:     domain.TeamTypeVC,
				Permissions:  domain.OwnerPermissions(),
				Notification: domain.NotificationSettings{AllMessages: true},
				JoinedAt:     now,
			},
			{
				UserID:       domain.BotUserID,
				Name:         domain.BotName,
				Email:        domain.BotEmail,
				Role:         domain.MemberRoleAdmin,
				Permissions:  domain.BotPermissions(),
				Notification: domain.NotificationSettings{Mute: true},
				IsBot:        true,
				JoinedAt:     now,
			},
		},
		Messages:   []domain.Message{},
		NotePoints: []domain.NotePoint{},
		AuditLog: []domain.AuditEntry{
			{
				ID:        uuid.New(),
				Action:    domain.AuditActionRoomCreated,
				ActorID:   domain.BotUserID,
				TargetID:  input.ProjectID,
				Details:   map[string]interface{}{"founder_id": input.FounderID, "vc_id": input.VCID},
				Timestamp: now,
			},
		},
		PendingInvitations: []string{},
		Settings: domain.RoomSettings{
			AllowFileUploads: true,
			AllowCalls:       true,
			MaxFileSize:      s.cfg.MaxFileSizeBytes,
			AllowedFileTypes: append([]string(nil), domain.DefaultAllowedFileTypes...),
		},
		Privacy: &domain.RoomPrivacy{
			Type:         domain.PrivacyTypePrivate,
			IsPrivate:    true,
			AllowedUsers: []string{input.FounderID, input.VCID},
		},
		TeamSettings: domain.TeamSettings{
			MaxTeamMembers: s.cfg.MaxTeamMembers,
			AllowedRoles:   []string{domain.MemberRoleMember, domain.MemberRoleAdmin},
		},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *dealRoomService) GetDealRoom(ctx context.Context, roomID uuid.UUID) (*domain.DealRoom, error) {
	return s.dealRoomRepo.GetByID(ctx, roomID)
}

func (s *dealRoomService) CanUserAccessDealRoom(ctx context.Context, roomID uuid.UUID, userID string) error {
	room, err := s.dealRoomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}

	if room.IsPrivileged(userID) || room.IsMember(userID) {
		return nil
	}

	// Комнаты без блока приватности доступны всем только при явном включении
	if (room.Privacy == nil || !room.Privacy.IsPrivate) && s.cfg.AllowOpenRooms {
		return nil
	}

	return apperrors.ErrAccessDenied
}

func (s *dealRoomService) GetUserDealRooms(ctx context.Context, userID string) ([]*domain.DealRoom, error) {
	return s.dealRoomRepo.ListActiveByUser(ctx, userID)
}

func (s *dealRoomService) AddMessage(ctx context.Context, roomID uuid.UUID, input NewMessage) (*domain.Message, error) {
	if input.Type == "" {
		input.Type = domain.MessageTypeText
	}

	room, err := s.dealRoomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.DealRoomStatusActive {
		return nil, apperrors.ErrDealRoomArchived
	}
	if err := validateMessage(room, input); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New(),
		SenderID:   input.SenderID,
		SenderName: input.SenderName,
		Content:    input.Content,
		Type:       input.Type,
		Timestamp:  s.clock.Now(),
		Reactions:  map[string]string{},
		FileURL:    input.FileURL,
		FileName:   input.FileName,
		FileSize:   input.FileSize,
		Metadata:   input.Metadata,
	}

	if err := s.dealRoomRepo.AppendMessage(ctx, roomID, msg); err != nil {
		s.log.Error("Failed to add message", "room_id", roomID, "error", err)
		return nil, err
	}

	s.logAudit(ctx, roomID, domain.AuditActionMessageSent, msg.SenderID, msg.ID.String(), map[string]interface{}{
		"type":           msg.Type,
		"content_length": len(msg.Content),
	})
	s.publish(ctx, roomID, realtime.EventMessageAdded)

	return msg, nil
}

func validateMessage(room *domain.DealRoom, input NewMessage) error {
	switch input.Type {
	case domain.MessageTypeText, domain.MessageTypeSystem, domain.MessageTypeSummary,
		domain.MessageTypeCallStart, domain.MessageTypeCallEnd:
		if strings.TrimSpace(input.Content) == "" {
			return fmt.Errorf("%w: message content is empty", apperrors.ErrBadRequest)
		}
	case domain.MessageTypeImage, domain.MessageTypeFile:
		if !room.Settings.AllowFileUploads {
			return fmt.Errorf("%w: file uploads are disabled in this room", apperrors.ErrForbidden)
		}
		if input.FileURL == "" {
			return fmt.Errorf("%w: file url is required", apperrors.ErrBadRequest)
		}
		if room.Settings.MaxFileSize > 0 && input.FileSize > room.Settings.MaxFileSize {
			return fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrBadRequest, room.Settings.MaxFileSize)
		}
		if input.FileName != "" && len(room.Settings.AllowedFileTypes) > 0 {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.FileName), "."))
			if !contains(room.Settings.AllowedFileTypes, ext) {
				return fmt.Errorf("%w: file type %q is not allowed", apperrors.ErrBadRequest, ext)
			}
		}
	default:
		return fmt.Errorf("%w: unknown message type %q", apperrors.ErrBadRequest, input.Type)
	}
	return nil
}

func (s *dealRoomService) EditMessage(ctx context.Context, roomID, messageID uuid.UUID, editorID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", apperrors.ErrBadRequest)
	}

	var edited domain.Message
	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		msg := room.Message(messageID)
		if msg == nil {
			return apperrors.ErrMessageNotFound
		}
		if msg.SenderID != editorID || msg.Type != domain.MessageTypeText {
			return apperrors.ErrPermissionDenied
		}

		now := s.clock.Now()
		msg.Content = content
		msg.Edited = true
		msg.EditedAt = &now
		edited = msg.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, roomID, domain.AuditActionMessageEdited, editorID, messageID.String(), nil)
	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return &edited, nil
}

// TogglePin снимает закрепление с сообщения или закрепляет его, открепив остальные
func (s *dealRoomService) TogglePin(ctx context.Context, roomID, messageID uuid.UUID, userID string) (*domain.Message, error) {
	var pinned domain.Message
	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		if !room.IsMember(userID) && !room.IsPrivileged(userID) {
			return apperrors.ErrAccessDenied
		}
		msg := room.Message(messageID)
		if msg == nil {
			return apperrors.ErrMessageNotFound
		}

		pin := !msg.Pinned
		for i := range room.Messages {
			room.Messages[i].Pinned = false
		}
		msg.Pinned = pin
		pinned = msg.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return &pinned, nil
}

func (s *dealRoomService) SetReaction(ctx context.Context, roomID, messageID uuid.UUID, userID, emoji string) (*domain.Message, error) {
	emoji = strings.TrimSpace(emoji)

	var reacted domain.Message
	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		msg := room.Message(messageID)
		if msg == nil {
			return apperrors.ErrMessageNotFound
		}
		if msg.Reactions == nil {
			msg.Reactions = map[string]string{}
		}
		if emoji == "" {
			delete(msg.Reactions, userID)
		} else {
			msg.Reactions[userID] = emoji
		}
		reacted = msg.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return &reacted, nil
}

func (s *dealRoomService) SearchMessages(ctx context.Context, roomID uuid.UUID, query string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", apperrors.ErrBadRequest)
	}

	room, err := s.dealRoomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Message, 0)
	for i := len(room.Messages) - 1; i >= 0 && len(results) < limit; i-- {
		msg := room.Messages[i]
		if strings.Contains(strings.ToLower(msg.Content), query) ||
			strings.Contains(strings.ToLower(msg.SenderName), query) {
			results = append(results, msg)
		}
	}
	return results, nil
}

func (s *dealRoomService) AddMember(ctx context.Context, roomID uuid.UUID, actorID string, input NewMember) (*domain.Member, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	input.Name = strings.TrimSpace(input.Name)
	if input.UserID == "" || input.Name == "" {
		return nil, fmt.Errorf("%w: member id and name are required", apperrors.ErrBadRequest)
	}
	if input.Role == "" {
		input.Role = domain.MemberRoleMember
	}
	if input.Role == domain.MemberRoleOwner {
		return nil, fmt.Errorf("%w: owner role cannot be granted", apperrors.ErrBadRequest)
	}

	var member domain.Member
	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		if room.Status != domain.DealRoomStatusActive {
			return apperrors.ErrDealRoomArchived
		}
		actor := room.Member(actorID)
		if actor == nil || !actor.Permissions.CanInvite {
			return apperrors.ErrPermissionDenied
		}
		if room.IsMember(input.UserID) {
			return apperrors.ErrAlreadyMember
		}

		member = domain.Member{
			UserID:       input.UserID,
			Name:         input.Name,
			Email:        input.Email,
			Role:         input.Role,
			TeamType:     input.TeamType,
			Permissions:  domain.MemberPermissions(),
			Notification: domain.NotificationSettings{AllMessages: true},
			InvitedBy:    actorID,
			JoinedAt:     s.clock.Now(),
		}
		room.Members = append(room.Members, member)
		room.LastActivity = member.JoinedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Member added to deal room", "room_id", roomID, "user_id", member.UserID)

	s.postSystemMessage(ctx, roomID, domain.BotUserID, domain.BotName, fmt.Sprintf("%s joined the deal room.", member.Name))
	s.logAudit(ctx, roomID, domain.AuditActionMemberAdded, actorID, member.UserID, map[string]interface{}{
		"member_name":  member.Name,
		"member_email": member.Email,
	})
	return &member, nil
}

func (s *dealRoomService) AddTeamMember(ctx context.Context, roomID uuid.UUID, inviterID, email, role string) (*domain.Invitation, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", apperrors.ErrBadRequest)
	}
	if role == "" {
		role = domain.MemberRoleMember
	}

	room, err := s.dealRoomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.DealRoomStatusActive {
		return nil, apperrors.ErrDealRoomArchived
	}

	inviter := room.Member(inviterID)
	if inviter == nil || !inviter.Permissions.CanInviteTeam {
		return nil, apperrors.ErrPermissionDenied
	}
	if !contains(room.TeamSettings.AllowedRoles, role) {
		return nil, fmt.Errorf("%w: role %q is not allowed", apperrors.ErrBadRequest, role)
	}
	if room.TeamSize(inviter.TeamType) >= room.TeamSettings.MaxTeamMembers {
		return nil, fmt.Errorf("%w: maximum team members reached (%d)", apperrors.ErrTeamFull, room.TeamSettings.MaxTeamMembers)
	}

	now := s.clock.Now()
	inv := &domain.Invitation{
		ID:          uuid.New(),
		RoomID:      room.ID,
		RoomName:    room.Name,
		Email:       email,
		InviterID:   inviter.UserID,
		InviterName: inviter.Name,
		Role:        role,
		TeamType:    inviter.TeamType,
		Permissions: domain.InvitationPermissions(role),
		Status:      domain.InvitationStatusPending,
		ExpiresAt:   now.Add(s.cfg.InvitationTTL),
		CreatedAt:   now,
	}

	if err := s.storeInvitation(ctx, inv); err != nil {
		return nil, err
	}

	_, err = s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		room.PendingInvitations = append(room.PendingInvitations, inv.Code)
		return nil
	})
	if err != nil {
		s.log.Error("Failed to record pending invitation", "room_id", roomID, "error", err)
		return nil, err
	}

	s.log.Info("Team invitation sent", "room_id", roomID, "inviter_id", inviterID, "team_type", inv.TeamType)

	s.postSystemMessage(ctx, roomID, domain.SystemSenderID, domain.SystemSenderName,
		fmt.Sprintf("%s sent an invitation to %s. Invitation code: %s", inviter.Name, email, inv.Code))
	s.logAudit(ctx, roomID, domain.AuditActionInvitationSent, inviterID, email, map[string]interface{}{
		"role":      role,
		"team_type": inv.TeamType,
	})
	return inv, nil
}

// storeInvitation генерирует код и повторяет попытку при коллизии
func (s *dealRoomService) storeInvitation(ctx context.Context, inv *domain.Invitation) error {
	for attempt := 0; attempt < invitationCodeAttempts; attempt++ {
		code, err := generateInvitationCode()
		if err != nil {
			return err
		}
		inv.Code = code

		err = s.invitationRepo.Create(ctx, inv)
		if err == nil {
			return nil
		}
		if !apperrors.Is(err, apperrors.ErrConflict) {
			s.log.Error("Failed to store invitation", "room_id", inv.RoomID, "error", err)
			return err
		}
		s.log.Warn("Invitation code collision, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("generate invitation code: %w", apperrors.ErrConflict)
}

func generateInvitationCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(invitationCodeAlphabet)))
	code := make([]byte, invitationCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate invitation code: %w", err)
		}
		code[i] = invitationCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func (s *dealRoomService) AcceptTeamInvitation(ctx context.Context, code, userID, email, name string) (uuid.UUID, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || userID == "" {
		return uuid.Nil, apperrors.ErrInvitationInvalid
	}

	inv, err := s.invitationRepo.GetByCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	if inv.Status != domain.InvitationStatusPending {
		return uuid.Nil, apperrors.ErrInvitationInvalid
	}

	now := s.clock.Now()
	if now.After(inv.ExpiresAt) {
		return uuid.Nil, apperrors.ErrInvitationExpired
	}
	if !strings.EqualFold(strings.TrimSpace(email), inv.Email) {
		return uuid.Nil, apperrors.ErrInvitationEmailMismatch
	}

	room, err := s.dealRoomRepo.GetByID(ctx, inv.RoomID)
	if err != nil {
		return uuid.Nil, err
	}
	if room.Status != domain.DealRoomStatusActive {
		return uuid.Nil, apperrors.ErrDealRoomArchived
	}

	// Условный переход pending -> accepted: из конкурентных вызовов выигрывает один
	if err := s.invitationRepo.MarkAccepted(ctx, code, userID, now); err != nil {
		return uuid.Nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = email
	}

	_, err = s.dealRoomRepo.Update(ctx, inv.RoomID, func(room *domain.DealRoom) error {
		// Комнату могли архивировать между проверкой и MarkAccepted
		if room.Status != domain.DealRoomStatusActive {
			return apperrors.ErrDealRoomArchived
		}
		room.PendingInvitations = remove(room.PendingInvitations, code)
		if room.IsMember(userID) {
			return nil
		}
		room.Members = append(room.Members, domain.Member{
			UserID:       userID,
			Name:         name,
			Email:        inv.Email,
			Role:         inv.Role,
			TeamType:     inv.TeamType,
			Permissions:  inv.Permissions,
			Notification: domain.NotificationSettings{AllMessages: true},
			InvitedBy:    inv.InviterID,
			JoinedAt:     now,
		})
		room.LastActivity = now
		return nil
	})
	if err != nil {
		s.log.Error("Failed to add invited member", "room_id", inv.RoomID, "user_id", userID, "error", err)
		return uuid.Nil, err
	}

	s.log.Info("Team invitation accepted", "room_id", inv.RoomID, "user_id", userID)

	s.postSystemMessage(ctx, inv.RoomID, domain.SystemSenderID, domain.SystemSenderName,
		fmt.Sprintf("%s joined the team using invitation code", name))
	s.logAudit(ctx, inv.RoomID, domain.AuditActionInvitationAccepted, userID, inv.ID.String(), map[string]interface{}{
		"team_type": inv.TeamType,
		"role":      inv.Role,
	})
	return inv.RoomID, nil
}

func (s *dealRoomService) AddNotePoint(ctx context.Context, roomID uuid.UUID, input NewNotePoint) (*domain.NotePoint, error) {
	now := s.clock.Now()
	note := domain.NotePoint{
		ID:         uuid.New(),
		Type:       input.Type,
		Content:    strings.TrimSpace(input.Content),
		Status:     domain.NoteStatusOpen,
		CreatedBy:  input.CreatedBy,
		AssignedTo: input.AssignedTo,
		Source:     input.Source,
		Tags:       input.Tags,
		Followers:  input.Followers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	if note.Followers == nil {
		note.Followers = []string{}
	}

	if err := s.AddNotePoints(ctx, roomID, []domain.NotePoint{note}); err != nil {
		return nil, err
	}
	return &note, nil
}

// AddNotePoints добавляет набор note points одной записью; все создаются от одного автора
func (s *dealRoomService) AddNotePoints(ctx context.Context, roomID uuid.UUID, notes []domain.NotePoint) error {
	if len(notes) == 0 {
		return nil
	}
	for _, note := range notes {
		if !domain.IsValidNoteType(note.Type) {
			return fmt.Errorf("%w: unknown note point type %q", apperrors.ErrBadRequest, note.Type)
		}
		if note.Content == "" {
			return fmt.Errorf("%w: note point content is empty", apperrors.ErrBadRequest)
		}
		if note.Status != "" && !domain.IsValidNoteStatus(note.Status) {
			return fmt.Errorf("%w: unknown note point status %q", apperrors.ErrBadRequest, note.Status)
		}
	}

	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		for _, note := range notes {
			creator := room.Member(note.CreatedBy)
			if creator == nil || !creator.Permissions.CanCreateNotePoints {
				return apperrors.ErrPermissionDenied
			}
			if note.Status == "" {
				note.Status = domain.NoteStatusOpen
			}
			room.NotePoints = append(room.NotePoints, note.Clone())
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, note := range notes {
		s.logAudit(ctx, roomID, domain.AuditActionNotePointCreated, note.CreatedBy, note.ID.String(), map[string]interface{}{
			"type": note.Type,
		})
	}
	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return nil
}

func (s *dealRoomService) UpdateNotePoint(ctx context.Context, roomID, noteID uuid.UUID, actorID string, update NotePointUpdate) (*domain.NotePoint, error) {
	if update.Status != nil && !domain.IsValidNoteStatus(*update.Status) {
		return nil, fmt.Errorf("%w: unknown note point status %q", apperrors.ErrBadRequest, *update.Status)
	}
	if update.Content != nil && strings.TrimSpace(*update.Content) == "" {
		return nil, fmt.Errorf("%w: note point content is empty", apperrors.ErrBadRequest)
	}

	var updated domain.NotePoint
	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		if !room.IsMember(actorID) {
			return apperrors.ErrAccessDenied
		}
		note := room.NotePoint(noteID)
		if note == nil {
			return apperrors.ErrNotePointNotFound
		}

		if update.Status != nil {
			note.Status = *update.Status
		}
		if update.Content != nil {
			note.Content = strings.TrimSpace(*update.Content)
		}
		if update.AssignedTo != nil {
			note.AssignedTo = *update.AssignedTo
		}
		note.UpdatedAt = s.clock.Now()
		updated = note.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, roomID, domain.AuditActionNotePointUpdated, actorID, noteID.String(), map[string]interface{}{
		"status": updated.Status,
	})
	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return &updated, nil
}

func (s *dealRoomService) RenameRoom(ctx context.Context, roomID uuid.UUID, actorID, name string) (*domain.DealRoom, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxRoomNameLength {
		return nil, fmt.Errorf("%w: room name must be 1-%d characters", apperrors.ErrBadRequest, maxRoomNameLength)
	}

	var previous string
	room, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		actor := room.Member(actorID)
		if actor == nil || !actor.Permissions.CanRename {
			return apperrors.ErrPermissionDenied
		}
		previous = room.Name
		room.Name = name
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, roomID, domain.AuditActionRoomRenamed, actorID, roomID.String(), map[string]interface{}{
		"old_name": previous,
		"new_name": name,
	})
	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return room, nil
}

func (s *dealRoomService) ArchiveRoom(ctx context.Context, roomID uuid.UUID, actorID string) error {
	_, err := s.dealRoomRepo.Update(ctx, roomID, func(room *domain.DealRoom) error {
		actor := room.Member(actorID)
		if actor == nil || actor.Role != domain.MemberRoleOwner {
			return apperrors.ErrPermissionDenied
		}
		if room.Status == domain.DealRoomStatusArchived {
			return apperrors.ErrDealRoomArchived
		}
		room.Status = domain.DealRoomStatusArchived
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Deal room archived", "room_id", roomID, "actor_id", actorID)

	s.hooksMu.RLock()
	hooks := append([]func(uuid.UUID){}, s.archiveHooks...)
	s.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(roomID)
	}

	s.logAudit(ctx, roomID, domain.AuditActionRoomArchived, actorID, roomID.String(), nil)
	s.publish(ctx, roomID, realtime.EventRoomUpdated)
	return nil
}

func (s *dealRoomService) OnArchive(fn func(roomID uuid.UUID)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.archiveHooks = append(s.archiveHooks, fn)
}

func (s *dealRoomService) SubscribeToDealRoom(ctx context.Context, roomID uuid.UUID, callback func(room *domain.DealRoom)) (func(), error) {
	if _, err := s.dealRoomRepo.GetByID(ctx, roomID); err != nil {
		return nil, err
	}

	return s.broker.Subscribe(ctx, roomID, func(event realtime.Event) {
		room, err := s.dealRoomRepo.GetByID(ctx, roomID)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("Failed to load deal room for subscriber", "room_id", roomID, "error", err)
			}
			return
		}
		callback(room)
	})
}

func (s *dealRoomService) postSystemMessage(ctx context.Context, roomID uuid.UUID, senderID, senderName, content string) {
	_, err := s.AddMessage(ctx, roomID, NewMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Type:       domain.MessageTypeSystem,
	})
	if err != nil {
		s.log.Warn("Failed to post system message", "room_id", roomID, "error", err)
	}
}

// logAudit - ошибка аудита не откатывает основную операцию
func (s *dealRoomService) logAudit(ctx context.Context, roomID uuid.UUID, action, actorID, targetID string, details map[string]interface{}) {
	if err := s.audit.LogEvent(ctx, roomID, action, actorID, targetID, details); err != nil {
		s.log.Warn("Failed to write audit entry", "room_id", roomID, "action", action, "error", err)
	}
}

func (s *dealRoomService) publish(ctx context.Context, roomID uuid.UUID, kind string) {
	event := realtime.Event{RoomID: roomID, Kind: kind, At: s.clock.Now()}
	if err := s.broker.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish room event", "room_id", roomID, "kind", kind, "error", err)
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
