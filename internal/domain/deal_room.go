package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Автоматический участник каждой deal room
const (
	BotUserID = "raftai-bot"
	BotName   = "RaftAI"
	BotEmail  = "raftai@cryptorafts.com"
)

const (
	DealRoomTypeDeal = "deal"

	DealRoomStatusActive   = "active"
	DealRoomStatusArchived = "archived"
)

const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

const (
	TeamTypeFounder = "founder"
	TeamTypeVC      = "vc"
)

const (
	PrivacyTypePrivate = "private"
	PrivacyTypeOpen    = "open"
)

type DealRoom struct {
	ID                 uuid.UUID    `json:"id"`
	Name               string       `json:"name"`
	Type               string       `json:"type"`
	ProjectID          string       `json:"project_id"`
	FounderID          string       `json:"founder_id"`
	FounderName        string       `json:"founder_name"`
	FounderLogo        string       `json:"founder_logo,omitempty"`
	VCID               string       `json:"vc_id"`
	VCName             string       `json:"vc_name"`
	VCLogo             string       `json:"vc_logo,omitempty"`
	Status             string       `json:"status"`
	Members            []Member     `json:"members"`
	Messages           []Message    `json:"messages"`
	NotePoints         []NotePoint  `json:"note_points"`
	AuditLog           []AuditEntry `json:"audit_log"`
	PendingInvitations []string     `json:"pending_invitations"`
	Settings           RoomSettings `json:"settings"`
	Privacy            *RoomPrivacy `json:"privacy,omitempty"`
	TeamSettings       TeamSettings `json:"team_settings"`
	LastActivity       time.Time    `json:"last_activity"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

type Member struct {
	UserID       string               `json:"user_id"`
	Name         string               `json:"name"`
	Email        string               `json:"email,omitempty"`
	Role         string               `json:"role"`
	TeamType     string               `json:"team_type,omitempty"`
	Permissions  Permissions          `json:"permissions"`
	Notification NotificationSettings `json:"notification_settings"`
	IsBot        bool                 `json:"is_bot,omitempty"`
	InvitedBy    string               `json:"invited_by,omitempty"`
	JoinedAt     time.Time            `json:"joined_at"`
}

// Permissions фиксируются при добавлении участника и не пересчитываются при смене роли
type Permissions struct {
	CanInvite           bool `json:"can_invite"`
	CanInviteTeam       bool `json:"can_invite_team"`
	CanRemove           bool `json:"can_remove"`
	CanRename           bool `json:"can_rename"`
	CanManageFiles      bool `json:"can_manage_files"`
	CanStartCalls       bool `json:"can_start_calls"`
	CanCreateNotePoints bool `json:"can_create_note_points"`
	CanModerate         bool `json:"can_moderate"`
}

type NotificationSettings struct {
	Mute        bool `json:"mute"`
	Mentions    bool `json:"mentions"`
	AllMessages bool `json:"all_messages"`
}

type RoomSettings struct {
	AllowFileUploads bool     `json:"allow_file_uploads"`
	AllowCalls       bool     `json:"allow_calls"`
	MaxFileSize      int64    `json:"max_file_size"`
	AllowedFileTypes []string `json:"allowed_file_types"`
}

type RoomPrivacy struct {
	Type         string   `json:"type"`
	IsPrivate    bool     `json:"is_private"`
	AllowedUsers []string `json:"allowed_users"`
}

type TeamSettings struct {
	MaxTeamMembers int      `json:"max_team_members"`
	AllowedRoles   []string `json:"allowed_roles"`
}

// DefaultAllowedFileTypes - типы файлов, разрешенные по умолчанию
var DefaultAllowedFileTypes = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"jpg", "jpeg", "png", "gif", "mp4", "mov",
}

// OwnerPermissions - права основателя и VC
func OwnerPermissions() Permissions {
	return Permissions{
		CanInvite:           true,
		CanInviteTeam:       true,
		CanRemove:           true,
		CanRename:           true,
		CanManageFiles:      true,
		CanStartCalls:       true,
		CanCreateNotePoints: true,
		CanModerate:         true,
	}
}

// BotPermissions - бот модерирует и создает note points, но не звонит и не приглашает
func BotPermissions() Permissions {
	return Permissions{
		CanCreateNotePoints: true,
		CanModerate:         true,
	}
}

// MemberPermissions - права по умолчанию для обычного участника
func MemberPermissions() Permissions {
	return Permissions{
		CanManageFiles:      true,
		CanStartCalls:       true,
		CanCreateNotePoints: true,
	}
}

// RoomName возвращает имя комнаты в формате "FOUNDER / VC"
func RoomName(founderName, vcName string) string {
	return strings.ToUpper(strings.TrimSpace(founderName)) + " / " + strings.ToUpper(strings.TrimSpace(vcName))
}

func (r *DealRoom) Member(userID string) *Member {
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			return &r.Members[i]
		}
	}
	return nil
}

func (r *DealRoom) IsMember(userID string) bool {
	return r.Member(userID) != nil
}

// IsPrivileged - основатель, VC или участник из allow-list
func (r *DealRoom) IsPrivileged(userID string) bool {
	if userID == r.FounderID || userID == r.VCID {
		return true
	}
	if r.Privacy != nil {
		for _, id := range r.Privacy.AllowedUsers {
			if id == userID {
				return true
			}
		}
	}
	return false
}

func (r *DealRoom) TeamSize(teamType string) int {
	n := 0
	for _, m := range r.Members {
		if m.TeamType == teamType {
			n++
		}
	}
	return n
}

func (r *DealRoom) Message(messageID uuid.UUID) *Message {
	for i := range r.Messages {
		if r.Messages[i].ID == messageID {
			return &r.Messages[i]
		}
	}
	return nil
}

func (r *DealRoom) NotePoint(noteID uuid.UUID) *NotePoint {
	for i := range r.NotePoints {
		if r.NotePoints[i].ID == noteID {
			return &r.NotePoints[i]
		}
	}
	return nil
}

// Clone возвращает глубокую копию комнаты
func (r *DealRoom) Clone() *DealRoom {
	c := *r
	c.Members = append([]Member(nil), r.Members...)
	c.Messages = make([]Message, len(r.Messages))
	for i := range r.Messages {
		c.Messages[i] = r.Messages[i].Clone()
	}
	c.NotePoints = make([]NotePoint, len(r.NotePoints))
	for i := range r.NotePoints {
		c.NotePoints[i] = r.NotePoints[i].Clone()
	}
	c.AuditLog = make([]AuditEntry, len(r.AuditLog))
	for i := range r.AuditLog {
		c.AuditLog[i] = r.AuditLog[i].Clone()
	}
	c.PendingInvitations = append([]string(nil), r.PendingInvitations...)
	c.Settings.AllowedFileTypes = append([]string(nil), r.Settings.AllowedFileTypes...)
	c.TeamSettings.AllowedRoles = append([]string(nil), r.TeamSettings.AllowedRoles...)
	if r.Privacy != nil {
		p := *r.Privacy
		p.AllowedUsers = append([]string(nil), r.Privacy.AllowedUsers...)
		c.Privacy = &p
	}
	return &c
}
