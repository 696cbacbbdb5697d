package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
)

// Invitation - приглашение в команду одной из сторон deal room по 8-символьному коду
type Invitation struct {
	ID          uuid.UUID   `json:"id"`
	Code        string      `json:"code"`
	RoomID      uuid.UUID   `json:"room_id"`
	RoomName    string      `json:"room_name"`
	Email       string      `json:"email"`
	InviterID   string      `json:"inviter_id"`
	InviterName string      `json:"inviter_name"`
	Role        string      `json:"role"`
	TeamType    string      `json:"team_type"`
	Permissions Permissions `json:"permissions"`
	Status      string      `json:"status"`
	ExpiresAt   time.Time   `json:"expires_at"`
	AcceptedAt  *time.Time  `json:"accepted_at,omitempty"`
	AcceptedBy  string      `json:"accepted_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// InvitationPermissions - снимок прав, который получит принявший приглашение
func InvitationPermissions(role string) Permissions {
	return Permissions{
		CanManageFiles:      true,
		CanStartCalls:       true,
		CanCreateNotePoints: true,
		CanModerate:         role == MemberRoleAdmin,
	}
}
