package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry хранится внутри документа комнаты
type AuditEntry struct {
	ID        uuid.UUID              `json:"id"`
	Action    string                 `json:"action"`
	ActorID   string                 `json:"actor_id"`
	TargetID  string                 `json:"target_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	AuditActionRoomCreated        = "room_created"
	AuditActionRoomRenamed        = "room_renamed"
	AuditActionRoomArchived       = "room_archived"
	AuditActionMessageSent        = "message_sent"
	AuditActionMessageEdited      = "message_edited"
	AuditActionMemberAdded        = "member_added"
	AuditActionInvitationSent     = "team_invitation_sent"
	AuditActionInvitationAccepted = "team_invitation_accepted"
	AuditActionNotePointCreated   = "note_point_created"
	AuditActionNotePointUpdated   = "note_point_updated"
	AuditActionCallStarted        = "call_started"
	AuditActionCallEnded          = "call_ended"
)

func (e AuditEntry) Clone() AuditEntry {
	if e.Details != nil {
		details := make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			details[k] = v
		}
		e.Details = details
	}
	return e
}
