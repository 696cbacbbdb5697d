package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NoteTypeDecision  = "decision"
	NoteTypeAction    = "action"
	NoteTypeRisk      = "risk"
	NoteTypeQuestion  = "question"
	NoteTypeMilestone = "milestone"
)

const (
	NoteStatusOpen       = "open"
	NoteStatusInProgress = "in_progress"
	NoteStatusDone       = "done"
)

const (
	NoteSourceChat = "chat"
	NoteSourceCall = "call"
)

type NotePoint struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	Content    string      `json:"content"`
	Status     string      `json:"status"`
	CreatedBy  string      `json:"created_by"`
	AssignedTo string      `json:"assigned_to,omitempty"`
	Source     *NoteSource `json:"source,omitempty"`
	Tags       []string    `json:"tags"`
	Followers  []string    `json:"followers"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NoteSource ссылается на сообщение или звонок, из которого получен note point
type NoteSource struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

func IsValidNoteType(t string) bool {
	switch t {
	case NoteTypeDecision, NoteTypeAction, NoteTypeRisk, NoteTypeQuestion, NoteTypeMilestone:
		return true
	}
	return false
}

func IsValidNoteStatus(s string) bool {
	switch s {
	case NoteStatusOpen, NoteStatusInProgress, NoteStatusDone:
		return true
	}
	return false
}

func (n NotePoint) Clone() NotePoint {
	n.Tags = append([]string(nil), n.Tags...)
	n.Followers = append([]string(nil), n.Followers...)
	if n.Source != nil {
		s := *n.Source
		n.Source = &s
	}
	return n
}
