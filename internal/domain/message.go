package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText      = "text"
	MessageTypeImage     = "image"
	MessageTypeFile      = "file"
	MessageTypeCallStart = "call_start"
	MessageTypeCallEnd   = "call_end"
	MessageTypeSummary   = "summary"
	MessageTypeSystem    = "system"
)

// Служебные сообщения (приглашения, звонки) идут от имени системы, а не бота
const (
	SystemSenderID   = "system"
	SystemSenderName = "System"
)

const (
	SummaryTypeDaily  = "daily"
	SummaryTypeWeekly = "weekly"
	SummaryTypeCall   = "call"
)

type Message struct {
	ID         uuid.UUID         `json:"id"`
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	Content    string            `json:"content"`
	Type       string            `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	Reactions  map[string]string `json:"reactions"`
	Pinned     bool              `json:"pinned"`
	Edited     bool              `json:"edited"`
	EditedAt   *time.Time        `json:"edited_at,omitempty"`
	FileURL    string            `json:"file_url,omitempty"`
	FileName   string            `json:"file_name,omitempty"`
	FileSize   int64             `json:"file_size,omitempty"`
	Metadata   *MessageMetadata  `json:"metadata,omitempty"`
}

type MessageMetadata struct {
	CallID       string `json:"call_id,omitempty"`
	CallType     string `json:"call_type,omitempty"`
	CallDuration int    `json:"call_duration"`
	EndReason    string `json:"end_reason,omitempty"`
	SummaryType  string `json:"summary_type,omitempty"`
}

func (m Message) Clone() Message {
	if m.Reactions != nil {
		reactions := make(map[string]string, len(m.Reactions))
		for k, v := range m.Reactions {
			reactions[k] = v
		}
		m.Reactions = reactions
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		m.EditedAt = &t
	}
	if m.Metadata != nil {
		md := *m.Metadata
		m.Metadata = &md
	}
	return m
}
