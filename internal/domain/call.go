package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	CallTypeVoice = "voice"
	CallTypeVideo = "video"
)

const (
	CallStatusActive = "active"
	CallStatusEnded  = "ended"
)

const (
	CallEndReasonManual    = "manual"
	CallEndReasonTimeLimit = "time_limit"
	CallEndReasonError     = "error"
)

// CallSession живет только в памяти процесса; в комнату пишутся лишь сообщения о звонке
type CallSession struct {
	ID           uuid.UUID  `json:"id"`
	RoomID       uuid.UUID  `json:"room_id"`
	Type         string     `json:"type"`
	Participants []string   `json:"participants"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Duration     int        `json:"duration"`
	MaxDuration  int        `json:"max_duration"`
	Status       string     `json:"status"`
	EndReason    string     `json:"end_reason,omitempty"`
}

func IsValidCallType(t string) bool {
	return t == CallTypeVoice || t == CallTypeVideo
}

func IsValidEndReason(r string) bool {
	switch r {
	case CallEndReasonManual, CallEndReasonTimeLimit, CallEndReasonError:
		return true
	}
	return false
}

func (s *CallSession) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
