package analysis

import (
	"time"

	"deal_room/internal/domain"

	"github.com/google/uuid"
)

const previewLength = 100

// ExtractNotePoints строит кандидатов в note points по сработавшим правилам.
// Кандидаты не сохраняются, решение принимает ShouldPersist.
func (a *Analyzer) ExtractNotePoints(msg *domain.Message, analysis *domain.MessageAnalysis, now time.Time) []domain.NotePoint {
	preview := Preview(msg.Content, previewLength)

	var notes []domain.NotePoint
	for _, rule := range a.rules.Notes {
		if !rule.Matches(analysis, msg.Content) {
			continue
		}

		note := domain.NotePoint{
			ID:        uuid.New(),
			Type:      rule.Type,
			Content:   rule.Prefix + ": " + preview,
			Status:    domain.NoteStatusOpen,
			CreatedBy: domain.BotUserID,
			Source: &domain.NoteSource{
				Type:      domain.NoteSourceChat,
				MessageID: msg.ID.String(),
			},
			Tags:      []string{"auto", rule.Type},
			Followers: []string{msg.SenderID},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if rule.AssignToSender {
			note.AssignedTo = msg.SenderID
		}
		notes = append(notes, note)
	}

	return notes
}

// ShouldPersist - порог уверенности и хотя бы один кандидат
func ShouldPersist(analysis *domain.MessageAnalysis, candidates []domain.NotePoint) bool {
	return analysis.Confidence > ConfidenceThreshold && len(candidates) > 0
}

// Preview обрезает текст до n символов и добавляет "..." если текст длиннее
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}
