package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"
)

func TestAnalyzeMessageStoresDecisionNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	msg, err := env.services.DealRoom.AddMessage(ctx, room.ID, NewMessage{
		SenderID:   "founder-1",
		SenderName: "Alice",
		Content:    "We need to decide on the token allocation by Friday. Alice Smith will circulate the revised cap table to the whole team.",
	})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	notes, err := env.services.Assistant.AnalyzeMessage(ctx, room.ID, msg)
	if err != nil {
		t.Fatalf("AnalyzeMessage() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Type != domain.NoteTypeDecision {
		t.Fatalf("notes = %+v, want one decision", notes)
	}

	stored := env.room(t, room.ID).NotePoints
	if len(stored) != 1 || stored[0].ID != notes[0].ID || !strings.HasPrefix(stored[0].Content, "Decision made: ") {
		t.Errorf("stored notes = %+v", stored)
	}

	cached, err := env.services.Assistant.GetMessageAnalysis(ctx, msg.ID.String())
	if err != nil {
		t.Fatalf("GetMessageAnalysis() error = %v", err)
	}
	if cached.MessageID != msg.ID.String() || cached.Confidence <= 0.6 || !cached.AnalyzedAt.Equal(testStart) {
		t.Errorf("cached analysis = %+v", cached)
	}
}

func TestAnalyzeMessageBelowThresholdStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	msg, _ := env.services.DealRoom.AddMessage(ctx, room.ID, NewMessage{SenderID: "vc-1", SenderName: "Bob", Content: "Hard to decide..."})
	notes, err := env.services.Assistant.AnalyzeMessage(ctx, room.ID, msg)
	if err != nil {
		t.Fatalf("AnalyzeMessage() error = %v", err)
	}
	if notes != nil {
		t.Errorf("notes = %+v, want nil", notes)
	}
	if n := len(env.room(t, room.ID).NotePoints); n != 0 {
		t.Errorf("stored notes = %d, want 0", n)
	}

	// Анализ кэшируется даже без note points
	if _, err := env.services.Assistant.GetMessageAnalysis(ctx, msg.ID.String()); err != nil {
		t.Errorf("GetMessageAnalysis() error = %v", err)
	}
}

func TestAnalyzeMessageSkipsBotAndNonText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	welcome := env.room(t, room.ID).Messages[0]
	if notes, err := env.services.Assistant.AnalyzeMessage(ctx, room.ID, &welcome); err != nil || notes != nil {
		t.Errorf("AnalyzeMessage(system) = %v, %v", notes, err)
	}

	botText := &domain.Message{SenderID: domain.BotUserID, Type: domain.MessageTypeText, Content: "We decided to launch the milestone"}
	if notes, err := env.services.Assistant.AnalyzeMessage(ctx, room.ID, botText); err != nil || notes != nil {
		t.Errorf("AnalyzeMessage(bot) = %v, %v", notes, err)
	}

	if _, err := env.services.Assistant.GetMessageAnalysis(ctx, welcome.ID.String()); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetMessageAnalysis() error = %v, want ErrNotFound", err)
	}
}

func TestGenerateDailySummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	for _, m := range []NewMessage{
		{SenderID: "founder-1", SenderName: "Alice", Content: "Sharing the financial model for the funding round"},
		{SenderID: "vc-1", SenderName: "Bob", Content: "Thanks, reviewing the budget now"},
	} {
		if _, err := env.services.DealRoom.AddMessage(ctx, room.ID, m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	msg, err := env.services.Assistant.GenerateDailySummary(ctx, room.ID)
	if err != nil {
		t.Fatalf("GenerateDailySummary() error = %v", err)
	}
	if msg.Type != domain.MessageTypeSummary || msg.SenderID != domain.BotUserID {
		t.Errorf("message = %+v", msg)
	}
	if msg.Metadata == nil || msg.Metadata.SummaryType != domain.SummaryTypeDaily {
		t.Errorf("Metadata = %+v", msg.Metadata)
	}
	for _, want := range []string{"📊 Daily Summary - Mar 15, 2024", "• 2 messages exchanged", "• 2 active participants"} {
		if !strings.Contains(msg.Content, want) {
			t.Errorf("summary missing %q:\n%s", want, msg.Content)
		}
	}
	if env.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", env.notifier.count())
	}
}

func TestGenerateWeeklySummaryWithoutActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	env.clock.Advance(time.Hour)
	msg, err := env.services.Assistant.GenerateWeeklySummary(ctx, room.ID)
	if err != nil {
		t.Fatalf("GenerateWeeklySummary() error = %v", err)
	}
	if !strings.Contains(msg.Content, "• No activity this week") {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Metadata == nil || msg.Metadata.SummaryType != domain.SummaryTypeWeekly {
		t.Errorf("Metadata = %+v", msg.Metadata)
	}
}
