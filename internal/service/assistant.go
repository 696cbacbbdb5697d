package service

import (
	"context"
	"fmt"
	"time"

	"deal_room/internal/analysis"
	"deal_room/internal/domain"
	"deal_room/internal/notify"
	"deal_room/internal/repository"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const callFollowUpNote = "Review call recording and extract key decisions"

// AssistantService - автоматический участник RaftAI: разбор сообщений и сводки
type AssistantService interface {
	// AnalyzeMessage возвращает сохраненные note points (nil, если порог не пройден)
	AnalyzeMessage(ctx context.Context, roomID uuid.UUID, msg *domain.Message) ([]domain.NotePoint, error)
	GetMessageAnalysis(ctx context.Context, messageID string) (*domain.MessageAnalysis, error)
	GenerateDailySummary(ctx context.Context, roomID uuid.UUID) (*domain.Message, error)
	GenerateWeeklySummary(ctx context.Context, roomID uuid.UUID) (*domain.Message, error)
	GenerateCallSummary(ctx context.Context, session *domain.CallSession) error
}

type assistantService struct {
	rooms        DealRoomService
	analysisRepo repository.AnalysisRepository
	analyzer     *analysis.Analyzer
	notifier     notify.Notifier
	clock        clockwork.Clock
	cacheTTL     time.Duration
	log          logger.Logger
}

func NewAssistantService(
	rooms DealRoomService,
	analysisRepo repository.AnalysisRepository,
	analyzer *analysis.Analyzer,
	notifier notify.Notifier,
	clock clockwork.Clock,
	cacheTTL time.Duration,
	log logger.Logger,
) AssistantService {
	if notifier == nil {
		notifier = notify.Nop()
	}
	return &assistantService{
		rooms:        rooms,
		analysisRepo: analysisRepo,
		analyzer:     analyzer,
		notifier:     notifier,
		clock:        clock,
		cacheTTL:     cacheTTL,
		log:          log,
	}
}

func (s *assistantService) AnalyzeMessage(ctx context.Context, roomID uuid.UUID, msg *domain.Message) ([]domain.NotePoint, error) {
	if msg.Type != domain.MessageTypeText || msg.SenderID == domain.BotUserID {
		return nil, nil
	}

	now := s.clock.Now()
	result := s.analyzer.Analyze(msg.Content)
	result.MessageID = msg.ID.String()
	result.AnalyzedAt = now

	if err := s.analysisRepo.Save(ctx, &result, s.cacheTTL); err != nil {
		s.log.Warn("Failed to cache message analysis", "message_id", result.MessageID, "error", err)
	}

	candidates := s.analyzer.ExtractNotePoints(msg, &result, now)
	if !analysis.ShouldPersist(&result, candidates) {
		s.log.Debug("Message analysis below note threshold", "message_id", result.MessageID,
			"confidence", result.Confidence, "candidates", len(candidates))
		return nil, nil
	}

	if err := s.rooms.AddNotePoints(ctx, roomID, candidates); err != nil {
		s.log.Error("Failed to store extracted note points", "room_id", roomID, "message_id", result.MessageID, "error", err)
		return nil, err
	}

	s.log.Info("Note points extracted", "room_id", roomID, "message_id", result.MessageID, "count", len(candidates))
	return candidates, nil
}

func (s *assistantService) GetMessageAnalysis(ctx context.Context, messageID string) (*domain.MessageAnalysis, error) {
	return s.analysisRepo.Get(ctx, messageID)
}

func (s *assistantService) GenerateDailySummary(ctx context.Context, roomID uuid.UUID) (*domain.Message, error) {
	room, err := s.rooms.GetDealRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.postSummary(ctx, room, domain.SummaryTypeDaily, s.analyzer.DailySummary(room, s.clock.Now()), nil)
}

func (s *assistantService) GenerateWeeklySummary(ctx context.Context, roomID uuid.UUID) (*domain.Message, error) {
	room, err := s.rooms.GetDealRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.postSummary(ctx, room, domain.SummaryTypeWeekly, s.analyzer.WeeklySummary(room, s.clock.Now()), nil)
}

func (s *assistantService) GenerateCallSummary(ctx context.Context, session *domain.CallSession) error {
	room, err := s.rooms.GetDealRoom(ctx, session.RoomID)
	if err != nil {
		return err
	}

	_, err = s.postSummary(ctx, room, domain.SummaryTypeCall, analysis.CallSummary(session), &domain.MessageMetadata{
		CallID:       session.ID.String(),
		CallType:     session.Type,
		CallDuration: session.Duration,
		EndReason:    session.EndReason,
	})
	if err != nil {
		return err
	}

	_, err = s.rooms.AddNotePoint(ctx, session.RoomID, NewNotePoint{
		Type:      domain.NoteTypeAction,
		Content:   callFollowUpNote,
		CreatedBy: domain.BotUserID,
		Source: &domain.NoteSource{
			Type:   domain.NoteSourceCall,
			CallID: session.ID.String(),
		},
		Tags:      []string{"call", "review"},
		Followers: append([]string(nil), session.Participants...),
	})
	if err != nil {
		return fmt.Errorf("add call follow-up note: %w", err)
	}
	return nil
}

func (s *assistantService) postSummary(ctx context.Context, room *domain.DealRoom, summaryType, text string, metadata *domain.MessageMetadata) (*domain.Message, error) {
	if metadata == nil {
		metadata = &domain.MessageMetadata{}
	}
	metadata.SummaryType = summaryType

	msg, err := s.rooms.AddMessage(ctx, room.ID, NewMessage{
		SenderID:   domain.BotUserID,
		SenderName: domain.BotName,
		Content:    text,
		Type:       domain.MessageTypeSummary,
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Error("Failed to post summary", "room_id", room.ID, "type", summaryType, "error", err)
		return nil, err
	}

	// Внешний канал не влияет на результат
	if err := s.notifier.Notify(ctx, room.Name, text); err != nil {
		s.log.Warn("Failed to mirror summary", "room_id", room.ID, "type", summaryType, "error", err)
	}

	return msg, nil
}
