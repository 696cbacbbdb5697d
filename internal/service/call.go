package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"deal_room/internal/analysis"
	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const callTaskTimeout = 30 * time.Second

var errCallServiceClosed = errors.New("call service is shut down")

// Предупреждения до окончания звонка
var callWarnings = []time.Duration{5 * time.Minute, time.Minute}

// CallSummarizer публикует сводку по завершенному звонку
type CallSummarizer interface {
	GenerateCallSummary(ctx context.Context, session *domain.CallSession) error
}

type CallService interface {
	StartCall(ctx context.Context, roomID uuid.UUID, callType string, participants []string) (*domain.CallSession, error)
	EndCall(ctx context.Context, roomID uuid.UUID, reason string) (*domain.CallSession, error)
	JoinCall(ctx context.Context, roomID uuid.UUID, userID string) (*domain.CallSession, error)
	GetActiveCall(roomID uuid.UUID) (*domain.CallSession, bool)
	// GetRemainingCallTime возвращает оставшиеся секунды, 0 если звонка нет
	GetRemainingCallTime(roomID uuid.UUID) int
	IsUserInCall(userID string) bool
	// Shutdown останавливает все таймеры и отложенные сводки
	Shutdown()
}

type activeCall struct {
	// emit упорядочивает служебные сообщения одного звонка
	emit sync.Mutex

	mu      sync.Mutex
	session domain.CallSession
	ended   bool
	warned  map[time.Duration]bool
	timers  []clockwork.Timer
}

type pendingSummary struct {
	roomID uuid.UUID
	timer  clockwork.Timer
}

type callService struct {
	rooms        DealRoomService
	audit        AuditService
	summarizer   CallSummarizer
	clock        clockwork.Clock
	maxDuration  time.Duration
	summaryDelay time.Duration
	log          logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	calls     map[uuid.UUID]*activeCall
	summaries map[uuid.UUID]pendingSummary
	closed    bool
}

func NewCallService(
	rooms DealRoomService,
	audit AuditService,
	summarizer CallSummarizer,
	clock clockwork.Clock,
	maxDuration, summaryDelay time.Duration,
	log logger.Logger,
) CallService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &callService{
		rooms:        rooms,
		audit:        audit,
		summarizer:   summarizer,
		clock:        clock,
		maxDuration:  maxDuration,
		summaryDelay: summaryDelay,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
		calls:        make(map[uuid.UUID]*activeCall),
		summaries:    make(map[uuid.UUID]pendingSummary),
	}

	rooms.OnArchive(s.cancelRoom)
	return s
}

func (s *callService) StartCall(ctx context.Context, roomID uuid.UUID, callType string, participants []string) (*domain.CallSession, error) {
	if !domain.IsValidCallType(callType) {
		return nil, fmt.Errorf("%w: unknown call type %q", apperrors.ErrBadRequest, callType)
	}
	participants = uniqueParticipants(participants)
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: call needs at least one participant", apperrors.ErrBadRequest)
	}

	room, err := s.rooms.GetDealRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.DealRoomStatusActive {
		return nil, apperrors.ErrDealRoomArchived
	}
	if !room.Settings.AllowCalls {
		return nil, apperrors.ErrCallsDisabled
	}

	// Инициатор звонка - первый участник
	initiator := room.Member(participants[0])
	if initiator == nil || !initiator.Permissions.CanStartCalls {
		return nil, apperrors.ErrPermissionDenied
	}

	call, err := s.register(roomID, callType, participants)
	if err != nil {
		return nil, err
	}
	call.mu.Lock()
	session := call.snapshot(s.clock.Now())
	call.mu.Unlock()

	s.log.Info("Call started", "room_id", roomID, "call_id", session.ID, "type", callType, "participants", len(participants))

	s.postCallMessage(roomID, domain.MessageTypeCallStart,
		fmt.Sprintf("%s call started with %d participants.", analysis.CallTypeLabel(callType), len(participants)),
		&domain.MessageMetadata{CallID: session.ID.String(), CallType: callType})
	call.emit.Unlock()

	s.logAudit(roomID, domain.AuditActionCallStarted, participants[0], session.ID.String(), map[string]interface{}{
		"type":         callType,
		"participants": len(participants),
	})

	return &session, nil
}

// register сохраняет звонок и планирует предупреждения и завершение по лимиту.
// Звонок возвращается с захваченным emit: сообщение о начале должно уйти раньше таймерных.
func (s *callService) register(roomID uuid.UUID, callType string, participants []string) (*activeCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errCallServiceClosed
	}
	if _, ok := s.calls[roomID]; ok {
		return nil, apperrors.ErrCallAlreadyActive
	}

	call := &activeCall{
		session: domain.CallSession{
			ID:           uuid.New(),
			RoomID:       roomID,
			Type:         callType,
			Participants: participants,
			StartTime:    s.clock.Now(),
			MaxDuration:  int(s.maxDuration / time.Second),
			Status:       domain.CallStatusActive,
		},
		warned: make(map[time.Duration]bool),
	}
	call.emit.Lock()

	call.mu.Lock()
	for _, remaining := range callWarnings {
		if s.maxDuration <= remaining {
			continue
		}
		remaining := remaining
		call.timers = append(call.timers, s.clock.AfterFunc(s.maxDuration-remaining, func() {
			s.warn(call, remaining)
		}))
	}
	call.timers = append(call.timers, s.clock.AfterFunc(s.maxDuration, func() {
		s.expire(call)
	}))
	call.mu.Unlock()

	s.calls[roomID] = call
	return call, nil
}

func (s *callService) warn(call *activeCall, remaining time.Duration) {
	call.emit.Lock()
	defer call.emit.Unlock()

	call.mu.Lock()
	if call.ended || call.warned[remaining] {
		call.mu.Unlock()
		return
	}
	call.warned[remaining] = true
	session := call.snapshot(s.clock.Now())
	call.mu.Unlock()

	s.postCallMessage(session.RoomID, domain.MessageTypeSystem, warningText(remaining),
		&domain.MessageMetadata{CallID: session.ID.String(), CallType: session.Type, CallDuration: session.Duration})
}

func warningText(remaining time.Duration) string {
	minutes := int(remaining / time.Minute)
	if minutes == 1 {
		return "⚠️ 1 minute remaining in call."
	}
	return fmt.Sprintf("⚠️ %d minutes remaining in call.", minutes)
}

func (s *callService) expire(call *activeCall) {
	s.mu.Lock()
	if s.calls[call.session.RoomID] != call {
		s.mu.Unlock()
		return
	}
	delete(s.calls, call.session.RoomID)
	s.mu.Unlock()

	if _, err := s.finish(call, domain.CallEndReasonTimeLimit); err != nil {
		s.log.Warn("Failed to end call on time limit", "room_id", call.session.RoomID, "error", err)
	}
}

func (s *callService) EndCall(ctx context.Context, roomID uuid.UUID, reason string) (*domain.CallSession, error) {
	if !domain.IsValidEndReason(reason) {
		return nil, fmt.Errorf("%w: unknown end reason %q", apperrors.ErrBadRequest, reason)
	}

	s.mu.Lock()
	call, ok := s.calls[roomID]
	if ok {
		delete(s.calls, roomID)
	}
	s.mu.Unlock()

	if !ok {
		return nil, apperrors.ErrNoActiveCall
	}
	return s.finish(call, reason)
}

// finish вызывается ровно один раз для звонка, уже удаленного из s.calls
func (s *callService) finish(call *activeCall, reason string) (*domain.CallSession, error) {
	call.emit.Lock()
	defer call.emit.Unlock()

	call.mu.Lock()
	if call.ended {
		call.mu.Unlock()
		return nil, apperrors.ErrNoActiveCall
	}
	call.ended = true
	for _, t := range call.timers {
		t.Stop()
	}

	now := s.clock.Now()
	call.session.Duration = s.elapsed(call.session.StartTime, now)
	call.session.EndTime = &now
	call.session.Status = domain.CallStatusEnded
	call.session.EndReason = reason
	session := call.snapshot(now)
	call.mu.Unlock()

	s.log.Info("Call ended", "room_id", session.RoomID, "call_id", session.ID, "reason", reason, "duration", session.Duration)

	text := "Call ended."
	if reason == domain.CallEndReasonTimeLimit {
		text = fmt.Sprintf("Call ended automatically at %s (limit reached).", analysis.FormatCallTime(session.MaxDuration))
	}
	s.postCallMessage(session.RoomID, domain.MessageTypeCallEnd, text, &domain.MessageMetadata{
		CallID:       session.ID.String(),
		CallType:     session.Type,
		CallDuration: session.Duration,
		EndReason:    reason,
	})

	s.scheduleSummary(session)

	s.logAudit(session.RoomID, domain.AuditActionCallEnded, domain.SystemSenderID, session.ID.String(), map[string]interface{}{
		"reason":   reason,
		"duration": session.Duration,
		"type":     session.Type,
	})

	return &session, nil
}

func (s *callService) scheduleSummary(session domain.CallSession) {
	if s.summarizer == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	timer := s.clock.AfterFunc(s.summaryDelay, func() {
		s.runSummary(session)
	})
	s.summaries[session.ID] = pendingSummary{roomID: session.RoomID, timer: timer}
}

func (s *callService) runSummary(session domain.CallSession) {
	s.mu.Lock()
	if _, ok := s.summaries[session.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.summaries, session.ID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, callTaskTimeout)
	defer cancel()

	if err := s.summarizer.GenerateCallSummary(ctx, &session); err != nil {
		s.log.Error("Failed to generate call summary", "room_id", session.RoomID, "call_id", session.ID, "error", err)
	}
}

func (s *callService) JoinCall(ctx context.Context, roomID uuid.UUID, userID string) (*domain.CallSession, error) {
	s.mu.Lock()
	call, ok := s.calls[roomID]
	s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNoActiveCall
	}

	call.mu.Lock()
	defer call.mu.Unlock()

	if call.ended {
		return nil, apperrors.ErrNoActiveCall
	}
	if !call.session.HasParticipant(userID) {
		call.session.Participants = append(call.session.Participants, userID)
	}
	session := call.snapshot(s.clock.Now())
	return &session, nil
}

func (s *callService) GetActiveCall(roomID uuid.UUID) (*domain.CallSession, bool) {
	s.mu.Lock()
	call, ok := s.calls[roomID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	call.mu.Lock()
	defer call.mu.Unlock()

	if call.ended {
		return nil, false
	}
	session := call.snapshot(s.clock.Now())
	return &session, true
}

func (s *callService) GetRemainingCallTime(roomID uuid.UUID) int {
	session, ok := s.GetActiveCall(roomID)
	if !ok {
		return 0
	}
	remaining := session.MaxDuration - session.Duration
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *callService) IsUserInCall(userID string) bool {
	s.mu.Lock()
	calls := make([]*activeCall, 0, len(s.calls))
	for _, call := range s.calls {
		calls = append(calls, call)
	}
	s.mu.Unlock()

	for _, call := range calls {
		call.mu.Lock()
		in := !call.ended && call.session.HasParticipant(userID)
		call.mu.Unlock()
		if in {
			return true
		}
	}
	return false
}

func (s *callService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	calls := s.calls
	s.calls = make(map[uuid.UUID]*activeCall)
	for id, pending := range s.summaries {
		pending.timer.Stop()
		delete(s.summaries, id)
	}
	s.mu.Unlock()

	for _, call := range calls {
		call.stop()
	}
	s.cancel()

	s.log.Info("Call service stopped", "active_calls", len(calls))
}

// cancelRoom снимает звонок и отложенные сводки архивированной комнаты без записи сообщений
func (s *callService) cancelRoom(roomID uuid.UUID) {
	s.mu.Lock()
	call := s.calls[roomID]
	delete(s.calls, roomID)
	for id, pending := range s.summaries {
		if pending.roomID == roomID {
			pending.timer.Stop()
			delete(s.summaries, id)
		}
	}
	s.mu.Unlock()

	if call != nil {
		call.stop()
		s.log.Info("Call cancelled for archived room", "room_id", roomID, "call_id", call.session.ID)
	}
}

// elapsed всегда считается от времени начала, чтобы задержки таймеров не накапливались
func (s *callService) elapsed(start, now time.Time) int {
	seconds := int(now.Sub(start) / time.Second)
	if limit := int(s.maxDuration / time.Second); seconds > limit {
		return limit
	}
	if seconds < 0 {
		return 0
	}
	return seconds
}

func (s *callService) postCallMessage(roomID uuid.UUID, msgType, content string, metadata *domain.MessageMetadata) {
	ctx, cancel := context.WithTimeout(s.ctx, callTaskTimeout)
	defer cancel()

	_, err := s.rooms.AddMessage(ctx, roomID, NewMessage{
		SenderID:   domain.SystemSenderID,
		SenderName: domain.SystemSenderName,
		Content:    content,
		Type:       msgType,
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("Failed to post call message", "room_id", roomID, "type", msgType, "error", err)
	}
}

func (s *callService) logAudit(roomID uuid.UUID, action, actorID, targetID string, details map[string]interface{}) {
	ctx, cancel := context.WithTimeout(s.ctx, callTaskTimeout)
	defer cancel()

	if err := s.audit.LogEvent(ctx, roomID, action, actorID, targetID, details); err != nil {
		s.log.Warn("Failed to write audit entry", "room_id", roomID, "action", action, "error", err)
	}
}

// snapshot возвращает копию сессии; вызывать под call.mu
func (c *activeCall) snapshot(now time.Time) domain.CallSession {
	session := c.session
	session.Participants = append([]string(nil), c.session.Participants...)
	if session.Status == domain.CallStatusActive {
		seconds := int(now.Sub(session.StartTime) / time.Second)
		if seconds > session.MaxDuration {
			seconds = session.MaxDuration
		}
		session.Duration = seconds
	}
	return session
}

func (c *activeCall) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ended = true
	for _, t := range c.timers {
		t.Stop()
	}
}

func uniqueParticipants(participants []string) []string {
	seen := make(map[string]bool, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
