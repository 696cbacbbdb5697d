package service

import (
	"deal_room/internal/analysis"
	"deal_room/internal/config"
	"deal_room/internal/notify"
	"deal_room/internal/realtime"
	"deal_room/internal/repository"
	"deal_room/pkg/logger"

	"github.com/jonboulle/clockwork"
)

type Services struct {
	DealRoom  DealRoomService
	Call      CallService
	Assistant AssistantService
	Media     MediaService
	RateLimit RateLimitService
	Audit     AuditService
}

// Dependencies - внешние компоненты, общие для всех сервисов
type Dependencies struct {
	Broker   realtime.Broker
	Notifier notify.Notifier
	Analyzer *analysis.Analyzer
	Clock    clockwork.Clock
}

func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config, log logger.Logger) *Services {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analysis.NewAnalyzer(nil)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop()
	}

	audit := NewAuditService(repos.Audit, deps.Clock, log)
	dealRoom := NewDealRoomService(repos.DealRoom, repos.Invitation, audit, deps.Broker, deps.Clock, cfg.DealRoom, log)
	assistant := NewAssistantService(dealRoom, repos.Analysis, deps.Analyzer, deps.Notifier, deps.Clock, cfg.Analysis.CacheTTL, log)
	call := NewCallService(dealRoom, audit, assistant, deps.Clock, cfg.DealRoom.CallMaxDuration, cfg.DealRoom.SummaryDelay, log)

	return &Services{
		DealRoom:  dealRoom,
		Call:      call,
		Assistant: assistant,
		Media:     NewMediaService(dealRoom, call, cfg.LiveKit, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Audit:     audit,
	}
}

// Shutdown останавливает фоновые задачи сервисов
func (s *Services) Shutdown() {
	s.Call.Shutdown()
}
