package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"deal_room/internal/config"
	"deal_room/internal/domain"
	"deal_room/internal/realtime"
	"deal_room/internal/repository"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var testStart = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Notify(ctx context.Context, roomName, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, roomName+"\n"+text)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts)
}

type manualClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type testEnv struct {
	services *Services
	repos    *repository.Repositories
	clock    manualClock
	notifier *recordingNotifier
}

func testConfig() *config.Config {
	return &config.Config{
		DealRoom: config.DealRoomConfig{
			CallMaxDuration:  30 * time.Minute,
			SummaryDelay:     2 * time.Second,
			InvitationTTL:    7 * 24 * time.Hour,
			MaxTeamMembers:   10,
			MaxFileSizeBytes: 50 << 20,
		},
		Analysis: config.AnalysisConfig{CacheTTL: 24 * time.Hour},
		LiveKit: config.LiveKitConfig{
			URL:       "ws://livekit:7880",
			APIKey:    "devkey",
			APISecret: "secret-secret-secret-secret-secret",
		},
	}
}

func newTestEnv(t *testing.T, mutate ...func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	log := logger.NewNop()
	env := &testEnv{
		repos:    repository.NewMemoryRepositories(log),
		clock:    clockwork.NewFakeClockAt(testStart),
		notifier: &recordingNotifier{},
	}
	env.services = NewServices(env.repos, Dependencies{
		Broker:   realtime.NewMemoryBroker(),
		Notifier: env.notifier,
		Clock:    env.clock,
	}, cfg, log)

	t.Cleanup(env.services.Shutdown)
	return env
}

func (e *testEnv) createRoom(t *testing.T) *domain.DealRoom {
	t.Helper()

	room, created, err := e.services.DealRoom.CreateDealRoom(context.Background(), CreateDealRoomInput{
		ProjectID:   "project-1",
		FounderID:   "founder-1",
		FounderName: "Alice",
		VCID:        "vc-1",
		VCName:      "Bob",
	})
	if err != nil {
		t.Fatalf("CreateDealRoom() error = %v", err)
	}
	if !created {
		t.Fatal("CreateDealRoom() created = false for a new pair")
	}
	return room
}

func (e *testEnv) room(t *testing.T, roomID uuid.UUID) *domain.DealRoom {
	t.Helper()

	room, err := e.services.DealRoom.GetDealRoom(context.Background(), roomID)
	if err != nil {
		t.Fatalf("GetDealRoom() error = %v", err)
	}
	return room
}

// countMessages считает сообщения типа msgType, содержащие substr
func (e *testEnv) countMessages(t *testing.T, roomID uuid.UUID, msgType, substr string) int {
	t.Helper()

	n := 0
	for _, m := range e.room(t, roomID).Messages {
		if m.Type == msgType && strings.Contains(m.Content, substr) {
			n++
		}
	}
	return n
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
