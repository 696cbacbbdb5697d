package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"deal_room/internal/config"
	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"

	"github.com/google/uuid"
)

func TestCreateDealRoomBuildsInitialDocument(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t)

	if room.Name != "ALICE / BOB" {
		t.Errorf("Name = %q, want %q", room.Name, "ALICE / BOB")
	}
	if room.Status != domain.DealRoomStatusActive {
		t.Errorf("Status = %q", room.Status)
	}
	if len(room.Members) != 3 {
		t.Fatalf("len(Members) = %d, want 3", len(room.Members))
	}

	bot := room.Member(domain.BotUserID)
	if bot == nil || !bot.IsBot || !bot.Notification.Mute {
		t.Fatalf("bot member = %+v", bot)
	}
	if bot.Permissions.CanStartCalls || bot.Permissions.CanInviteTeam || !bot.Permissions.CanCreateNotePoints {
		t.Errorf("bot permissions = %+v", bot.Permissions)
	}
	if founder := room.Member("founder-1"); founder == nil || founder.Role != domain.MemberRoleOwner || founder.TeamType != domain.TeamTypeFounder {
		t.Errorf("founder member = %+v", founder)
	}

	if room.Privacy == nil || !room.Privacy.IsPrivate {
		t.Errorf("Privacy = %+v, want private", room.Privacy)
	}
	if !room.Settings.AllowCalls || room.TeamSettings.MaxTeamMembers != 10 {
		t.Errorf("Settings = %+v, TeamSettings = %+v", room.Settings, room.TeamSettings)
	}

	if len(room.Messages) != 1 || room.Messages[0].Content != "RaftAI created this deal room for ALICE / BOB." {
		t.Errorf("Messages = %+v", room.Messages)
	}
	if len(room.AuditLog) == 0 || room.AuditLog[0].Action != domain.AuditActionRoomCreated {
		t.Errorf("AuditLog = %+v", room.AuditLog)
	}
}

func TestCreateDealRoomReturnsExistingActiveRoom(t *testing.T) {
	env := newTestEnv(t)
	first := env.createRoom(t)

	second, created, err := env.services.DealRoom.CreateDealRoom(context.Background(), CreateDealRoomInput{
		ProjectID:   "project-1",
		FounderID:   "founder-1",
		FounderName: "Alice",
		VCID:        "vc-1",
		VCName:      "Bob",
	})
	if err != nil {
		t.Fatalf("CreateDealRoom() error = %v", err)
	}
	if created {
		t.Error("created = true for an existing pair")
	}
	if second.ID != first.ID {
		t.Errorf("ID = %s, want %s", second.ID, first.ID)
	}
	if len(second.Messages) != 1 {
		t.Errorf("existing room got extra messages: %d", len(second.Messages))
	}
}

func TestCreateDealRoomConcurrentCallsShareOneRoom(t *testing.T) {
	env := newTestEnv(t)
	input := CreateDealRoomInput{ProjectID: "p", FounderID: "f", FounderName: "F", VCID: "v", VCName: "V"}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[uuid.UUID]bool{}
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, ok, err := env.services.DealRoom.CreateDealRoom(context.Background(), input)
			if err != nil {
				t.Errorf("CreateDealRoom() error = %v", err)
				return
			}
			mu.Lock()
			ids[room.ID] = true
			if ok {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 || created != 1 {
		t.Errorf("got %d rooms, %d created; want 1 and 1", len(ids), created)
	}
}

func TestCreateDealRoomAfterArchiveStartsFresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createRoom(t)

	if err := env.services.DealRoom.ArchiveRoom(ctx, first.ID, "founder-1"); err != nil {
		t.Fatalf("ArchiveRoom() error = %v", err)
	}
	second := env.createRoom(t)
	if second.ID == first.ID {
		t.Error("archived room was reused")
	}

	rooms, err := env.services.DealRoom.GetUserDealRooms(ctx, "founder-1")
	if err != nil {
		t.Fatalf("GetUserDealRooms() error = %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != second.ID {
		t.Errorf("GetUserDealRooms() = %d rooms, want only the active one", len(rooms))
	}
}

func TestCreateDealRoomValidation(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.services.DealRoom.CreateDealRoom(context.Background(), CreateDealRoomInput{ProjectID: "p", FounderID: "f"})
	if !apperrors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("error = %v, want ErrBadRequest", err)
	}
}

func TestCanUserAccessDealRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	tests := []struct {
		name   string
		roomID uuid.UUID
		userID string
		want   error
	}{
		{"founder", room.ID, "founder-1", nil},
		{"vc", room.ID, "vc-1", nil},
		{"bot member", room.ID, domain.BotUserID, nil},
		{"stranger", room.ID, "mallory", apperrors.ErrAccessDenied},
		{"missing room", uuid.New(), "founder-1", apperrors.ErrDealRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.services.DealRoom.CanUserAccessDealRoom(ctx, tt.roomID, tt.userID)
			if tt.want == nil && err != nil {
				t.Errorf("error = %v, want nil", err)
			}
			if tt.want != nil && !apperrors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRoomsWithoutPrivacyDeniedUnlessOpenRoomsAllowed(t *testing.T) {
	for _, allow := range []bool{false, true} {
		env := newTestEnv(t, func(cfg *config.Config) { cfg.DealRoom.AllowOpenRooms = allow })
		ctx := context.Background()

		legacy := &domain.DealRoom{
			ID:        uuid.New(),
			ProjectID: "legacy",
			FounderID: "f",
			VCID:      "v",
			Status:    domain.DealRoomStatusActive,
		}
		if _, _, err := env.repos.DealRoom.Create(ctx, legacy); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		err := env.services.DealRoom.CanUserAccessDealRoom(ctx, legacy.ID, "someone")
		if allow && err != nil {
			t.Errorf("allow open rooms: error = %v, want nil", err)
		}
		if !allow && !apperrors.Is(err, apperrors.ErrAccessDenied) {
			t.Errorf("deny open rooms: error = %v, want ErrAccessDenied", err)
		}
	}
}

func TestAddMessageAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	for _, content := range []string{"Term sheet draft attached", "Looks good", "Second term sheet revision"} {
		env.clock.Advance(time.Minute)
		msg, err := env.services.DealRoom.AddMessage(ctx, room.ID, NewMessage{SenderID: "founder-1", SenderName: "Alice", Content: content})
		if err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
		if msg.Type != domain.MessageTypeText || msg.Pinned || msg.Reactions == nil {
			t.Errorf("message defaults = %+v", msg)
		}
	}

	results, err := env.services.DealRoom.SearchMessages(ctx, room.ID, "TERM SHEET", 0)
	if err != nil {
		t.Fatalf("SearchMessages() error = %v", err)
	}
	if len(results) != 2 || results[0].Content != "Second term sheet revision" {
		t.Errorf("results = %+v, want newest first", results)
	}

	updated := env.room(t, room.ID)
	if !updated.LastActivity.Equal(testStart.Add(3 * time.Minute)) {
		t.Errorf("LastActivity = %v", updated.LastActivity)
	}

	sent := 0
	for _, e := range updated.AuditLog {
		if e.Action == domain.AuditActionMessageSent {
			sent++
		}
	}
	if sent != 4 {
		t.Errorf("message_sent audit entries = %d, want 4", sent)
	}
}

func TestAddMessageRejectsInvalidFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	tests := []struct {
		name string
		msg  NewMessage
	}{
		{"empty text", NewMessage{SenderID: "founder-1", Content: "  "}},
		{"too large", NewMessage{SenderID: "founder-1", Type: domain.MessageTypeFile, FileURL: "u", FileName: "deck.pdf", FileSize: 51 << 20}},
		{"bad extension", NewMessage{SenderID: "founder-1", Type: domain.MessageTypeFile, FileURL: "u", FileName: "run.exe", FileSize: 10}},
		{"unknown type", NewMessage{SenderID: "founder-1", Type: "sticker", Content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.services.DealRoom.AddMessage(ctx, room.ID, tt.msg); !apperrors.Is(err, apperrors.ErrBadRequest) {
				t.Errorf("error = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestAddMessageToArchivedRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	if err := env.services.DealRoom.ArchiveRoom(ctx, room.ID, "vc-1"); err != nil {
		t.Fatalf("ArchiveRoom() error = %v", err)
	}
	_, err := env.services.DealRoom.AddMessage(ctx, room.ID, NewMessage{SenderID: "founder-1", Content: "hello"})
	if !apperrors.Is(err, apperrors.ErrDealRoomArchived) {
		t.Errorf("error = %v, want ErrDealRoomArchived", err)
	}
}

func TestEditPinAndReact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	first, _ := svc.AddMessage(ctx, room.ID, NewMessage{SenderID: "founder-1", SenderName: "Alice", Content: "first"})
	second, _ := svc.AddMessage(ctx, room.ID, NewMessage{SenderID: "vc-1", SenderName: "Bob", Content: "second"})

	if _, err := svc.EditMessage(ctx, room.ID, first.ID, "vc-1", "hijack"); !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("EditMessage() by non-sender error = %v", err)
	}
	edited, err := svc.EditMessage(ctx, room.ID, first.ID, "founder-1", "first, revised")
	if err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if !edited.Edited || edited.EditedAt == nil || edited.Content != "first, revised" {
		t.Errorf("edited = %+v", edited)
	}

	if _, err := svc.TogglePin(ctx, room.ID, first.ID, "founder-1"); err != nil {
		t.Fatalf("TogglePin() error = %v", err)
	}
	if _, err := svc.TogglePin(ctx, room.ID, second.ID, "vc-1"); err != nil {
		t.Fatalf("TogglePin() error = %v", err)
	}
	pinned := 0
	for _, m := range env.room(t, room.ID).Messages {
		if m.Pinned {
			pinned++
			if m.ID != second.ID {
				t.Errorf("pinned message = %s, want %s", m.ID, second.ID)
			}
		}
	}
	if pinned != 1 {
		t.Errorf("pinned count = %d, want 1", pinned)
	}

	if _, err := svc.SetReaction(ctx, room.ID, second.ID, "founder-1", "👍"); err != nil {
		t.Fatalf("SetReaction() error = %v", err)
	}
	reacted, err := svc.SetReaction(ctx, room.ID, second.ID, "founder-1", "🎉")
	if err != nil {
		t.Fatalf("SetReaction() error = %v", err)
	}
	if len(reacted.Reactions) != 1 || reacted.Reactions["founder-1"] != "🎉" {
		t.Errorf("Reactions = %v", reacted.Reactions)
	}
	cleared, _ := svc.SetReaction(ctx, room.ID, second.ID, "founder-1", "")
	if len(cleared.Reactions) != 0 {
		t.Errorf("Reactions after clear = %v", cleared.Reactions)
	}

	if _, err := svc.TogglePin(ctx, room.ID, uuid.New(), "founder-1"); !apperrors.Is(err, apperrors.ErrMessageNotFound) {
		t.Errorf("TogglePin() missing message error = %v", err)
	}
}

func TestAddMemberRequiresInvitePermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	member, err := svc.AddMember(ctx, room.ID, "founder-1", NewMember{UserID: "carol", Name: "Carol", TeamType: domain.TeamTypeFounder})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if member.Permissions != domain.MemberPermissions() {
		t.Errorf("Permissions = %+v", member.Permissions)
	}
	if n := env.countMessages(t, room.ID, domain.MessageTypeSystem, "Carol joined the deal room."); n != 1 {
		t.Errorf("join messages = %d, want 1", n)
	}

	if _, err := svc.AddMember(ctx, room.ID, "carol", NewMember{UserID: "dave", Name: "Dave"}); !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("AddMember() by plain member error = %v", err)
	}
	if _, err := svc.AddMember(ctx, room.ID, "founder-1", NewMember{UserID: "carol", Name: "Carol"}); !apperrors.Is(err, apperrors.ErrAlreadyMember) {
		t.Errorf("AddMember() duplicate error = %v", err)
	}
}

func TestTeamInvitationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	inv, err := svc.AddTeamMember(ctx, room.ID, "founder-1", "carol@example.com", domain.MemberRoleAdmin)
	if err != nil {
		t.Fatalf("AddTeamMember() error = %v", err)
	}
	if len(inv.Code) != 8 || strings.Trim(inv.Code, invitationCodeAlphabet) != "" {
		t.Errorf("Code = %q, want 8 chars of [A-Z0-9]", inv.Code)
	}
	if !inv.ExpiresAt.Equal(testStart.Add(7 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", inv.ExpiresAt)
	}
	if !inv.Permissions.CanModerate || inv.Permissions.CanInviteTeam || inv.TeamType != domain.TeamTypeFounder {
		t.Errorf("invitation snapshot = %+v / %q", inv.Permissions, inv.TeamType)
	}
	if pending := env.room(t, room.ID).PendingInvitations; len(pending) != 1 || pending[0] != inv.Code {
		t.Errorf("PendingInvitations = %v", pending)
	}

	if _, err := svc.AcceptTeamInvitation(ctx, inv.Code, "carol", "eve@example.com", "Carol"); !apperrors.Is(err, apperrors.ErrInvitationEmailMismatch) {
		t.Errorf("mismatched email error = %v", err)
	}

	roomID, err := svc.AcceptTeamInvitation(ctx, strings.ToLower(inv.Code), "carol", "Carol@Example.com", "Carol")
	if err != nil {
		t.Fatalf("AcceptTeamInvitation() error = %v", err)
	}
	if roomID != room.ID {
		t.Errorf("roomID = %s, want %s", roomID, room.ID)
	}

	updated := env.room(t, room.ID)
	carol := updated.Member("carol")
	if carol == nil || carol.Permissions != inv.Permissions || carol.TeamType != domain.TeamTypeFounder || carol.InvitedBy != "founder-1" {
		t.Errorf("member = %+v", carol)
	}
	if len(updated.PendingInvitations) != 0 {
		t.Errorf("PendingInvitations = %v, want empty", updated.PendingInvitations)
	}
	if n := env.countMessages(t, room.ID, domain.MessageTypeSystem, "Carol joined the team using invitation code"); n != 1 {
		t.Errorf("join messages = %d, want 1", n)
	}

	if _, err := svc.AcceptTeamInvitation(ctx, inv.Code, "mallory", "carol@example.com", "Mallory"); !apperrors.Is(err, apperrors.ErrInvitationInvalid) {
		t.Errorf("second accept error = %v, want ErrInvitationInvalid", err)
	}
}

func TestAcceptTeamInvitationIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	inv, err := env.services.DealRoom.AddTeamMember(ctx, room.ID, "vc-1", "team@fund.example", "")
	if err != nil {
		t.Fatalf("AddTeamMember() error = %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.services.DealRoom.AcceptTeamInvitation(ctx, inv.Code, uuid.NewString(), "team@fund.example", "Analyst")
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !apperrors.Is(err, apperrors.ErrInvitationInvalid) {
				t.Errorf("accept error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("successful accepts = %d, want 1", wins)
	}
	if n := env.room(t, room.ID).TeamSize(domain.TeamTypeVC); n != 2 {
		t.Errorf("vc team size = %d, want 2", n)
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)

	inv, err := env.services.DealRoom.AddTeamMember(ctx, room.ID, "founder-1", "late@example.com", "")
	if err != nil {
		t.Fatalf("AddTeamMember() error = %v", err)
	}

	env.clock.Advance(8 * 24 * time.Hour)
	if _, err := env.services.DealRoom.AcceptTeamInvitation(ctx, inv.Code, "late", "late@example.com", "Late"); !apperrors.Is(err, apperrors.ErrInvitationExpired) {
		t.Errorf("error = %v, want ErrInvitationExpired", err)
	}
	if _, err := env.services.DealRoom.AcceptTeamInvitation(ctx, "NOPE1234", "late", "late@example.com", "Late"); !apperrors.Is(err, apperrors.ErrInvitationInvalid) {
		t.Errorf("unknown code error = %v, want ErrInvitationInvalid", err)
	}
}

func TestAcceptInvitationToArchivedRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	inv, err := svc.AddTeamMember(ctx, room.ID, "founder-1", "dave@example.com", "")
	if err != nil {
		t.Fatalf("AddTeamMember() error = %v", err)
	}
	if err := svc.ArchiveRoom(ctx, room.ID, "founder-1"); err != nil {
		t.Fatalf("ArchiveRoom() error = %v", err)
	}

	if _, err := svc.AcceptTeamInvitation(ctx, inv.Code, "dave", "dave@example.com", "Dave"); !apperrors.Is(err, apperrors.ErrDealRoomArchived) {
		t.Errorf("error = %v, want ErrDealRoomArchived", err)
	}
	if env.room(t, room.ID).IsMember("dave") {
		t.Error("archived room gained a member")
	}
}

func TestAddTeamMemberChecks(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.DealRoom.MaxTeamMembers = 1 })
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	if _, err := svc.AddTeamMember(ctx, room.ID, "founder-1", "x@example.com", ""); !apperrors.Is(err, apperrors.ErrTeamFull) {
		t.Errorf("full team error = %v, want ErrTeamFull", err)
	}
	if _, err := svc.AddTeamMember(ctx, room.ID, domain.BotUserID, "x@example.com", ""); !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("bot invite error = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.AddTeamMember(ctx, room.ID, "founder-1", "not-an-email", ""); !apperrors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("bad email error = %v, want ErrBadRequest", err)
	}
	if _, err := svc.AddTeamMember(ctx, room.ID, "founder-1", "x@example.com", domain.MemberRoleOwner); !apperrors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("owner role error = %v, want ErrBadRequest", err)
	}
}

func TestNotePoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	note, err := svc.AddNotePoint(ctx, room.ID, NewNotePoint{Type: domain.NoteTypeRisk, Content: "Vesting cliff unclear", CreatedBy: "vc-1"})
	if err != nil {
		t.Fatalf("AddNotePoint() error = %v", err)
	}
	if note.Status != domain.NoteStatusOpen || note.Tags == nil || note.Followers == nil {
		t.Errorf("note defaults = %+v", note)
	}

	if _, err := svc.AddNotePoint(ctx, room.ID, NewNotePoint{Type: "gossip", Content: "x", CreatedBy: "vc-1"}); !apperrors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("bad type error = %v", err)
	}
	if _, err := svc.AddNotePoint(ctx, room.ID, NewNotePoint{Type: domain.NoteTypeRisk, Content: "x", CreatedBy: "stranger"}); !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("non-member error = %v", err)
	}

	bad := "finished"
	if _, err := svc.UpdateNotePoint(ctx, room.ID, note.ID, "founder-1", NotePointUpdate{Status: &bad}); !apperrors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("bad status error = %v", err)
	}

	done := domain.NoteStatusDone
	env.clock.Advance(time.Hour)
	updated, err := svc.UpdateNotePoint(ctx, room.ID, note.ID, "founder-1", NotePointUpdate{Status: &done})
	if err != nil {
		t.Fatalf("UpdateNotePoint() error = %v", err)
	}
	if updated.Status != done || !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.UpdateNotePoint(ctx, room.ID, uuid.New(), "founder-1", NotePointUpdate{Status: &done}); !apperrors.Is(err, apperrors.ErrNotePointNotFound) {
		t.Errorf("missing note error = %v", err)
	}
}

func TestRenameAndArchivePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t)
	svc := env.services.DealRoom

	if _, err := svc.RenameRoom(ctx, room.ID, domain.BotUserID, "Bot room"); !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("bot rename error = %v", err)
	}
	renamed, err := svc.RenameRoom(ctx, room.ID, "vc-1", "  Series A  ")
	if err != nil {
		t.Fatalf("RenameRoom() error = %v", err)
	}
	if renamed.Name != "Series A" {
		t.Errorf("Name = %q", renamed.Name)
	}

	if err := svc.ArchiveRoom(ctx, room.ID, domain.BotUserID); !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("bot archive error = %v", err)
	}
	if err := svc.ArchiveRoom(ctx, room.ID, "founder-1"); err != nil {
		t.Fatalf("ArchiveRoom() error = %v", err)
	}
	if err := svc.ArchiveRoom(ctx, room.ID, "founder-1"); !apperrors.Is(err, apperrors.ErrDealRoomArchived) {
		t.Errorf("second archive error = %v", err)
	}
}

func TestSubscribeToDealRoom(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		updates []*domain.DealRoom
	)
	unsubscribe, err := env.services.DealRoom.SubscribeToDealRoom(ctx, room.ID, func(r *domain.DealRoom) {
		mu.Lock()
		updates = append(updates, r)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("SubscribeToDealRoom() error = %v", err)
	}

	if _, err := env.services.DealRoom.AddMessage(context.Background(), room.ID, NewMessage{SenderID: "vc-1", Content: "ping"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	mu.Lock()
	got := len(updates)
	var last *domain.DealRoom
	if got > 0 {
		last = updates[got-1]
	}
	mu.Unlock()
	if got != 1 || len(last.Messages) != 2 {
		t.Fatalf("updates = %d, want 1 with the new message", got)
	}

	unsubscribe()
	if _, err := env.services.DealRoom.AddMessage(context.Background(), room.ID, NewMessage{SenderID: "vc-1", Content: "pong"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 1 {
		t.Errorf("updates after unsubscribe = %d, want 1", len(updates))
	}

	if _, err := env.services.DealRoom.SubscribeToDealRoom(ctx, uuid.New(), func(*domain.DealRoom) {}); !apperrors.Is(err, apperrors.ErrDealRoomNotFound) {
		t.Errorf("subscribe to missing room error = %v", err)
	}
}
