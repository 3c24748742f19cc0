package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poinbot/poinbot/internal/app/catalog"
	"github.com/poinbot/poinbot/internal/app/repo"
	"github.com/poinbot/poinbot/internal/domain"
	"github.com/poinbot/poinbot/internal/infra/store"
)

// stubAssistant satisfies domain.Assistant for handler tests.
type stubAssistant struct {
	resets []string
}

func (s *stubAssistant) Chat(ctx context.Context, convID, prompt string) (string, error) {
	return "ok", nil
}
func (s *stubAssistant) GenerateImage(ctx context.Context, prompt string) (string, []byte, error) {
	return "image/png", []byte{1}, nil
}
func (s *stubAssistant) GenerateVideo(ctx context.Context, prompt string) (string, error) {
	return "https://example.test/v.mp4", nil
}
func (s *stubAssistant) Reset(convID string) { s.resets = append(s.resets, convID) }

func newTestHandler(t *testing.T) (*Handler, *repo.Repository, *stubAssistant) {
	t.Helper()
	r := repo.New(store.NewMemory())
	if err := r.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	ai := &stubAssistant{}
	return NewHandler(r, catalog.New(r), ai, "/"), r, ai
}

func mustUser(t *testing.T, r *repo.Repository, id string, admin bool) domain.UserRecord {
	t.Helper()
	if _, _, err := r.GetOrCreateUser(id, time.Now()); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if admin {
		if err := r.UpdateUser(id, func(u *domain.UserRecord) error {
			u.Admin = true
			return nil
		}); err != nil {
			t.Fatalf("grant admin: %v", err)
		}
	}
	u, _ := r.User(id)
	return u
}

func TestAdminGateRefusesWithoutSideEffect(t *testing.T) {
	h, r, _ := newTestHandler(t)
	user := mustUser(t, r, "u1", false)
	mustUser(t, r, "victim", false)

	gated := []Command{
		ListUsers{},
		BlockUser{UserID: "victim"},
		UnblockUser{UserID: "victim"},
		DeleteUser{UserID: "victim"},
		AddTask{Reward: 10, DurationMinutes: 1, Description: "x"},
		ListAllTasks{},
		DeleteTask{TaskID: 1},
		SetBonus{Min: 1, Max: 2},
		Ledger{UserID: "victim"},
	}
	for _, cmd := range gated {
		if _, err := h.Execute(context.Background(), user, cmd); !errors.Is(err, domain.ErrPermission) {
			t.Errorf("%T err = %v, want ErrPermission", cmd, err)
		}
	}

	if v, _ := r.User("victim"); v.Blocked {
		t.Error("refused block still mutated the target")
	}
	if got := r.Config(); got != domain.DefaultBotConfig() {
		t.Error("refused setbonus still mutated config")
	}
}

func TestAdminLogin(t *testing.T) {
	h, r, _ := newTestHandler(t)
	user := mustUser(t, r, "u1", false)

	reply, err := h.Execute(context.Background(), user, AdminLogin{Password: "wrong"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(reply, "Invalid") {
		t.Errorf("reply = %q, want invalid-password text", reply)
	}
	if u, _ := r.User("u1"); u.Admin {
		t.Error("wrong password granted admin")
	}

	reply, err = h.Execute(context.Background(), user, AdminLogin{Password: domain.DefaultBotConfig().AdminPassword})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(reply, "granted") {
		t.Errorf("reply = %q, want granted text", reply)
	}
	if u, _ := r.User("u1"); !u.Admin {
		t.Error("correct password did not grant admin")
	}
}

func TestBlockUnblockDelete(t *testing.T) {
	h, r, _ := newTestHandler(t)
	admin := mustUser(t, r, "boss", true)
	mustUser(t, r, "u2", false)

	if _, err := h.Execute(context.Background(), admin, BlockUser{UserID: "u2"}); err != nil {
		t.Fatalf("block: %v", err)
	}
	if u, _ := r.User("u2"); !u.Blocked {
		t.Error("user not blocked")
	}
	if _, err := h.Execute(context.Background(), admin, UnblockUser{UserID: "u2"}); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if u, _ := r.User("u2"); u.Blocked {
		t.Error("user not unblocked")
	}

	if _, err := h.Execute(context.Background(), admin, BlockUser{UserID: "ghost"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("block ghost err = %v, want ErrNotFound", err)
	}

	if _, err := h.Execute(context.Background(), admin, DeleteUser{UserID: "u2"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := r.User("u2"); ok {
		t.Error("user still present after delete")
	}
}

func TestSetBonus(t *testing.T) {
	h, r, _ := newTestHandler(t)
	admin := mustUser(t, r, "boss", true)

	if _, err := h.Execute(context.Background(), admin, SetBonus{Min: 5, Max: 20}); err != nil {
		t.Fatalf("setbonus: %v", err)
	}
	cfg := r.Config()
	if cfg.BonusMin != 5 || cfg.BonusMax != 20 {
		t.Errorf("config = %+v", cfg)
	}
}

// A negative range would let a claim credit a negative amount and drive a
// balance below zero, so it is rejected without touching the config.
func TestSetBonusRejectsNegativeRange(t *testing.T) {
	h, r, _ := newTestHandler(t)
	admin := mustUser(t, r, "boss", true)

	_, err := h.Execute(context.Background(), admin, SetBonus{Min: -100, Max: -50})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	cfg := r.Config()
	if cfg.BonusMin != domain.DefaultBotConfig().BonusMin ||
		cfg.BonusMax != domain.DefaultBotConfig().BonusMax {
		t.Errorf("rejected setbonus mutated config: %+v", cfg)
	}
}

func TestTaskAdminCommands(t *testing.T) {
	h, r, _ := newTestHandler(t)
	admin := mustUser(t, r, "boss", true)

	reply, err := h.Execute(context.Background(), admin,
		AddTask{Reward: 150, DurationMinutes: 5, Description: "subscribe"})
	if err != nil {
		t.Fatalf("addmisi: %v", err)
	}
	if !strings.Contains(reply, "Task 1 added") {
		t.Errorf("reply = %q", reply)
	}

	reply, _ = h.Execute(context.Background(), admin, ListAllTasks{})
	if !strings.Contains(reply, "subscribe") {
		t.Errorf("allmisi reply = %q", reply)
	}

	if _, err := h.Execute(context.Background(), admin, DeleteTask{TaskID: 7}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delmisi 7 err = %v, want ErrNotFound", err)
	}
}

func TestListTasksHidesCompleted(t *testing.T) {
	h, r, _ := newTestHandler(t)
	admin := mustUser(t, r, "boss", true)
	h.Execute(context.Background(), admin, AddTask{Reward: 10, DurationMinutes: 1, Description: "one"})
	h.Execute(context.Background(), admin, AddTask{Reward: 20, DurationMinutes: 2, Description: "two"})

	r.UpdateUser("boss", func(u *domain.UserRecord) error {
		u.MarkCompleted(1)
		return nil
	})
	actor, _ := r.User("boss")

	reply, err := h.Execute(context.Background(), actor, ListTasks{})
	if err != nil {
		t.Fatalf("misi: %v", err)
	}
	if strings.Contains(reply, "one") {
		t.Errorf("completed task still listed: %q", reply)
	}
	if !strings.Contains(reply, "two") {
		t.Errorf("available task missing: %q", reply)
	}
}

func TestResetAI(t *testing.T) {
	h, r, ai := newTestHandler(t)
	user := mustUser(t, r, "u1", false)

	if _, err := h.Execute(context.Background(), user, ResetAI{}); err != nil {
		t.Fatalf("resetai: %v", err)
	}
	if len(ai.resets) != 1 || ai.resets[0] != "u1" {
		t.Errorf("resets = %v", ai.resets)
	}
}

func TestErrorReply(t *testing.T) {
	if got := ErrorReply(domain.ErrPermission); got != "This command is for admins only." {
		t.Errorf("permission reply = %q", got)
	}
	if got := ErrorReply(domain.ErrChallengeMismatch); !strings.Contains(got, "Wrong code") {
		t.Errorf("mismatch reply = %q", got)
	}
	if got := ErrorReply(domain.ErrChallengeExpired); !strings.Contains(got, "expired") {
		t.Errorf("expired reply = %q", got)
	}
	if got := ErrorReply(errors.New("internal detail")); strings.Contains(got, "internal detail") {
		t.Errorf("unexpected internal detail leaked: %q", got)
	}
}
