package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/poinbot/poinbot/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "poinbot.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUsersRoundTrip(t *testing.T) {
	db := openTestDB(t)

	expires := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	users := []domain.UserRecord{
		{
			ID:         "628111",
			Balance:    420,
			LastActive: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			Mode:       domain.ModeAwaitingVerification,
			Challenge: &domain.Challenge{
				ID:      "ch-1",
				Purpose: domain.PurposeTask,
				Token:   "A1B2C3",
				Task:    &domain.TaskRecord{ID: 2, Reward: 100, DurationMinutes: 5, Description: "watch"},
				ExpiresAt: &expires,
			},
			CompletedTasks: []int64{1, 4},
			ClaimedDaily:   true,
		},
		{
			ID:         "628222",
			Blocked:    true,
			Admin:      true,
			LastActive: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			Mode:       domain.ModeInGame,
			GameTarget: 42,
		},
	}

	if err := db.WriteUsers(users); err != nil {
		t.Fatalf("WriteUsers: %v", err)
	}
	got, err := db.ReadUsers()
	if err != nil {
		t.Fatalf("ReadUsers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d users, want 2", len(got))
	}

	u := got[0]
	if u.ID != "628111" || u.Balance != 420 || !u.ClaimedDaily {
		t.Errorf("user fields lost: %+v", u)
	}
	if u.Challenge == nil {
		t.Fatal("challenge not persisted")
	}
	if u.Challenge.Token != "A1B2C3" || u.Challenge.Purpose != domain.PurposeTask {
		t.Errorf("challenge fields lost: %+v", u.Challenge)
	}
	if u.Challenge.Task == nil || u.Challenge.Task.Reward != 100 {
		t.Errorf("captured task copy lost: %+v", u.Challenge.Task)
	}
	if u.Challenge.ExpiresAt == nil || !u.Challenge.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", u.Challenge.ExpiresAt, expires)
	}
	if !u.HasCompleted(4) {
		t.Errorf("CompletedTasks = %v, want to contain 4", u.CompletedTasks)
	}

	g := got[1]
	if !g.Blocked || !g.Admin || g.Mode != domain.ModeInGame || g.GameTarget != 42 {
		t.Errorf("second user fields lost: %+v", g)
	}
	if g.Challenge != nil {
		t.Error("in-game user should have no challenge")
	}
}

func TestWriteUsersReplacesCollection(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()

	if err := db.WriteUsers([]domain.UserRecord{
		*domain.NewUserRecord("a", now),
		*domain.NewUserRecord("b", now),
	}); err != nil {
		t.Fatalf("WriteUsers: %v", err)
	}
	// A later write-all with one record must drop the other: the store
	// has replace semantics, not merge.
	if err := db.WriteUsers([]domain.UserRecord{*domain.NewUserRecord("a", now)}); err != nil {
		t.Fatalf("WriteUsers: %v", err)
	}

	got, err := db.ReadUsers()
	if err != nil {
		t.Fatalf("ReadUsers: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("got %+v, want only user a", got)
	}
}

func TestTasksRoundTrip(t *testing.T) {
	db := openTestDB(t)

	tasks := []domain.TaskRecord{
		{ID: 1, Reward: 150, DurationMinutes: 5, Description: "subscribe to the channel"},
		{ID: 3, Reward: 75, DurationMinutes: 2, Description: "share the link"},
	}
	if err := db.WriteTasks(tasks); err != nil {
		t.Fatalf("WriteTasks: %v", err)
	}
	got, err := db.ReadTasks()
	if err != nil {
		t.Fatalf("ReadTasks: %v", err)
	}
	if len(got) != 2 || got[1].ID != 3 || got[1].Reward != 75 {
		t.Errorf("tasks = %+v", got)
	}
}

func TestConfigAbsentThenPresent(t *testing.T) {
	db := openTestDB(t)

	cfg, err := db.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected absent config, got %+v", cfg)
	}

	want := domain.BotConfig{AdminPassword: "s3cret", BonusMin: 10, BonusMax: 99}
	if err := db.WriteConfig(want); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	// Overwrite exercises the upsert path.
	want.BonusMax = 120
	if err := db.WriteConfig(want); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	cfg, err = db.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg == nil || *cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}

func TestLedgerAppendAndRead(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()

	for i, tx := range []domain.TransactionType{domain.TxBonus, domain.TxTask, domain.TxGame} {
		err := db.AppendLedger(domain.LedgerEntry{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Type:      tx,
			UserID:    "u1",
			Amount:    int64(10 * (i + 1)),
			Balance:   int64(10 * (i + 1)),
		})
		if err != nil {
			t.Fatalf("AppendLedger: %v", err)
		}
	}
	if err := db.AppendLedger(domain.LedgerEntry{Timestamp: now, Type: domain.TxBonus, UserID: "u2", Amount: 5, Balance: 5}); err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}

	entries, err := db.ReadLedger("u1", 2)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Most recent first.
	if entries[0].Type != domain.TxGame || entries[1].Type != domain.TxTask {
		t.Errorf("order = %s, %s; want GAME, TASK", entries[0].Type, entries[1].Type)
	}
}
