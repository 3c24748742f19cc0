// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the bot — it depends on nothing.
package domain

import "time"

// ─── Session Modes ──────────────────────────────────────────────────────────

// Mode is the user's current position in the interaction state machine.
// A user is in exactly one mode at a time; Challenge is present iff the
// mode is AwaitingVerification, GameTarget is valid iff the mode is InGame.
type Mode string

const (
	ModeIdle                 Mode = "IDLE"
	ModeAwaitingVerification Mode = "AWAITING_VERIFICATION"
	ModeInGame               Mode = "IN_GAME"
)

// ChallengePurpose says what a resolved verification challenge pays out.
type ChallengePurpose string

const (
	PurposeClaim ChallengePurpose = "CLAIM"
	PurposeTask  ChallengePurpose = "TASK"
)

// Challenge is a pending human-verification step: the user must retype
// Token (case-insensitive) before ExpiresAt, if set. Task is a captured
// copy of the catalog entry at challenge creation time, so deleting the
// task from the catalog does not void a challenge already in flight.
//
// The deadline timer handle is process-local state owned by the session
// engine and keyed by ID; it is never persisted. Only ExpiresAt survives
// a restart.
type Challenge struct {
	ID        string           `json:"id"`
	Purpose   ChallengePurpose `json:"purpose"`
	Token     string           `json:"token"`
	Task      *TaskRecord      `json:"task,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// ─── User Records ───────────────────────────────────────────────────────────

// UserRecord is the durable per-user state.
type UserRecord struct {
	ID             string     `json:"id"`
	Balance        int64      `json:"balance"`
	Blocked        bool       `json:"blocked"`
	Admin          bool       `json:"admin"`
	LastActive     time.Time  `json:"last_active"`
	ClaimedDaily   bool       `json:"claimed_daily"`
	CompletedTasks []int64    `json:"completed_tasks,omitempty"`
	Mode           Mode       `json:"mode"`
	Challenge      *Challenge `json:"challenge,omitempty"`
	GameTarget     int        `json:"game_target,omitempty"`
}

// NewUserRecord creates a fresh idle user.
func NewUserRecord(id string, now time.Time) *UserRecord {
	return &UserRecord{
		ID:         id,
		Mode:       ModeIdle,
		LastActive: now,
	}
}

// Rollover resets the daily flags when the calendar date has advanced past
// LastActive. It must run before any mode-specific handling of an inbound
// event. Reports whether a reset happened.
func (u *UserRecord) Rollover(now time.Time) bool {
	rolled := u.LastActive.Format(time.DateOnly) != now.Format(time.DateOnly)
	if rolled {
		u.ClaimedDaily = false
		u.CompletedTasks = nil
	}
	u.LastActive = now
	return rolled
}

// HasCompleted reports whether the task was completed today.
func (u *UserRecord) HasCompleted(taskID int64) bool {
	for _, id := range u.CompletedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// MarkCompleted records a task completion for today. Idempotent.
func (u *UserRecord) MarkCompleted(taskID int64) {
	if !u.HasCompleted(taskID) {
		u.CompletedTasks = append(u.CompletedTasks, taskID)
	}
}

// ─── Task Catalog ───────────────────────────────────────────────────────────

// TaskRecord is a completable micro-task in the catalog.
type TaskRecord struct {
	ID              int64  `json:"id"`
	Reward          int64  `json:"reward"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
}

// Duration returns the verification window for the task.
func (t TaskRecord) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// ─── Bot Config ─────────────────────────────────────────────────────────────

// BotConfig is the durable, admin-mutable bot configuration. It is distinct
// from the process config in internal/config: BotConfig lives in the record
// store and the bonus range is read on every claim.
type BotConfig struct {
	AdminPassword string `json:"admin_password"`
	BonusMin      int64  `json:"bonus_min"`
	BonusMax      int64  `json:"bonus_max"`
}

// DefaultBotConfig returns the configuration seeded on first run.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		AdminPassword: "admin123",
		BonusMin:      50,
		BonusMax:      250,
	}
}
