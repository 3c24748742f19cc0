// Package repo holds the in-memory working set mirrored onto the durable
// record store. Every mutation goes through an update closure and is
// flushed (write-all of the owning collection) before the call returns;
// there is no write-behind buffering. A failed flush discards the
// mutation, so the working set never runs ahead of the durable records.
package repo

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/poinbot/poinbot/internal/domain"
)

// Repository is the authoritative working set between flushes.
type Repository struct {
	store domain.Store

	mu    sync.Mutex
	users map[string]*domain.UserRecord
	tasks []domain.TaskRecord
	cfg   domain.BotConfig
}

// New creates a repository over the given store. Call Load before use.
func New(store domain.Store) *Repository {
	return &Repository{
		store: store,
		users: make(map[string]*domain.UserRecord),
	}
}

// Load reads all three collections into memory, seeding the default bot
// config on first run.
func (r *Repository) Load() error {
	users, err := r.store.ReadUsers()
	if err != nil {
		return fmt.Errorf("read users: %w", err)
	}
	tasks, err := r.store.ReadTasks()
	if err != nil {
		return fmt.Errorf("read tasks: %w", err)
	}
	cfg, err := r.store.ReadConfig()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if cfg == nil {
		seeded := domain.DefaultBotConfig()
		if err := r.store.WriteConfig(seeded); err != nil {
			return fmt.Errorf("seed config: %w", err)
		}
		cfg = &seeded
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[string]*domain.UserRecord, len(users))
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
	}
	r.tasks = tasks
	r.cfg = *cfg
	return nil
}

// ─── Users ──────────────────────────────────────────────────────────────────

// User returns a copy of the user record, if present.
func (r *Repository) User(id string) (domain.UserRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.UserRecord{}, false
	}
	return *u, true
}

// Users returns copies of all user records, sorted by id.
func (r *Repository) Users() []domain.UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotUsersLocked()
}

// GetOrCreateUser returns the user, creating and flushing a fresh record
// on first contact. Reports whether the record was created.
func (r *Repository) GetOrCreateUser(id string, now time.Time) (domain.UserRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return *u, false, nil
	}
	u := domain.NewUserRecord(id, now)
	r.users[id] = u
	if err := r.store.WriteUsers(r.snapshotUsersLocked()); err != nil {
		delete(r.users, id)
		return domain.UserRecord{}, false, fmt.Errorf("flush users: %w", err)
	}
	return *u, true, nil
}

// UpdateUser applies fn to a copy of the record, flushes the users
// collection, and only then commits the copy back into the working set.
// An error from fn or from the flush leaves the record unchanged.
func (r *Repository) UpdateUser(id string, fn func(*domain.UserRecord) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	next := *cur
	if err := fn(&next); err != nil {
		return err
	}
	r.users[id] = &next
	if err := r.store.WriteUsers(r.snapshotUsersLocked()); err != nil {
		r.users[id] = cur
		return fmt.Errorf("flush users: %w", err)
	}
	return nil
}

// DeleteUser removes the record and flushes.
func (r *Repository) DeleteUser(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	delete(r.users, id)
	if err := r.store.WriteUsers(r.snapshotUsersLocked()); err != nil {
		r.users[id] = cur
		return fmt.Errorf("flush users: %w", err)
	}
	return nil
}

func (r *Repository) snapshotUsersLocked() []domain.UserRecord {
	out := make([]domain.UserRecord, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// Tasks returns a copy of the catalog, ordered by id.
func (r *Repository) Tasks() []domain.TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TaskRecord, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// TaskByID returns a copy of the catalog entry, if present.
func (r *Repository) TaskByID(id int64) (domain.TaskRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.TaskRecord{}, false
}

// UpdateTasks applies fn to a copy of the catalog, flushes, and commits.
func (r *Repository) UpdateTasks(fn func([]domain.TaskRecord) ([]domain.TaskRecord, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := make([]domain.TaskRecord, len(r.tasks))
	copy(cur, r.tasks)
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if err := r.store.WriteTasks(next); err != nil {
		return fmt.Errorf("flush tasks: %w", err)
	}
	r.tasks = next
	return nil
}

// ─── Config ─────────────────────────────────────────────────────────────────

// Config returns a copy of the durable bot configuration.
func (r *Repository) Config() domain.BotConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// UpdateConfig applies fn to a copy, flushes, and commits.
func (r *Repository) UpdateConfig(fn func(*domain.BotConfig) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.cfg
	if err := fn(&next); err != nil {
		return err
	}
	if err := r.store.WriteConfig(next); err != nil {
		return fmt.Errorf("flush config: %w", err)
	}
	r.cfg = next
	return nil
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// AppendLedger records a credit audit row. The balance change itself is
// flushed by UpdateUser before this is called, so a crash between the two
// loses only the audit row, never the credit.
func (r *Repository) AppendLedger(e domain.LedgerEntry) error {
	return r.store.AppendLedger(e)
}

// Ledger returns the newest audit rows for a user, most recent first.
func (r *Repository) Ledger(userID string, limit int) ([]domain.LedgerEntry, error) {
	return r.store.ReadLedger(userID, limit)
}
