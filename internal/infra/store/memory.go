package store

import (
	"sync"

	"github.com/poinbot/poinbot/internal/domain"
)

// Memory is an in-memory domain.Store for tests. It copies on read and
// write so callers never share slices with the store.
type Memory struct {
	mu     sync.Mutex
	users  []domain.UserRecord
	tasks  []domain.TaskRecord
	cfg    *domain.BotConfig
	ledger []domain.LedgerEntry

	// FailWrites makes every write return an error, for testing the
	// no-partial-commit rule.
	FailWrites error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) ReadUsers() ([]domain.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UserRecord, len(m.users))
	copy(out, m.users)
	return out, nil
}

func (m *Memory) WriteUsers(users []domain.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.users = make([]domain.UserRecord, len(users))
	copy(m.users, users)
	return nil
}

func (m *Memory) ReadTasks() ([]domain.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TaskRecord, len(m.tasks))
	copy(out, m.tasks)
	return out, nil
}

func (m *Memory) WriteTasks(tasks []domain.TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.tasks = make([]domain.TaskRecord, len(tasks))
	copy(m.tasks, tasks)
	return nil
}

func (m *Memory) ReadConfig() (*domain.BotConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, nil
	}
	cfg := *m.cfg
	return &cfg, nil
}

func (m *Memory) WriteConfig(cfg domain.BotConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.cfg = &cfg
	return nil
}

func (m *Memory) AppendLedger(e domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	e.ID = int64(len(m.ledger) + 1)
	m.ledger = append(m.ledger, e)
	return nil
}

func (m *Memory) ReadLedger(userID string, limit int) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var out []domain.LedgerEntry
	for i := len(m.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if m.ledger[i].UserID == userID {
			out = append(out, m.ledger[i])
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
