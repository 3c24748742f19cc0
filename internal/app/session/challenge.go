package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poinbot/poinbot/internal/app/commands"
	"github.com/poinbot/poinbot/internal/domain"
)

// ─── Entering AwaitingVerification ──────────────────────────────────────────

// startClaim begins the daily-bonus challenge. No expiry: the claim prompt
// waits for the user's next message however long that takes.
func (e *Engine) startClaim(userID string) (string, error) {
	u, _ := e.repo.User(userID)
	if u.ClaimedDaily {
		return "", fmt.Errorf("daily bonus %w", domain.ErrAlreadyDone)
	}

	ch := &domain.Challenge{
		ID:      uuid.NewString(),
		Purpose: domain.PurposeClaim,
		Token:   e.newToken(e.cfg.TokenLength),
	}
	err := e.repo.UpdateUser(userID, func(u *domain.UserRecord) error {
		u.Mode = domain.ModeAwaitingVerification
		u.Challenge = ch
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("To claim your daily bonus, retype this code: %s", ch.Token), nil
}

// startTask begins a timed challenge for the task. The challenge captures
// its own copy of the task, so a later catalog delete does not void it.
func (e *Engine) startTask(userID string, taskID int64) (string, error) {
	task, ok := e.catalog.Get(taskID)
	if !ok {
		return "", fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	u, _ := e.repo.User(userID)
	if u.HasCompleted(taskID) {
		return "", fmt.Errorf("task %d %w", taskID, domain.ErrAlreadyDone)
	}

	expiresAt := e.now().Add(task.Duration())
	ch := &domain.Challenge{
		ID:        uuid.NewString(),
		Purpose:   domain.PurposeTask,
		Token:     e.newToken(e.cfg.TokenLength),
		Task:      &task,
		ExpiresAt: &expiresAt,
	}
	err := e.repo.UpdateUser(userID, func(u *domain.UserRecord) error {
		u.Mode = domain.ModeAwaitingVerification
		u.Challenge = ch
		return nil
	})
	if err != nil {
		return "", err
	}
	// Schedule only after the challenge is durable, so a timer can never
	// fire for a challenge the store never saw.
	e.scheduleExpiry(userID, *ch)

	return fmt.Sprintf("%s\n\nWhen you are done, retype this code within %d minutes: %s",
		task.Description, task.DurationMinutes, ch.Token), nil
}

// ─── Resolving ──────────────────────────────────────────────────────────────

// resolveChallenge consumes the pending challenge with the user's answer.
// The deadline timer is cancelled unconditionally, whatever the outcome,
// so a stale timeout can never fire after resolution.
func (e *Engine) resolveChallenge(u domain.UserRecord, answer string) ([]string, error) {
	ch := u.Challenge
	if ch == nil {
		// Mode says awaiting but no challenge: repair to idle.
		err := e.repo.UpdateUser(u.ID, func(u *domain.UserRecord) error {
			u.Mode = domain.ModeIdle
			return nil
		})
		return []string{"Nothing is pending. Type " + e.cfg.Prefix + "menu for commands."}, err
	}

	e.cancelExpiry(ch.ID)

	match := strings.EqualFold(strings.TrimSpace(answer), ch.Token)

	// Read the bonus range up front: UpdateUser holds the repository
	// lock, so the closure below must not call back into the repository.
	cfg := e.repo.Config()

	var (
		credited int64
		balance  int64
		taskID   int64
	)
	err := e.repo.UpdateUser(u.ID, func(u *domain.UserRecord) error {
		u.Challenge = nil
		u.Mode = domain.ModeIdle
		if !match {
			return nil
		}
		switch ch.Purpose {
		case domain.PurposeClaim:
			credited = randRange(cfg.BonusMin, cfg.BonusMax)
			u.Balance += credited
			u.ClaimedDaily = true
		case domain.PurposeTask:
			credited = ch.Task.Reward
			taskID = ch.Task.ID
			u.Balance += credited
			u.MarkCompleted(taskID)
		}
		balance = u.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !match {
		e.metrics.Challenges.WithLabelValues("mismatch").Inc()
		return nil, fmt.Errorf("challenge %s: %w", ch.ID, domain.ErrChallengeMismatch)
	}

	e.metrics.Challenges.WithLabelValues("match").Inc()
	switch ch.Purpose {
	case domain.PurposeClaim:
		e.recordCredit(u.ID, credited, balance, domain.TxBonus, 0)
		return []string{fmt.Sprintf("Verified! Daily bonus: +%d points. Balance: %d.", credited, balance)}, nil
	default:
		e.recordCredit(u.ID, credited, balance, domain.TxTask, taskID)
		return []string{fmt.Sprintf("Task %d verified: +%d points. Balance: %d.", taskID, credited, balance)}, nil
	}
}

// recordCredit mirrors a flushed balance change into the audit ledger.
func (e *Engine) recordCredit(userID string, amount, balance int64, tx domain.TransactionType, taskID int64) {
	e.metrics.Credits.WithLabelValues(string(tx)).Inc()
	err := e.repo.AppendLedger(domain.LedgerEntry{
		Timestamp: e.now(),
		Type:      tx,
		UserID:    userID,
		Amount:    amount,
		TaskID:    taskID,
		Balance:   balance,
	})
	if err != nil {
		log.Printf("[session] ledger append for %s failed: %v", userID, err)
	}
}

// ─── Deadline Timers ────────────────────────────────────────────────────────
// Timer handles are process-local, keyed by challenge id. Only ExpiresAt
// is persisted; Recover rebuilds the handles after a restart.

func (e *Engine) scheduleExpiry(userID string, ch domain.Challenge) {
	if ch.ExpiresAt == nil {
		return
	}
	d := ch.ExpiresAt.Sub(e.now())
	if d < 0 {
		d = 0
	}
	e.timersMu.Lock()
	e.timers[ch.ID] = time.AfterFunc(d, func() { e.expireChallenge(userID, ch.ID) })
	e.timersMu.Unlock()
	e.metrics.ActiveTimers.Inc()
}

// cancelExpiry stops and forgets the deadline timer, if any. A timer whose
// callback is already running is not a problem: the callback waits on the
// user lock and then fails the challenge-identity guard.
func (e *Engine) cancelExpiry(challengeID string) {
	e.timersMu.Lock()
	t, ok := e.timers[challengeID]
	if ok {
		t.Stop()
		delete(e.timers, challengeID)
	}
	e.timersMu.Unlock()
	if ok {
		e.metrics.ActiveTimers.Dec()
	}
}

// expireChallenge is the deadline callback. First writer wins: if the
// challenge was already resolved (or replaced) by the time we hold the
// user lock, the identity guard fails and this is a no-op.
func (e *Engine) expireChallenge(userID, challengeID string) {
	lk := e.userLock(userID)
	lk.Lock()

	e.timersMu.Lock()
	if _, ok := e.timers[challengeID]; ok {
		delete(e.timers, challengeID)
		e.metrics.ActiveTimers.Dec()
	}
	e.timersMu.Unlock()

	u, ok := e.repo.User(userID)
	if !ok || u.Mode != domain.ModeAwaitingVerification ||
		u.Challenge == nil || u.Challenge.ID != challengeID {
		lk.Unlock()
		return
	}
	taskID := int64(0)
	if u.Challenge.Task != nil {
		taskID = u.Challenge.Task.ID
	}
	err := e.repo.UpdateUser(userID, func(u *domain.UserRecord) error {
		u.Challenge = nil
		u.Mode = domain.ModeIdle
		return nil
	})
	lk.Unlock()

	if err != nil {
		log.Printf("[session] expire challenge for %s: %v", userID, err)
		return
	}
	e.metrics.Challenges.WithLabelValues("expired").Inc()
	e.reply(context.Background(),
		userID, fmt.Sprintf("Time is up for task %d. %s", taskID, commands.ErrorReply(domain.ErrChallengeExpired)))
}

// Recover rebuilds deadline timers after a restart: overdue task
// challenges expire immediately, the rest are rescheduled for their
// remaining window. Claim challenges have no deadline and stay pending.
func (e *Engine) Recover() {
	now := e.now()
	for _, u := range e.repo.Users() {
		if u.Mode != domain.ModeAwaitingVerification || u.Challenge == nil || u.Challenge.ExpiresAt == nil {
			continue
		}
		if u.Challenge.ExpiresAt.After(now) {
			log.Printf("[session] rescheduling challenge %s for user %s", u.Challenge.ID, u.ID)
			e.scheduleExpiry(u.ID, *u.Challenge)
		} else {
			log.Printf("[session] expiring overdue challenge %s for user %s", u.Challenge.ID, u.ID)
			e.scheduleExpiry(u.ID, domain.Challenge{ID: u.Challenge.ID, ExpiresAt: &now})
		}
	}
}
