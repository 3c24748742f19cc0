// Package session owns the per-user interaction state machine: whether a
// user is idle, awaiting a timed verification challenge, or mid-game, and
// every transition between those modes. Each inbound event for a user and
// each deadline callback for that user contend on the same per-user lock,
// so the race between "answered" and "expired" always has exactly one
// winner; the challenge-identity guard makes the loser a no-op.
package session

import (
	"context"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/poinbot/poinbot/internal/app/catalog"
	"github.com/poinbot/poinbot/internal/app/commands"
	"github.com/poinbot/poinbot/internal/app/repo"
	"github.com/poinbot/poinbot/internal/domain"
	"github.com/poinbot/poinbot/internal/infra/metrics"
)

// Config controls engine behavior.
type Config struct {
	Prefix      string // command prefix, default "/"
	GameReward  int64  // fixed reward for winning the guessing game
	TokenLength int    // verification token length
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Prefix:      "/",
		GameReward:  100,
		TokenLength: 6,
	}
}

// Deps are the engine's collaborators.
type Deps struct {
	Repo      *repo.Repository
	Catalog   *catalog.Catalog
	Handler   *commands.Handler
	Messenger domain.Messenger
	Assistant domain.Assistant
	Metrics   *metrics.Set
	NewToken  func(n int) string // verification token source
}

// Engine is the session state machine.
type Engine struct {
	cfg Config

	repo     *repo.Repository
	catalog  *catalog.Catalog
	handler  *commands.Handler
	msgr     domain.Messenger
	ai       domain.Assistant
	metrics  *metrics.Set
	newToken func(n int) string

	now func() time.Time // test hook

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer // challenge id → deadline timer
}

// New creates a session engine.
func New(cfg Config, d Deps) *Engine {
	if cfg.Prefix == "" {
		cfg.Prefix = "/"
	}
	return &Engine{
		cfg:      cfg,
		repo:     d.Repo,
		catalog:  d.Catalog,
		handler:  d.Handler,
		msgr:     d.Messenger,
		ai:       d.Assistant,
		metrics:  d.Metrics,
		newToken: d.NewToken,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
		timers:   make(map[string]*time.Timer),
	}
}

// HandleMessage processes one inbound chat event. It always runs the daily
// rollover first, then either resolves a pending challenge, plays a game
// turn, or dispatches an idle command. Replies confirming a credit are
// sent only after the corresponding store write succeeded.
func (e *Engine) HandleMessage(ctx context.Context, senderID, text string) error {
	text = strings.TrimSpace(text)
	if senderID == "" || text == "" {
		return nil
	}
	e.metrics.InboundMessages.Inc()

	if _, _, err := e.repo.GetOrCreateUser(senderID, e.now()); err != nil {
		return err
	}

	lk := e.userLock(senderID)
	lk.Lock()

	u, ok := e.repo.User(senderID)
	if !ok {
		// Deleted between creation and lock; treat as dropped.
		lk.Unlock()
		return nil
	}
	if u.Blocked {
		lk.Unlock()
		e.reply(ctx, senderID, "Your account is blocked.")
		return nil
	}

	// Rollover before any mode-specific handling.
	if err := e.repo.UpdateUser(senderID, func(u *domain.UserRecord) error {
		u.Rollover(e.now())
		return nil
	}); err != nil {
		lk.Unlock()
		return err
	}
	u, _ = e.repo.User(senderID)

	var (
		replies  []string
		deferred func() // AI work runs after the lock is released
		err      error
	)
	switch u.Mode {
	case domain.ModeAwaitingVerification:
		replies, err = e.resolveChallenge(u, text)
	case domain.ModeInGame:
		replies, err = e.gameTurn(u, text)
	default:
		replies, deferred, err = e.dispatchIdle(ctx, u, text)
	}
	lk.Unlock()

	if err != nil {
		log.Printf("[session] user=%s: %v", senderID, err)
		e.reply(ctx, senderID, commands.ErrorReply(err))
		return nil
	}
	for _, r := range replies {
		e.reply(ctx, senderID, r)
	}
	if deferred != nil {
		deferred()
	}
	return nil
}

// dispatchIdle routes an idle user's message: state-entering commands stay
// here, direct commands go to the handler, and free text or unrecognized
// keywords become deferred AI work.
func (e *Engine) dispatchIdle(ctx context.Context, u domain.UserRecord, text string) ([]string, func(), error) {
	cmd, err := commands.Parse(text, e.cfg.Prefix)
	if err != nil {
		return nil, nil, err
	}
	e.metrics.Commands.WithLabelValues(commands.KindName(cmd)).Inc()

	switch c := cmd.(type) {
	case commands.Claim:
		reply, err := e.startClaim(u.ID)
		return []string{reply}, nil, err

	case commands.CompleteTask:
		reply, err := e.startTask(u.ID, c.TaskID)
		return []string{reply}, nil, err

	case commands.StartGame:
		reply, err := e.startGame(u.ID)
		return []string{reply}, nil, err

	case commands.Freeform:
		return nil, func() { e.chat(ctx, u.ID, c.Text) }, nil

	case commands.Unknown:
		return nil, func() { e.explainUnknown(ctx, u.ID, c.Keyword) }, nil

	case commands.Image:
		return nil, func() { e.generateImage(ctx, u.ID, c.Prompt) }, nil

	case commands.Video:
		return nil, func() { e.generateVideo(ctx, u.ID, c.Prompt) }, nil

	default:
		reply, err := e.handler.Execute(ctx, u, cmd)
		if err != nil {
			return nil, nil, err
		}
		return []string{reply}, nil, nil
	}
}

// userLock returns the mutex serializing all events for one user.
func (e *Engine) userLock(id string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lk, ok := e.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		e.locks[id] = lk
	}
	return lk
}

func (e *Engine) reply(ctx context.Context, userID, text string) {
	if err := e.msgr.Reply(ctx, userID, text); err != nil {
		log.Printf("[session] reply to %s failed: %v", userID, err)
	}
}

// randRange draws a uniform integer in [min, max] inclusive.
func randRange(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rand.Int64N(max-min+1)
}
