package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Handlers wrap these
// with context (usage hints, ids) via fmt.Errorf("…: %w", Err…) and the
// router maps them to user-facing replies.

var (
	// Validation: malformed numeric argument, empty description, min > max.
	// Reported with a usage hint, no state mutation.
	ErrValidation = errors.New("invalid argument")

	// Not found: unknown task id or unknown target user.
	ErrNotFound = errors.New("not found")

	// Permission: non-admin invoking an admin command. Fixed refusal.
	ErrPermission = errors.New("admin only")

	// Already done: bonus already claimed today, task already completed today.
	ErrAlreadyDone = errors.New("already done today")

	// Challenge outcomes: both consume the challenge without credit.
	ErrChallengeMismatch = errors.New("verification token mismatch")
	ErrChallengeExpired  = errors.New("verification challenge expired")

	// Upstream: AI or media generation failure. Reported generically,
	// no retry, logged for operators.
	ErrUpstream = errors.New("upstream generation failed")
)
