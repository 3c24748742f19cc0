package domain

import "time"

// ─── Ledger Types ───────────────────────────────────────────────────────────
// Every credit is mirrored by an append-only ledger row written in the same
// event as the balance change. The ledger only ever records increases made
// by the session engine; it never competes with the engine for the mode
// field.

// TransactionType is the business reason for a credit.
type TransactionType string

const (
	TxBonus TransactionType = "BONUS" // daily bonus claim
	TxTask  TransactionType = "TASK"  // verified task completion
	TxGame  TransactionType = "GAME"  // guessing game win
)

// LedgerEntry is a single row in the credit audit log.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      TransactionType `json:"type"`
	UserID    string          `json:"user_id"`
	Amount    int64           `json:"amount"`
	TaskID    int64           `json:"task_id,omitempty"`
	Balance   int64           `json:"balance"` // balance after the credit
}
