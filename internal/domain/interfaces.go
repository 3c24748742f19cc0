package domain

import "context"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers. Infrastructure
// implements them; the session engine and command handlers depend on them.

// Messenger abstracts the messaging transport. Replies confirming a credit
// are only sent after the durable store write for that credit succeeded.
type Messenger interface {
	// Reply sends a text message to the user.
	Reply(ctx context.Context, userID, text string) error

	// SendMedia sends binary media with a caption to the user.
	SendMedia(ctx context.Context, userID, mime string, data []byte, caption string) error
}

// Assistant abstracts the generative-AI backend. One attempt per request,
// no retry policy; failures surface as ErrUpstream.
type Assistant interface {
	// Chat sends a prompt on the given conversation and returns the
	// generated reply text.
	Chat(ctx context.Context, conversationID, prompt string) (string, error)

	// GenerateImage returns generated image bytes for the prompt.
	GenerateImage(ctx context.Context, prompt string) (mime string, data []byte, err error)

	// GenerateVideo starts a video job and polls until it yields a
	// retrievable link.
	GenerateVideo(ctx context.Context, prompt string) (url string, err error)

	// Reset clears the conversation history.
	Reset(conversationID string)
}

// Store is the durable record store: read-all/write-all per collection,
// no partial or field-level updates. WriteAll replaces the collection
// atomically; a failed write leaves the previous contents intact.
type Store interface {
	ReadUsers() ([]UserRecord, error)
	WriteUsers([]UserRecord) error

	ReadTasks() ([]TaskRecord, error)
	WriteTasks([]TaskRecord) error

	// ReadConfig returns nil when no config record exists yet.
	ReadConfig() (*BotConfig, error)
	WriteConfig(BotConfig) error

	// AppendLedger adds an audit row; entries are never rewritten.
	AppendLedger(LedgerEntry) error
	ReadLedger(userID string, limit int) ([]LedgerEntry, error)

	Close() error
}
