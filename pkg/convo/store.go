package convo

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is the sentinel returned by Touch; Load never
// returns it directly — callers get an empty-session sentinel instead —
// but stores expose it so Touch can distinguish "expired" from
// "storage failure".
var ErrSessionNotFound = errors.New("convo: session not found")

// TTL is the sliding idle-expiry window for a conversation.
const TTL = 30 * time.Minute

// Store is the C2 contract: load/save/touch behind one interface,
// regardless of backend. Implementations
// must perform Save atomically per conversation_id; last-writer-wins
// across conversations is acceptable.
type Store interface {
	// Load returns the session for conversationID, or an empty sentinel
	// (Session.Empty() == true) if none exists. It fails only on storage
	// error.
	Load(ctx context.Context, conversationID string) (*Session, error)

	// Save persists the full message list and summary state.
	Save(ctx context.Context, session *Session) error

	// Touch refreshes TTL without mutating content.
	Touch(ctx context.Context, conversationID string) error

	// Close releases backend resources.
	Close() error
}
