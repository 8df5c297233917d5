// Package convo stores chat conversations: the transcript the assistant
// replays to the model on every turn, plus bookkeeping for retention.
package convo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Retention is how long a conversation is kept after creation. Activity
// does not extend it.
const Retention = 24 * time.Hour

// Message is one transcript entry. Payload holds the encoded turn: the
// user prompt or the final assistant answer. Intermediate tool exchanges
// are never stored.
type Message struct {
	Role      string          `json:"role"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Conversation is a chat session. Mode is fixed at creation and governs
// every later turn. CreatedAt drives retention; UpdatedAt tracks the last
// activity for diagnostics only.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Store persists conversations. Implementations are safe for concurrent use.
type Store interface {
	// Create starts a new empty conversation with the given chat mode.
	Create(ctx context.Context, mode string) (*Conversation, error)

	// Get returns a conversation by id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// Append adds messages to a conversation and refreshes its activity
	// timestamp. Returns ErrNotFound for unknown conversations.
	Append(ctx context.Context, id uuid.UUID, msgs ...Message) error

	// Delete removes a conversation and its messages. Returns ErrNotFound
	// when nothing was deleted.
	Delete(ctx context.Context, id uuid.UUID) error
}
