package convo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pasabayan/chatd/internal/log"
)

// sweepInterval is how often the background sweeper evicts expired
// conversations.
const sweepInterval = time.Hour

// Memory is an in-process Store. Conversations live for the retention
// window counted from creation, regardless of later activity.
type Memory struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*Conversation
	retention     time.Duration
	logger        log.Logger
	now           func() time.Time
}

// NewMemory returns an empty in-memory store with the default retention.
func NewMemory(logger log.Logger) *Memory {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Memory{
		conversations: make(map[uuid.UUID]*Conversation),
		retention:     Retention,
		logger:        logger,
		now:           time.Now,
	}
}

func (m *Memory) Create(_ context.Context, mode string) (*Conversation, error) {
	now := m.now()
	c := &Conversation{
		ID:        uuid.New(),
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.conversations[c.ID] = c
	m.mu.Unlock()

	m.logger.Debug("conversation created", "id", c.ID)
	return c.clone(), nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.clone(), nil
}

func (m *Memory) Append(_ context.Context, id uuid.UUID, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}

	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = m.now()
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	return nil
}

// Sweep evicts conversations created before the retention cutoff and
// reports how many were removed.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, c := range m.conversations {
		if c.CreatedAt.Before(cutoff) {
			delete(m.conversations, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("evicted expired conversations", "count", removed)
	}
	return removed
}

// StartSweeper runs Sweep hourly until ctx is cancelled.
func (m *Memory) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Len reports the number of stored conversations.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

func (c *Conversation) clone() *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
