package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func userMessage(text string) Message {
	payload, _ := json.Marshal(map[string]any{
		"role":    "user",
		"content": []map[string]any{{"type": "text", "text": text}},
	})
	return Message{Role: "user", Payload: payload, CreatedAt: time.Now()}
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory(nil)

	c, err := store.Create(ctx, "admin")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "admin", c.Mode)
	assert.Empty(t, c.Messages)

	require.NoError(t, store.Append(ctx, c.ID, userMessage("hello"), userMessage("again")))

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "admin", got.Mode)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	require.NoError(t, store.Delete(ctx, c.ID))

	_, err = store.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory(nil)
	id := uuid.New()

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Append(ctx, id, userMessage("x")), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory(nil)

	c, err := store.Create(ctx, "user")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, c.ID, userMessage("original")))

	first, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	first.Messages[0].Role = "mangled"
	first.Messages = append(first.Messages, userMessage("extra"))

	second, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	assert.Equal(t, "user", second.Messages[0].Role)
}

func TestMemoryConcurrentAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory(nil)

	const conversations = 8
	const perConversation = 25

	ids := make([]uuid.UUID, conversations)
	for i := range ids {
		c, err := store.Create(ctx, "user")
		require.NoError(t, err)
		ids[i] = c.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for j := 0; j < perConversation; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Append(ctx, id, userMessage(fmt.Sprintf("msg-%d", j))))
			}()
		}
	}
	wg.Wait()

	for _, id := range ids {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, got.Messages, perConversation)
	}
}

func TestMemorySweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory(nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	stale, err := store.Create(ctx, "user")
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(10 * time.Minute) }
	fresh, err := store.Create(ctx, "user")
	require.NoError(t, err)

	// Just inside the window: nothing to evict.
	store.now = func() time.Time { return base.Add(Retention - time.Minute) }
	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 2, store.Len())

	// The first conversation ages out; the second was created later.
	store.now = func() time.Time { return base.Add(Retention + time.Minute) }
	assert.Equal(t, 1, store.Sweep())

	_, err = store.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemorySweeperStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemory(nil)
	store.StartSweeper(ctx)
	cancel()
}

func TestMemorySweepIgnoresActivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory(nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	c, err := store.Create(ctx, "user")
	require.NoError(t, err)

	// Activity near the end of the window does not extend it.
	store.now = func() time.Time { return base.Add(23 * time.Hour) }
	require.NoError(t, store.Append(ctx, c.ID, userMessage("still here")))

	store.now = func() time.Time { return base.Add(Retention + time.Minute) }
	assert.Equal(t, 1, store.Sweep())

	_, err = store.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
