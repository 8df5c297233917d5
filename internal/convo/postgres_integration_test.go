//go:build integration

package convo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabayan/chatd/internal/testutil"
)

func setupPostgres(t *testing.T) *Postgres {
	t.Helper()

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	require.NoError(t, Migrate(db.ConnStr))

	store, err := NewPostgres(context.Background(), db.ConnStr, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func TestPostgresRoundTrip_Integration(t *testing.T) {
	ctx := context.Background()
	store := setupPostgres(t)

	c, err := store.Create(ctx, "qa")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "qa", c.Mode)
	assert.NotZero(t, c.CreatedAt)

	require.NoError(t, store.Append(ctx, c.ID, userMessage("hello"), userMessage("world")))

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "qa", got.Mode)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.JSONEq(t, string(userMessage("hello").Payload), string(got.Messages[0].Payload))

	require.NoError(t, store.Delete(ctx, c.ID))

	_, err = store.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresNotFound_Integration(t *testing.T) {
	ctx := context.Background()
	store := setupPostgres(t)
	id := uuid.New()

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Append(ctx, id, userMessage("x")), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}

func TestPostgresAppendOrdering_Integration(t *testing.T) {
	ctx := context.Background()
	store := setupPostgres(t)

	c, err := store.Create(ctx, "user")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, store.Append(ctx, c.ID, userMessage(text)))
	}

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Contains(t, string(got.Messages[0].Payload), "one")
	assert.Contains(t, string(got.Messages[2].Payload), "three")
}

func TestPostgresSweep_Integration(t *testing.T) {
	ctx := context.Background()
	store := setupPostgres(t)

	stale, err := store.Create(ctx, "user")
	require.NoError(t, err)
	fresh, err := store.Create(ctx, "user")
	require.NoError(t, err)

	// Age the first conversation past the retention window. Recent
	// activity must not save it.
	cutoff := time.Now().Add(-Retention - time.Hour)
	_, err = store.pool.Exec(ctx, `UPDATE conversations SET created_at = $1 WHERE id = $2`, cutoff, stale.ID)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, stale.ID, userMessage("too late")))

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
