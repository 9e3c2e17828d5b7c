package syncstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBeforeFirstSync(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Get(context.Background(), "locations")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertReplacesByTableName(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, "orders", first, 10))
	require.NoError(t, repo.Upsert(ctx, "orders", first.Add(time.Hour), 25))

	s, err := repo.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, 25, s.RecordsSynced)
	assert.True(t, s.LastSyncAt.Equal(first.Add(time.Hour)))

	states, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 1, "one row per table")
}

func TestListSortedByTableName(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, "orders", now, 1))
	require.NoError(t, repo.Upsert(ctx, "locations", now, 2))

	states, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "locations", states[0].TableName)
	assert.Equal(t, "orders", states[1].TableName)
}
