package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/possync/internal/modules/catalog"
)

func sampleOrder() *Order {
	return &Order{
		RemoteID:    "O1",
		LocationID:  "L1",
		State:       "COMPLETED",
		TotalAmount: 900,
		Currency:    "USD",
		CreatedAt:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 6, 1, 9, 5, 0, 0, time.UTC),
		LineItems: []*LineItem{
			{OrderID: "O1", UID: "li-1", Name: "Coffee", CatalogObjectID: "V1", Quantity: 2, Amount: 900},
		},
	}
}

func TestUpsertClassifiesOutcome(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	outcome, err := repo.Upsert(ctx, sampleOrder())
	require.NoError(t, err)
	assert.Equal(t, catalog.Inserted, outcome)

	outcome, err = repo.Upsert(ctx, sampleOrder())
	require.NoError(t, err)
	assert.Equal(t, catalog.Unchanged, outcome)

	changed := sampleOrder()
	changed.TotalAmount = 1000
	outcome, err = repo.Upsert(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, catalog.Updated, outcome)
}

func TestLineItemChangeIsAnUpdate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Upsert(ctx, sampleOrder())
	require.NoError(t, err)

	changed := sampleOrder()
	changed.LineItems[0].Quantity = 3
	outcome, err := repo.Upsert(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, catalog.Updated, outcome)

	got, err := repo.GetByRemoteID(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, 3, got.LineItems[0].Quantity)
}

func TestGetByRemoteIDMissing(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetByRemoteID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInTxRollsBackOnError(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Upsert(ctx, sampleOrder())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(tx Repository) error {
		if err := tx.ClearAll(ctx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
