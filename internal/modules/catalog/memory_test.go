package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertOutcomeClassification(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	item := &Item{RemoteID: "I1", Name: "Coffee"}
	outcome, err := repo.UpsertItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, Inserted, outcome)

	outcome, err = repo.UpsertItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)

	item.Name = "Espresso"
	outcome, err = repo.UpsertItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
}

func TestRemoteIDsExcludesSoftDeleted(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.UpsertItem(ctx, &Item{RemoteID: "I1", Name: "Coffee"})
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, &Item{RemoteID: "I2", Name: "Tea"})
	require.NoError(t, err)

	require.NoError(t, repo.MarkDeleted(ctx, KindItems, []string{"I2"}))

	ids, err := repo.RemoteIDs(ctx, KindItems)
	require.NoError(t, err)
	assert.Contains(t, ids, "I1")
	assert.NotContains(t, ids, "I2")

	n, err := repo.Count(ctx, KindItems)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "soft delete keeps the row")
}

func TestClearForRefreshCascadesToDependents(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.UpsertCategory(ctx, &Category{RemoteID: "C1", Name: "Drinks"})
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, &Item{RemoteID: "I1", Name: "Coffee", CategoryID: "C1"})
	require.NoError(t, err)
	_, err = repo.UpsertVariation(ctx, &Variation{RemoteID: "V1", ItemID: "I1", Name: "Large"})
	require.NoError(t, err)
	_, err = repo.UpsertInventoryLevel(ctx, &InventoryLevel{CatalogObjectID: "V1", LocationID: "L1", Quantity: 5})
	require.NoError(t, err)

	require.NoError(t, repo.ClearForRefresh(ctx, KindCategories))

	for _, kind := range []Kind{KindCategories, KindItems, KindVariations, KindInventory} {
		n, err := repo.Count(ctx, kind)
		require.NoError(t, err)
		assert.Zero(t, n, "%s should be cleared", kind)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.UpsertItem(ctx, &Item{RemoteID: "I1", Name: "Coffee"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.UpsertItem(ctx, &Item{RemoteID: "I2", Name: "Tea"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := repo.Count(ctx, KindItems)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "writes inside a failed transaction are discarded")
}

func TestActiveLocationIDsFiltersStatusAndDeleted(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, l := range []*Location{
		{RemoteID: "L1", Name: "Main", Status: "ACTIVE"},
		{RemoteID: "L2", Name: "Closed", Status: "INACTIVE"},
		{RemoteID: "L3", Name: "Old", Status: "ACTIVE"},
	} {
		_, err := repo.UpsertLocation(ctx, l)
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkDeleted(ctx, KindLocations, []string{"L3"}))

	ids, err := repo.ActiveLocationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, ids)
}
