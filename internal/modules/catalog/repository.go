package catalog

import "context"

// Repository defines storage for all catalog-side synced entities.
// InTx runs fn against a transactional view of the same repository; every
// write inside fn commits or rolls back as one unit.
type Repository interface {
	UpsertLocation(ctx context.Context, l *Location) (UpsertOutcome, error)
	UpsertCategory(ctx context.Context, c *Category) (UpsertOutcome, error)
	UpsertItem(ctx context.Context, i *Item) (UpsertOutcome, error)
	UpsertVariation(ctx context.Context, v *Variation) (UpsertOutcome, error)
	UpsertVendor(ctx context.Context, v *Vendor) (UpsertOutcome, error)
	UpsertInventoryLevel(ctx context.Context, lvl *InventoryLevel) (UpsertOutcome, error)

	// RemoteIDs returns the remote ids of all non-deleted rows of the kind.
	RemoteIDs(ctx context.Context, kind Kind) (map[string]struct{}, error)
	// MarkDeleted soft-deletes the given remote ids. Rows are never removed.
	MarkDeleted(ctx context.Context, kind Kind, remoteIDs []string) error
	// ClearForRefresh deletes all rows of the kind and its dependents,
	// children first, so a full snapshot can be re-inserted.
	ClearForRefresh(ctx context.Context, kind Kind) error
	// Count returns the total row count of the kind, deleted rows included.
	Count(ctx context.Context, kind Kind) (int, error)
	// ActiveLocationIDs returns remote ids of non-deleted ACTIVE locations.
	ActiveLocationIDs(ctx context.Context) ([]string, error)

	InTx(ctx context.Context, fn func(Repository) error) error
}
