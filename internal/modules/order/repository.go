package order

import (
	"context"

	"github.com/mkandawire/possync/internal/modules/catalog"
)

// Repository defines order storage. Upserts write the order row and its line
// items as one unit; InTx groups many upserts into a single commit.
type Repository interface {
	// Upsert inserts or updates the order by remote id. When the order row
	// changes, its line items are replaced wholesale.
	Upsert(ctx context.Context, o *Order) (catalog.UpsertOutcome, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*Order, error)
	Count(ctx context.Context) (int, error)
	// ClearAll wipes orders and line items ahead of a full refresh.
	ClearAll(ctx context.Context) error

	InTx(ctx context.Context, fn func(Repository) error) error
}
