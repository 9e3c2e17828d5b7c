package syncstate

import (
	"context"
	"time"
)

// Repository defines sync-state persistence.
type Repository interface {
	// Get returns the state for a table, or ErrNotFound if it never synced.
	Get(ctx context.Context, tableName string) (*SyncState, error)
	// Upsert records a sync. Idempotent, keyed by table name.
	Upsert(ctx context.Context, tableName string, lastSyncAt time.Time, recordsSynced int) error
	// List returns all recorded states, for operator inspection.
	List(ctx context.Context) ([]*SyncState, error)
}
