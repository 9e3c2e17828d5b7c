package syncstate

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no sync state exists for a table. Absence
// means the next incremental sync must fetch full history.
var ErrNotFound = errors.New("syncstate: not found")

// SyncState records the last successful sync of one table. One row per
// table name; rows are upserted after every run and never deleted.
type SyncState struct {
	TableName     string    `json:"table_name"`
	LastSyncAt    time.Time `json:"last_sync_at"`
	RecordsSynced int       `json:"records_synced"`
	UpdatedAt     time.Time `json:"updated_at"`
}
