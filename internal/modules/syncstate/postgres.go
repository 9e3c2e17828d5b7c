package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a Postgres-backed sync-state repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Get(ctx context.Context, tableName string) (*SyncState, error) {
	s := &SyncState{}
	err := r.db.QueryRowContext(ctx, `
		SELECT table_name, last_sync_at, records_synced, updated_at
		FROM sync_state WHERE table_name = $1`, tableName).Scan(
		&s.TableName, &s.LastSyncAt, &s.RecordsSynced, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state %s: %w", tableName, err)
	}
	return s, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, tableName string, lastSyncAt time.Time, recordsSynced int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (table_name, last_sync_at, records_synced, updated_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (table_name) DO UPDATE SET
		  last_sync_at = EXCLUDED.last_sync_at,
		  records_synced = EXCLUDED.records_synced,
		  updated_at = NOW()`,
		tableName, lastSyncAt, recordsSynced)
	if err != nil {
		return fmt.Errorf("upsert sync state %s: %w", tableName, err)
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*SyncState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT table_name, last_sync_at, records_synced, updated_at
		FROM sync_state ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*SyncState
	for rows.Next() {
		s := &SyncState{}
		if err := rows.Scan(&s.TableName, &s.LastSyncAt, &s.RecordsSynced, &s.UpdatedAt); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
