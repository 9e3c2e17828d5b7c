package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkandawire/possync/internal/modules/catalog"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresRepo struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgresRepository creates a Postgres-backed order repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) runner() dbtx {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(&postgresRepo{db: r.db, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) Upsert(ctx context.Context, o *Order) (catalog.UpsertOutcome, error) {
	var inserted bool
	err := r.runner().QueryRowContext(ctx, `
		INSERT INTO orders
		  (remote_id, location_id, state, total_amount, currency, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (remote_id) DO UPDATE SET
		  location_id = EXCLUDED.location_id,
		  state = EXCLUDED.state,
		  total_amount = EXCLUDED.total_amount,
		  currency = EXCLUDED.currency,
		  created_at = EXCLUDED.created_at,
		  updated_at = EXCLUDED.updated_at
		WHERE (orders.location_id, orders.state, orders.total_amount, orders.currency, orders.created_at, orders.updated_at)
		  IS DISTINCT FROM
		      (EXCLUDED.location_id, EXCLUDED.state, EXCLUDED.total_amount, EXCLUDED.currency, EXCLUDED.created_at, EXCLUDED.updated_at)
		RETURNING (xmax = 0)`,
		o.RemoteID, o.LocationID, o.State, o.TotalAmount, o.Currency, o.CreatedAt, o.UpdatedAt,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Unchanged, nil
	}
	if err != nil {
		return catalog.Unchanged, fmt.Errorf("upsert order %s: %w", o.RemoteID, err)
	}

	// Order row changed: replace its line items wholesale.
	if _, err := r.runner().ExecContext(ctx,
		`DELETE FROM order_line_items WHERE order_id = $1`, o.RemoteID); err != nil {
		return catalog.Unchanged, fmt.Errorf("clear line items for %s: %w", o.RemoteID, err)
	}
	for _, li := range o.LineItems {
		if _, err := r.runner().ExecContext(ctx, `
			INSERT INTO order_line_items
			  (order_id, uid, name, catalog_object_id, quantity, amount)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.RemoteID, li.UID, li.Name, li.CatalogObjectID, li.Quantity, li.Amount); err != nil {
			return catalog.Unchanged, fmt.Errorf("insert line item %s/%s: %w", o.RemoteID, li.UID, err)
		}
	}

	if inserted {
		return catalog.Inserted, nil
	}
	return catalog.Updated, nil
}

func (r *postgresRepo) GetByRemoteID(ctx context.Context, remoteID string) (*Order, error) {
	o := &Order{}
	err := r.runner().QueryRowContext(ctx, `
		SELECT remote_id, location_id, state, total_amount, currency, created_at, updated_at
		FROM orders WHERE remote_id = $1`, remoteID).Scan(
		&o.RemoteID, &o.LocationID, &o.State, &o.TotalAmount, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.runner().QueryContext(ctx, `
		SELECT order_id, uid, name, catalog_object_id, quantity, amount
		FROM order_line_items WHERE order_id = $1 ORDER BY uid`, remoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		li := &LineItem{}
		if err := rows.Scan(&li.OrderID, &li.UID, &li.Name, &li.CatalogObjectID, &li.Quantity, &li.Amount); err != nil {
			return nil, err
		}
		o.LineItems = append(o.LineItems, li)
	}
	return o, rows.Err()
}

func (r *postgresRepo) ClearAll(ctx context.Context) error {
	if _, err := r.runner().ExecContext(ctx, `DELETE FROM order_line_items`); err != nil {
		return fmt.Errorf("clear order_line_items: %w", err)
	}
	if _, err := r.runner().ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	return nil
}

func (r *postgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.runner().QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}
