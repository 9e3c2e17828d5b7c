package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// dbtx is the common surface of *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresRepo struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgresRepository creates a Postgres-backed catalog repository.
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

// ── generic upsert ───────────────────────────────────────────────────────────

// upsertSpec describes one table's insert-or-update-by-key statement. The
// same builder serves every synced table; per-table SQL is data, not code.
type upsertSpec struct {
	table   string
	keyCols []string
	cols    []string // keyCols first, then value columns
	// touch bumps updated_at on change for tables with no upstream
	// timestamp; the column stays out of the change comparison.
	touch bool
}

// upsert runs INSERT .. ON CONFLICT DO UPDATE guarded so that a write
// identical to the stored row is a no-op, and classifies the outcome.
func (r *postgresRepo) upsert(ctx context.Context, spec upsertSpec, vals ...interface{}) (UpsertOutcome, error) {
	if len(vals) != len(spec.cols) {
		return Unchanged, fmt.Errorf("upsert %s: %d values for %d columns", spec.table, len(vals), len(spec.cols))
	}

	placeholders := make([]string, len(spec.cols))
	for i := range spec.cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var sets, current, excluded []string
	for _, col := range spec.cols[len(spec.keyCols):] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		current = append(current, fmt.Sprintf("%s.%s", spec.table, col))
		excluded = append(excluded, "EXCLUDED."+col)
	}
	if spec.touch {
		sets = append(sets, "updated_at = NOW()")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT (%s) DO UPDATE SET %s
		WHERE (%s) IS DISTINCT FROM (%s)
		RETURNING (xmax = 0)`,
		spec.table,
		strings.Join(spec.cols, ","),
		strings.Join(placeholders, ","),
		strings.Join(spec.keyCols, ","),
		strings.Join(sets, ", "),
		strings.Join(current, ","),
		strings.Join(excluded, ","))

	var inserted bool
	err := r.runner().QueryRowContext(ctx, query, vals...).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict row already identical: the guarded update wrote nothing.
		return Unchanged, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("upsert %s: %w", spec.table, err)
	}
	if inserted {
		return Inserted, nil
	}
	return Updated, nil
}

func (r *postgresRepo) UpsertLocation(ctx context.Context, l *Location) (UpsertOutcome, error) {
	return r.upsert(ctx, upsertSpec{
		table:   "locations",
		keyCols: []string{"remote_id"},
		cols:    []string{"remote_id", "name", "status", "is_deleted"},
		touch:   true,
	}, l.RemoteID, l.Name, l.Status, l.IsDeleted)
}

func (r *postgresRepo) UpsertCategory(ctx context.Context, c *Category) (UpsertOutcome, error) {
	return r.upsert(ctx, upsertSpec{
		table:   "catalog_categories",
		keyCols: []string{"remote_id"},
		cols:    []string{"remote_id", "name", "is_deleted", "updated_at"},
	}, c.RemoteID, c.Name, c.IsDeleted, c.UpdatedAt)
}

func (r *postgresRepo) UpsertItem(ctx context.Context, i *Item) (UpsertOutcome, error) {
	return r.upsert(ctx, upsertSpec{
		table:   "catalog_items",
		keyCols: []string{"remote_id"},
		cols:    []string{"remote_id", "name", "description", "category_id", "is_deleted", "updated_at"},
	}, i.RemoteID, i.Name, i.Description, i.CategoryID, i.IsDeleted, i.UpdatedAt)
}

func (r *postgresRepo) UpsertVariation(ctx context.Context, v *Variation) (UpsertOutcome, error) {
	return r.upsert(ctx, upsertSpec{
		table:   "catalog_variations",
		keyCols: []string{"remote_id"},
		cols:    []string{"remote_id", "item_id", "name", "sku", "price_amount", "currency", "is_deleted", "updated_at"},
	}, v.RemoteID, v.ItemID, v.Name, v.SKU, v.PriceAmount, v.Currency, v.IsDeleted, v.UpdatedAt)
}

func (r *postgresRepo) UpsertVendor(ctx context.Context, v *Vendor) (UpsertOutcome, error) {
	return r.upsert(ctx, upsertSpec{
		table:   "vendors",
		keyCols: []string{"remote_id"},
		cols:    []string{"remote_id", "name", "status", "is_deleted", "updated_at"},
	}, v.RemoteID, v.Name, v.Status, v.IsDeleted, v.UpdatedAt)
}

func (r *postgresRepo) UpsertInventoryLevel(ctx context.Context, lvl *InventoryLevel) (UpsertOutcome, error) {
	return r.upsert(ctx, upsertSpec{
		table:   "inventory_levels",
		keyCols: []string{"catalog_object_id", "location_id"},
		cols:    []string{"catalog_object_id", "location_id", "quantity", "calculated_at"},
	}, lvl.CatalogObjectID, lvl.LocationID, lvl.Quantity, lvl.CalculatedAt)
}

// ── set operations ───────────────────────────────────────────────────────────

func (r *postgresRepo) RemoteIDs(ctx context.Context, kind Kind) (map[string]struct{}, error) {
	if kind == KindInventory {
		return nil, fmt.Errorf("remote ids: %s has no remote_id key", kind)
	}
	rows, err := r.runner().QueryContext(ctx,
		fmt.Sprintf(`SELECT remote_id FROM %s WHERE is_deleted = false`, kind.Table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (r *postgresRepo) MarkDeleted(ctx context.Context, kind Kind, remoteIDs []string) error {
	if kind == KindInventory {
		return fmt.Errorf("mark deleted: %s has no soft-delete flag", kind)
	}
	if len(remoteIDs) == 0 {
		return nil
	}
	_, err := r.runner().ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_deleted = true, updated_at = NOW() WHERE remote_id = ANY($1)`, kind.Table()),
		pq.Array(remoteIDs))
	return err
}

// clearOrder lists, children first, every table wiped by a full refresh of
// the kind. Dependents go first so plain DELETEs never trip an FK.
var clearOrder = map[Kind][]string{
	KindInventory:  {"inventory_levels"},
	KindVariations: {"inventory_levels", "catalog_variations"},
	KindItems:      {"inventory_levels", "catalog_variations", "catalog_items"},
	KindCategories: {"inventory_levels", "catalog_variations", "catalog_items", "catalog_categories"},
	KindLocations:  {"inventory_levels", "locations"},
	KindVendors:    {"vendors"},
}

func (r *postgresRepo) ClearForRefresh(ctx context.Context, kind Kind) error {
	tables, ok := clearOrder[kind]
	if !ok {
		return fmt.Errorf("clear for refresh: unknown kind %q", kind)
	}
	for _, table := range tables {
		if _, err := r.runner().ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (r *postgresRepo) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	err := r.runner().QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, kind.Table())).Scan(&n)
	return n, err
}

func (r *postgresRepo) ActiveLocationIDs(ctx context.Context) ([]string, error) {
	rows, err := r.runner().QueryContext(ctx,
		`SELECT remote_id FROM locations WHERE is_deleted = false AND status = 'ACTIVE' ORDER BY remote_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
