package sync

import (
	"context"
	"fmt"

	"github.com/mkandawire/possync/internal/modules/catalog"
)

// record is one remote catalog record staged for reconciliation. A record
// with a skip reason is counted and never written; the referential checks
// that produce skip reasons run here, in application code, so one bad child
// cannot abort the whole batch through an FK rejection.
type record struct {
	id         string
	skipReason string
	write      func(ctx context.Context, repo catalog.Repository) (catalog.UpsertOutcome, error)
}

// applyFullRefresh clears the kind and its dependents, then inserts the
// remote snapshot, all in one transaction. Nothing is diffed, so the
// deleted counter stays zero.
func applyFullRefresh(ctx context.Context, root catalog.Repository, kind catalog.Kind, records []record, res *Result) error {
	return root.InTx(ctx, func(repo catalog.Repository) error {
		if err := repo.ClearForRefresh(ctx, kind); err != nil {
			return err
		}
		for _, rec := range records {
			if rec.skipReason != "" {
				res.RecordsSkipped++
				continue
			}
			if _, err := rec.write(ctx, repo); err != nil {
				return err
			}
			res.RecordsAdded++
		}
		return nil
	})
}

// applyIncremental diffs remote ids against local non-deleted ids,
// soft-deletes rows the remote no longer reports, and upserts every remote
// record, all in one transaction. Rows are never physically removed.
func applyIncremental(ctx context.Context, root catalog.Repository, kind catalog.Kind, records []record, res *Result) error {
	return root.InTx(ctx, func(repo catalog.Repository) error {
		local, err := repo.RemoteIDs(ctx, kind)
		if err != nil {
			return fmt.Errorf("load local ids for %s: %w", kind, err)
		}

		remoteIDs := make(map[string]struct{}, len(records))
		for _, rec := range records {
			if rec.skipReason == "" {
				remoteIDs[rec.id] = struct{}{}
			}
		}

		var gone []string
		for id := range local {
			if _, ok := remoteIDs[id]; !ok {
				gone = append(gone, id)
			}
		}
		if len(gone) > 0 {
			if err := repo.MarkDeleted(ctx, kind, gone); err != nil {
				return fmt.Errorf("soft-delete %d %s rows: %w", len(gone), kind, err)
			}
			res.RecordsDeleted += len(gone)
		}

		for _, rec := range records {
			if rec.skipReason != "" {
				res.RecordsSkipped++
				continue
			}
			outcome, err := rec.write(ctx, repo)
			if err != nil {
				return err
			}
			switch outcome {
			case catalog.Inserted:
				res.RecordsAdded++
			case catalog.Updated:
				res.RecordsUpdated++
			}
		}
		return nil
	})
}

// applyInventory writes deduplicated levels. Inventory has no soft-delete
// flag; a full refresh clears the table first, an incremental pass only
// upserts by (object, location).
func applyInventory(ctx context.Context, root catalog.Repository, mode Mode, levels []*catalog.InventoryLevel, res *Result) error {
	return root.InTx(ctx, func(repo catalog.Repository) error {
		if mode == ModeFullRefresh {
			if err := repo.ClearForRefresh(ctx, catalog.KindInventory); err != nil {
				return err
			}
		}
		for _, lvl := range levels {
			outcome, err := repo.UpsertInventoryLevel(ctx, lvl)
			if err != nil {
				return err
			}
			switch outcome {
			case catalog.Inserted:
				res.RecordsAdded++
			case catalog.Updated:
				res.RecordsUpdated++
			}
		}
		return nil
	})
}
