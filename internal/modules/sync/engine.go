package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mkandawire/possync/internal/modules/catalog"
	"github.com/mkandawire/possync/internal/modules/order"
	"github.com/mkandawire/possync/internal/modules/remote"
	"github.com/mkandawire/possync/internal/modules/syncstate"
)

// ErrMissingDependency marks an entity that cannot sync because a
// prerequisite is absent. It is reported as a skip, never retried.
var ErrMissingDependency = errors.New("skipped: missing dependency")

// RemoteAPI is the slice of the POS platform client the engine needs.
type RemoteAPI interface {
	ListLocations(ctx context.Context) ([]remote.Location, error)
	SearchAllCatalogObjects(ctx context.Context, objectType remote.CatalogObjectType) ([]remote.CatalogObject, error)
	RetrieveAllInventory(ctx context.Context, locationIDs []string, updatedAfter time.Time) ([]remote.InventoryCount, error)
	SearchOrders(ctx context.Context, locationIDs []string, dr remote.DateRange, states []string, cursor string) ([]remote.Order, string, error)
	SearchVendors(ctx context.Context) ([]remote.Vendor, error)
}

// Config tunes engine behavior. Zero values fall back to defaults.
type Config struct {
	Environment       string
	MaxAttempts       int
	RetryBase         time.Duration
	RateLimitCooldown time.Duration
	OrderAmountCap    int64
	OrderDenylist     []string
	OrderStates       []string
}

const (
	defaultMaxAttempts       = 3
	defaultRetryBase         = time.Second
	defaultRateLimitCooldown = 30 * time.Second
	defaultOrderAmountCap    = 10_000_000 // smallest currency unit
)

var defaultOrderStates = []string{"COMPLETED"}

// Engine coordinates dependency-ordered entity syncs against local storage.
// Entities run sequentially, never in parallel, which keeps the remote rate
// budget predictable and the FK write order intact.
type Engine struct {
	remote   RemoteAPI
	catalog  catalog.Repository
	orders   order.Repository
	state    syncstate.Repository
	notifier Notifier
	cfg      Config
	denylist map[string]struct{}

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewEngine creates a sync engine. notifier may be nil.
func NewEngine(api RemoteAPI, cat catalog.Repository, ord order.Repository, state syncstate.Repository, notifier Notifier, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = defaultRateLimitCooldown
	}
	if cfg.OrderAmountCap <= 0 {
		cfg.OrderAmountCap = defaultOrderAmountCap
	}
	if len(cfg.OrderStates) == 0 {
		cfg.OrderStates = defaultOrderStates
	}
	denylist := make(map[string]struct{}, len(cfg.OrderDenylist))
	for _, id := range cfg.OrderDenylist {
		denylist[id] = struct{}{}
	}
	return &Engine{
		remote:   api,
		catalog:  cat,
		orders:   ord,
		state:    state,
		notifier: notifier,
		cfg:      cfg,
		denylist: denylist,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ── orchestration ────────────────────────────────────────────────────────────

// SyncOne runs a single entity sync under the retry policy and returns its
// result. Failures are captured in the result, never raised.
func (e *Engine) SyncOne(ctx context.Context, entity Entity, mode Mode) Result {
	var fn func(context.Context) (Result, error)
	switch entity {
	case EntityLocations:
		fn = func(ctx context.Context) (Result, error) { return e.syncLocations(ctx, mode) }
	case EntityCategories:
		fn = func(ctx context.Context) (Result, error) { return e.syncCategories(ctx, mode) }
	case EntityItems:
		fn = func(ctx context.Context) (Result, error) { return e.syncItems(ctx, mode) }
	case EntityVariations:
		fn = func(ctx context.Context) (Result, error) { return e.syncVariations(ctx, mode) }
	case EntityInventory:
		fn = func(ctx context.Context) (Result, error) { return e.syncInventory(ctx, mode) }
	case EntityVendors:
		fn = func(ctx context.Context) (Result, error) { return e.syncVendors(ctx, mode) }
	case EntityOrders:
		fn = func(ctx context.Context) (Result, error) { return e.syncOrders(ctx, mode) }
	default:
		return Result{DataType: entity, Errors: []string{fmt.Sprintf("unknown entity %q", entity)}}
	}

	started := e.now()
	res := e.runWithRetry(ctx, entity, fn)
	if res.Success {
		if err := e.state.Upsert(ctx, entity.TableName(), started.UTC(), res.RecordsProcessed); err != nil {
			log.Printf("sync: %s: record sync state: %v", entity, err)
		}
	}
	log.Printf("sync: %s %s: success=%t processed=%d added=%d updated=%d skipped=%d deleted=%d errors=%d",
		entity, mode, res.Success, res.RecordsProcessed, res.RecordsAdded, res.RecordsUpdated,
		res.RecordsSkipped, res.RecordsDeleted, len(res.Errors))
	return res
}

// SyncMany runs the requested entities in dependency order. An entity whose
// prerequisite failed is skipped with an explicit error instead of being
// attempted; the run always completes and reports a mixed outcome. The
// notifier, when set, receives the full report afterwards.
func (e *Engine) SyncMany(ctx context.Context, entities []Entity, mode Mode) map[Entity]Result {
	results := make(map[Entity]Result, len(entities))
	failed := make(map[Entity]bool)

	for _, entity := range orderEntities(entities) {
		if dep, ok := failedDependency(entity, failed); ok {
			results[entity] = Result{
				DataType: entity,
				Errors:   []string{fmt.Sprintf("%v: %s sync failed", ErrMissingDependency, dep)},
			}
			failed[entity] = true
			continue
		}
		res := e.SyncOne(ctx, entity, mode)
		if !res.Success {
			failed[entity] = true
		}
		results[entity] = res
	}

	if e.notifier != nil {
		outcomes := make(map[Entity]Outcome, len(results))
		for entity, res := range results {
			outcomes[entity] = outcomeOf(res)
		}
		report := Report{Environment: e.cfg.Environment, Outcomes: outcomes}
		if err := e.notifier.Notify(ctx, report); err != nil {
			log.Printf("sync: notify: %v", err)
		}
	}
	return results
}

// failedDependency reports whether entity requires a prerequisite that has
// already failed in this run. Dependencies only matter when the
// prerequisite was part of the run.
func failedDependency(entity Entity, failed map[Entity]bool) (Entity, bool) {
	for _, dep := range dependencies[entity] {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

// runWithRetry attempts fn up to MaxAttempts times with exponentially
// increasing delay. A rate-limit response triggers the cooldown and does
// not consume an attempt. A missing-dependency error short-circuits; there
// is nothing to retry.
func (e *Engine) runWithRetry(ctx context.Context, entity Entity, fn func(context.Context) (Result, error)) Result {
	started := e.now()
	var errs []string

	attempt := 0
	for attempt < e.cfg.MaxAttempts {
		res, err := fn(ctx)
		if err == nil {
			res.Success = true
			res.DataType = entity
			res.Errors = errs
			res.DurationSeconds = e.now().Sub(started).Seconds()
			return res
		}
		if errors.Is(err, ErrMissingDependency) {
			errs = append(errs, err.Error())
			break
		}
		if remote.IsRateLimited(err) {
			if serr := e.sleep(ctx, e.cfg.RateLimitCooldown); serr != nil {
				errs = append(errs, serr.Error())
				break
			}
			continue
		}

		attempt++
		errs = append(errs, fmt.Sprintf("attempt %d: %v", attempt, err))
		if attempt < e.cfg.MaxAttempts {
			if serr := e.sleep(ctx, e.cfg.RetryBase<<(attempt-1)); serr != nil {
				errs = append(errs, serr.Error())
				break
			}
		}
	}

	return Result{
		DataType:        entity,
		Errors:          errs,
		DurationSeconds: e.now().Sub(started).Seconds(),
	}
}

// ── per-entity syncs ─────────────────────────────────────────────────────────

func (e *Engine) syncLocations(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	locations, err := e.remote.ListLocations(ctx)
	if err != nil {
		return res, err
	}
	res.RecordsProcessed = len(locations)

	records := make([]record, 0, len(locations))
	for _, loc := range locations {
		l := &catalog.Location{RemoteID: loc.ID, Name: loc.Name, Status: loc.Status}
		records = append(records, record{
			id: l.RemoteID,
			write: func(ctx context.Context, repo catalog.Repository) (catalog.UpsertOutcome, error) {
				return repo.UpsertLocation(ctx, l)
			},
		})
	}
	return res, e.apply(ctx, mode, EntityLocations, records, &res)
}

func (e *Engine) syncCategories(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	objects, err := e.remote.SearchAllCatalogObjects(ctx, remote.ObjectCategory)
	if err != nil {
		return res, err
	}
	res.RecordsProcessed = len(objects)

	var records []record
	for _, obj := range objects {
		if obj.IsDeleted {
			continue // absent from the remote set; the diff soft-deletes it
		}
		if obj.CategoryData == nil {
			records = append(records, record{id: obj.ID, skipReason: "missing category data"})
			continue
		}
		c := &catalog.Category{
			RemoteID:  obj.ID,
			Name:      obj.CategoryData.Name,
			UpdatedAt: parseRemoteTime(obj.UpdatedAt),
		}
		records = append(records, record{
			id: c.RemoteID,
			write: func(ctx context.Context, repo catalog.Repository) (catalog.UpsertOutcome, error) {
				return repo.UpsertCategory(ctx, c)
			},
		})
	}
	return res, e.apply(ctx, mode, EntityCategories, records, &res)
}

func (e *Engine) syncItems(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	objects, err := e.remote.SearchAllCatalogObjects(ctx, remote.ObjectItem)
	if err != nil {
		return res, err
	}
	res.RecordsProcessed = len(objects)

	var records []record
	for _, obj := range objects {
		if obj.IsDeleted {
			continue
		}
		if obj.ItemData == nil {
			records = append(records, record{id: obj.ID, skipReason: "missing item data"})
			continue
		}
		i := &catalog.Item{
			RemoteID:    obj.ID,
			Name:        obj.ItemData.Name,
			Description: obj.ItemData.Description,
			CategoryID:  obj.ItemData.CategoryID,
			UpdatedAt:   parseRemoteTime(obj.UpdatedAt),
		}
		records = append(records, record{
			id: i.RemoteID,
			write: func(ctx context.Context, repo catalog.Repository) (catalog.UpsertOutcome, error) {
				return repo.UpsertItem(ctx, i)
			},
		})
	}
	return res, e.apply(ctx, mode, EntityItems, records, &res)
}

func (e *Engine) syncVariations(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	objects, err := e.remote.SearchAllCatalogObjects(ctx, remote.ObjectVariation)
	if err != nil {
		return res, err
	}
	res.RecordsProcessed = len(objects)

	knownItems, err := e.catalog.RemoteIDs(ctx, catalog.KindItems)
	if err != nil {
		return res, fmt.Errorf("load known items: %w", err)
	}

	var records []record
	for _, obj := range objects {
		if obj.IsDeleted {
			continue
		}
		if obj.VariationData == nil {
			records = append(records, record{id: obj.ID, skipReason: "missing variation data"})
			continue
		}
		if _, ok := knownItems[obj.VariationData.ItemID]; !ok {
			records = append(records, record{
				id:         obj.ID,
				skipReason: fmt.Sprintf("parent item %s unknown or deleted", obj.VariationData.ItemID),
			})
			continue
		}
		v := &catalog.Variation{
			RemoteID:    obj.ID,
			ItemID:      obj.VariationData.ItemID,
			Name:        obj.VariationData.Name,
			SKU:         obj.VariationData.SKU,
			PriceAmount: obj.VariationData.PriceAmount,
			Currency:    obj.VariationData.Currency,
			UpdatedAt:   parseRemoteTime(obj.UpdatedAt),
		}
		records = append(records, record{
			id: v.RemoteID,
			write: func(ctx context.Context, repo catalog.Repository) (catalog.UpsertOutcome, error) {
				return repo.UpsertVariation(ctx, v)
			},
		})
	}
	return res, e.apply(ctx, mode, EntityVariations, records, &res)
}

func (e *Engine) syncVendors(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	vendors, err := e.remote.SearchVendors(ctx)
	if err != nil {
		return res, err
	}
	res.RecordsProcessed = len(vendors)

	records := make([]record, 0, len(vendors))
	for _, vend := range vendors {
		v := &catalog.Vendor{
			RemoteID:  vend.ID,
			Name:      vend.Name,
			Status:    vend.Status,
			UpdatedAt: parseRemoteTime(vend.UpdatedAt),
		}
		records = append(records, record{
			id: v.RemoteID,
			write: func(ctx context.Context, repo catalog.Repository) (catalog.UpsertOutcome, error) {
				return repo.UpsertVendor(ctx, v)
			},
		})
	}
	return res, e.apply(ctx, mode, EntityVendors, records, &res)
}

func (e *Engine) syncInventory(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	locationIDs, err := e.catalog.ActiveLocationIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("load active locations: %w", err)
	}
	if len(locationIDs) == 0 {
		return res, fmt.Errorf("%w: no active locations", ErrMissingDependency)
	}
	knownVariations, err := e.catalog.RemoteIDs(ctx, catalog.KindVariations)
	if err != nil {
		return res, fmt.Errorf("load known variations: %w", err)
	}

	var since time.Time
	if mode == ModeIncremental {
		since = e.lastSync(ctx, EntityInventory)
	}
	counts, err := e.remote.RetrieveAllInventory(ctx, locationIDs, since)
	if err != nil {
		return res, err
	}
	res.RecordsProcessed = len(counts)

	levels, skipped := Deduplicate(counts, knownVariations, e.now())
	res.RecordsSkipped = skipped
	return res, applyInventory(ctx, e.catalog, mode, levels, &res)
}

func (e *Engine) syncOrders(ctx context.Context, mode Mode) (Result, error) {
	var res Result
	locationIDs, err := e.catalog.ActiveLocationIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("load active locations: %w", err)
	}
	if len(locationIDs) == 0 {
		return res, fmt.Errorf("%w: no active locations", ErrMissingDependency)
	}

	var since time.Time
	if mode == ModeIncremental {
		since = e.lastSync(ctx, EntityOrders)
	}
	dr := remote.DateRange{Start: since, End: e.now().UTC()}

	var fetched []remote.Order
	cursor := ""
	for {
		page, next, err := e.remote.SearchOrders(ctx, locationIDs, dr, e.cfg.OrderStates, cursor)
		if err != nil {
			return res, err
		}
		fetched = append(fetched, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	res.RecordsProcessed = len(fetched)

	kept := make([]*order.Order, 0, len(fetched))
	for i := range fetched {
		o := &fetched[i]
		if reason := e.orderAnomaly(o); reason != "" {
			log.Printf("sync: orders: excluding %s: %s", o.ID, reason)
			res.RecordsSkipped++
			continue
		}
		kept = append(kept, ConvertOrder(o))
	}

	err = e.orders.InTx(ctx, func(repo order.Repository) error {
		if mode == ModeFullRefresh {
			if err := repo.ClearAll(ctx); err != nil {
				return err
			}
		}
		for _, o := range kept {
			outcome, err := repo.Upsert(ctx, o)
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
	return res, err
}

// orderAnomaly reports why an order must not be ingested, or "".
func (e *Engine) orderAnomaly(o *remote.Order) string {
	if _, ok := e.denylist[o.ID]; ok {
		return "denylisted order id"
	}
	if o.TotalAmount > e.cfg.OrderAmountCap {
		return fmt.Sprintf("total %d exceeds amount cap %d", o.TotalAmount, e.cfg.OrderAmountCap)
	}
	return ""
}

func (e *Engine) apply(ctx context.Context, mode Mode, entity Entity, records []record, res *Result) error {
	if mode == ModeFullRefresh {
		return applyFullRefresh(ctx, e.catalog, entity.Kind(), records, res)
	}
	return applyIncremental(ctx, e.catalog, entity.Kind(), records, res)
}

// lastSync returns the entity's stored cursor, or the zero time when the
// entity never synced, which makes the next fetch cover full history.
func (e *Engine) lastSync(ctx context.Context, entity Entity) time.Time {
	state, err := e.state.Get(ctx, entity.TableName())
	if err != nil {
		if !errors.Is(err, syncstate.ErrNotFound) {
			log.Printf("sync: %s: read sync state: %v", entity, err)
		}
		return time.Time{}
	}
	return state.LastSyncAt
}

// ── conversions ──────────────────────────────────────────────────────────────

func parseRemoteTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// ConvertOrder maps a platform order onto the local storage model. Line
// item quantities arrive as decimal strings and are truncated to whole
// units; an unparsable quantity becomes zero.
func ConvertOrder(o *remote.Order) *order.Order {
	out := &order.Order{
		RemoteID:    o.ID,
		LocationID:  o.LocationID,
		State:       o.State,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		CreatedAt:   parseRemoteTime(o.CreatedAt),
		UpdatedAt:   parseRemoteTime(o.UpdatedAt),
	}
	for _, li := range o.LineItems {
		qty, err := strconv.Atoi(li.Quantity)
		if err != nil {
			if f, ferr := strconv.ParseFloat(li.Quantity, 64); ferr == nil {
				qty = int(f)
			}
		}
		out.LineItems = append(out.LineItems, &order.LineItem{
			OrderID:         o.ID,
			UID:             li.UID,
			Name:            li.Name,
			CatalogObjectID: li.CatalogObjectID,
			Quantity:        qty,
			Amount:          li.Amount,
		})
	}
	return out
}
