package backfill

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mkandawire/possync/internal/modules/catalog"
	"github.com/mkandawire/possync/internal/modules/order"
	"github.com/mkandawire/possync/internal/modules/remote"
	syncmod "github.com/mkandawire/possync/internal/modules/sync"
)

// OrderSearcher is the slice of the POS client the backfill needs.
type OrderSearcher interface {
	SearchOrders(ctx context.Context, locationIDs []string, dr remote.DateRange, states []string, cursor string) ([]remote.Order, string, error)
}

// Config tunes backfill pacing and filtering. Zero values fall back to
// defaults.
type Config struct {
	ChunkSize         time.Duration
	RequestInterval   time.Duration
	RateLimitCooldown time.Duration
	OrderAmountCap    int64
	OrderDenylist     []string
	OrderStates       []string
}

const (
	defaultChunkSize       = 7 * 24 * time.Hour
	defaultRequestInterval = 500 * time.Millisecond
	defaultCooldown        = 30 * time.Second
	defaultAmountCap       = 10_000_000
)

// Orchestrator walks a historical date range window by window, pulling
// orders at a fixed request pace and committing each window in its own
// transaction. A failed window is recorded and the walk continues.
type Orchestrator struct {
	api      OrderSearcher
	catalog  catalog.Repository
	orders   order.Repository
	limiter  *rate.Limiter
	cfg      Config
	denylist map[string]struct{}

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewOrchestrator creates a backfill orchestrator.
func NewOrchestrator(api OrderSearcher, cat catalog.Repository, ord order.Repository, cfg Config) *Orchestrator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = defaultRequestInterval
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = defaultCooldown
	}
	if cfg.OrderAmountCap <= 0 {
		cfg.OrderAmountCap = defaultAmountCap
	}
	if len(cfg.OrderStates) == 0 {
		cfg.OrderStates = []string{"COMPLETED"}
	}
	denylist := make(map[string]struct{}, len(cfg.OrderDenylist))
	for _, id := range cfg.OrderDenylist {
		denylist[id] = struct{}{}
	}
	return &Orchestrator{
		api:      api,
		catalog:  cat,
		orders:   ord,
		limiter:  rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		cfg:      cfg,
		denylist: denylist,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
		now: time.Now,
	}
}

// Progress is a point-in-time snapshot of a running or finished backfill.
// Every window ends up in either CompletedChunks or FailedChunks.
type Progress struct {
	Running         bool       `json:"running"`
	TotalChunks     int        `json:"total_chunks"`
	CompletedChunks int        `json:"completed_chunks"`
	FailedChunks    int        `json:"failed_chunks"`
	OrdersSynced    int        `json:"orders_synced"`
	Errors          []string   `json:"errors,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// Run is a caller-owned handle on one backfill execution. The orchestrator
// keeps no global state; concurrent runs are distinguished by their ids.
type Run struct {
	ID string

	mu       sync.Mutex
	progress Progress
	done     chan struct{}
}

// Progress returns a copy of the run's current progress.
func (r *Run) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.Errors = append([]string(nil), r.progress.Errors...)
	return p
}

// Wait blocks until the run finishes.
func (r *Run) Wait() { <-r.done }

func (r *Run) addError(msg string) {
	r.mu.Lock()
	r.progress.Errors = append(r.progress.Errors, msg)
	r.mu.Unlock()
}

// Start launches a backfill over [start, end] and returns its run handle
// immediately. The end date is expanded to cover its full calendar day so a
// caller passing dates without times never loses the final day's orders.
// chunkDays selects the window size for this run; zero or negative falls
// back to the configured chunk size.
func (o *Orchestrator) Start(ctx context.Context, start, end time.Time, chunkDays int) (*Run, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("backfill: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	chunk := o.cfg.ChunkSize
	if chunkDays > 0 {
		chunk = time.Duration(chunkDays) * 24 * time.Hour
	}
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	windows := GenerateDateChunks(start, endOfDay, chunk)

	run := &Run{
		ID:   uuid.New().String(),
		done: make(chan struct{}),
		progress: Progress{
			Running:     true,
			TotalChunks: len(windows),
			StartedAt:   o.now().UTC(),
		},
	}
	go o.execute(ctx, run, windows)
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, windows []Window) {
	defer func() {
		finished := o.now().UTC()
		run.mu.Lock()
		run.progress.Running = false
		run.progress.FinishedAt = &finished
		run.mu.Unlock()
		close(run.done)
	}()

	locationIDs, err := o.catalog.ActiveLocationIDs(ctx)
	if err != nil {
		run.addError(fmt.Sprintf("load active locations: %v", err))
		return
	}
	if len(locationIDs) == 0 {
		run.addError("no active locations to backfill")
		return
	}

	for _, w := range windows {
		synced, err := o.backfillWindow(ctx, run, locationIDs, w)
		run.mu.Lock()
		if err != nil {
			run.progress.FailedChunks++
		} else {
			run.progress.CompletedChunks++
		}
		run.progress.OrdersSynced += synced
		run.mu.Unlock()
		if err != nil {
			run.addError(fmt.Sprintf("window %s to %s: %v",
				w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), err))
			log.Printf("backfill %s: window %s: %v", run.ID, w.Start.Format("2006-01-02"), err)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// backfillWindow pulls every order page in the window and commits them in
// one transaction. A rate-limited page is retried after the cooldown
// without advancing the cursor.
func (o *Orchestrator) backfillWindow(ctx context.Context, run *Run, locationIDs []string, w Window) (int, error) {
	dr := remote.DateRange{Start: w.Start, End: w.End}

	var fetched []remote.Order
	cursor := ""
	for {
		if err := o.limiter.Wait(ctx); err != nil {
			return 0, err
		}
		page, next, err := o.api.SearchOrders(ctx, locationIDs, dr, o.cfg.OrderStates, cursor)
		if err != nil {
			if remote.IsRateLimited(err) {
				if serr := o.sleep(ctx, o.cfg.RateLimitCooldown); serr != nil {
					return 0, serr
				}
				continue
			}
			return 0, err
		}
		fetched = append(fetched, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	kept := make([]*order.Order, 0, len(fetched))
	for i := range fetched {
		ro := &fetched[i]
		if reason := o.anomaly(ro); reason != "" {
			log.Printf("backfill %s: excluding order %s: %s", run.ID, ro.ID, reason)
			continue
		}
		kept = append(kept, syncmod.ConvertOrder(ro))
	}
	if len(kept) == 0 {
		return 0, nil
	}

	err := o.orders.InTx(ctx, func(repo order.Repository) error {
		for _, ord := range kept {
			if _, err := repo.Upsert(ctx, ord); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(kept), nil
}

func (o *Orchestrator) anomaly(ro *remote.Order) string {
	if _, ok := o.denylist[ro.ID]; ok {
		return "denylisted order id"
	}
	if ro.TotalAmount > o.cfg.OrderAmountCap {
		return fmt.Sprintf("total %d exceeds amount cap %d", ro.TotalAmount, o.cfg.OrderAmountCap)
	}
	return ""
}
