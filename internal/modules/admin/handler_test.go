package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/possync/internal/modules/backfill"
	"github.com/mkandawire/possync/internal/modules/catalog"
	"github.com/mkandawire/possync/internal/modules/order"
	"github.com/mkandawire/possync/internal/modules/remote"
	syncmod "github.com/mkandawire/possync/internal/modules/sync"
	"github.com/mkandawire/possync/internal/modules/syncstate"
)

type stubAPI struct{}

func (stubAPI) ListLocations(context.Context) ([]remote.Location, error) {
	return []remote.Location{{ID: "L1", Name: "Main", Status: "ACTIVE"}}, nil
}
func (stubAPI) SearchAllCatalogObjects(context.Context, remote.CatalogObjectType) ([]remote.CatalogObject, error) {
	return nil, nil
}
func (stubAPI) RetrieveAllInventory(context.Context, []string, time.Time) ([]remote.InventoryCount, error) {
	return nil, nil
}
func (stubAPI) SearchOrders(context.Context, []string, remote.DateRange, []string, string) ([]remote.Order, string, error) {
	return nil, "", nil
}
func (stubAPI) SearchVendors(context.Context) ([]remote.Vendor, error) { return nil, nil }

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	cat := catalog.NewMemoryRepository()
	ord := order.NewMemoryRepository()
	state := syncstate.NewMemoryRepository()

	engine := syncmod.NewEngine(stubAPI{}, cat, ord, state, nil, syncmod.Config{})
	orchestrator := backfill.NewOrchestrator(stubAPI{}, cat, ord, backfill.Config{
		RequestInterval: time.Nanosecond,
	})

	router := chi.NewRouter()
	NewHandler(engine, orchestrator, state).RegisterRoutes(router)
	return router
}

func TestSyncOneEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/locations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res syncmod.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RecordsProcessed)
}

func TestSyncOneRejectsUnknownEntity(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/widgets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAllRejectsUnknownMode(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"mode":"SIDEWAYS"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackfillLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// Seed a location so the backfill has somewhere to look.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/locations", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	body := strings.NewReader(`{"start_date":"2024-02-01","end_date":"2024-02-02"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/backfill", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	id := started["id"]
	require.NotEmpty(t, id)

	// Poll until the run finishes; the stub returns instantly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		req = httptest.NewRequest(http.MethodGet, "/api/v1/backfill/"+id+"/progress", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var p backfill.Progress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		if !p.Running {
			assert.Equal(t, p.TotalChunks, p.CompletedChunks)
			break
		}
		require.True(t, time.Now().Before(deadline), "backfill did not finish")
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBackfillRejectsBadDates(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"start_date":"02/01/2024","end_date":"2024-02-02"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backfill", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// gateSearcher blocks every order search until released, keeping a backfill
// run alive for as long as a test needs it.
type gateSearcher struct{ release chan struct{} }

func (g *gateSearcher) SearchOrders(ctx context.Context, _ []string, _ remote.DateRange, _ []string, _ string) ([]remote.Order, string, error) {
	select {
	case <-g.release:
		return nil, "", nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

func TestConcurrentBackfillRequestsStartOnlyOne(t *testing.T) {
	cat := catalog.NewMemoryRepository()
	ord := order.NewMemoryRepository()
	state := syncstate.NewMemoryRepository()
	_, err := cat.UpsertLocation(context.Background(), &catalog.Location{
		RemoteID: "L1", Name: "Main", Status: "ACTIVE",
	})
	require.NoError(t, err)

	gate := &gateSearcher{release: make(chan struct{})}
	orchestrator := backfill.NewOrchestrator(gate, cat, ord, backfill.Config{
		RequestInterval: time.Nanosecond,
	})
	engine := syncmod.NewEngine(stubAPI{}, cat, ord, state, nil, syncmod.Config{})

	router := chi.NewRouter()
	NewHandler(engine, orchestrator, state).RegisterRoutes(router)

	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			body := strings.NewReader(`{"start_date":"2024-02-01","end_date":"2024-02-01"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/backfill", body)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}

	got := []int{<-codes, <-codes}
	close(gate.release)

	assert.ElementsMatch(t, []int{http.StatusAccepted, http.StatusConflict}, got,
		"exactly one of two concurrent requests may start a run")
}

func TestBackfillChunkDaysReachesOrchestrator(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/locations", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	// Four calendar days split into two-day windows.
	body := strings.NewReader(`{"start_date":"2024-02-01","end_date":"2024-02-04","chunk_days":2}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/backfill", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/backfill/"+started["id"]+"/progress", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p backfill.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 2, p.TotalChunks)
}

func TestBackfillProgressUnknownRun(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backfill/nope/progress", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
