package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/possync/internal/modules/backfill"
	syncmod "github.com/mkandawire/possync/internal/modules/sync"
	"github.com/mkandawire/possync/internal/modules/syncstate"
)

// Handler exposes the sync and backfill admin endpoints.
type Handler struct {
	engine       *syncmod.Engine
	orchestrator *backfill.Orchestrator
	state        syncstate.Repository

	mu   sync.Mutex
	runs map[string]*backfill.Run
}

func NewHandler(engine *syncmod.Engine, orchestrator *backfill.Orchestrator, state syncstate.Repository) *Handler {
	return &Handler{
		engine:       engine,
		orchestrator: orchestrator,
		state:        state,
		runs:         make(map[string]*backfill.Run),
	}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", h.syncAll)
		r.Post("/sync/{entity}", h.syncOne)
		r.Get("/sync/state", h.syncState)
		r.Post("/backfill", h.startBackfill)
		r.Get("/backfill/{id}/progress", h.backfillProgress)
	})
}

type syncRequest struct {
	Mode     string   `json:"mode,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

func (h *Handler) syncAll(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	mode, err := syncmod.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entities := syncmod.DefaultOrder
	if len(req.Entities) > 0 {
		entities = make([]syncmod.Entity, 0, len(req.Entities))
		for _, name := range req.Entities {
			entity, err := syncmod.ParseEntity(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			entities = append(entities, entity)
		}
	}

	results := h.engine.SyncMany(r.Context(), entities, mode)
	respond(w, http.StatusOK, results)
}

func (h *Handler) syncOne(w http.ResponseWriter, r *http.Request) {
	entity, err := syncmod.ParseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req syncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	mode, err := syncmod.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.engine.SyncOne(r.Context(), entity, mode)
	respond(w, http.StatusOK, res)
}

func (h *Handler) syncState(w http.ResponseWriter, r *http.Request) {
	states, err := h.state.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, states)
}

type backfillRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	ChunkDays int    `json:"chunk_days,omitempty"`
}

func (h *Handler) startBackfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	// One critical section covers the running check, the start, and the
	// registration, so concurrent requests cannot both slip past the guard.
	// Start returns immediately; the walk itself runs in its own goroutine.
	h.mu.Lock()
	for _, run := range h.runs {
		if run.Progress().Running {
			h.mu.Unlock()
			http.Error(w, "a backfill is already running", http.StatusConflict)
			return
		}
	}
	// Detach from the request context so the run outlives this call.
	run, err := h.orchestrator.Start(context.Background(), start, end, req.ChunkDays)
	if err != nil {
		h.mu.Unlock()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.runs[run.ID] = run
	h.mu.Unlock()

	respond(w, http.StatusAccepted, map[string]string{"id": run.ID})
}

func (h *Handler) backfillProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mu.Lock()
	run, ok := h.runs[id]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "unknown backfill run", http.StatusNotFound)
		return
	}
	respond(w, http.StatusOK, run.Progress())
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
