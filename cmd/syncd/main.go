package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/mkandawire/possync/internal/config"
	"github.com/mkandawire/possync/internal/modules/admin"
	"github.com/mkandawire/possync/internal/modules/backfill"
	"github.com/mkandawire/possync/internal/modules/catalog"
	"github.com/mkandawire/possync/internal/modules/notify"
	"github.com/mkandawire/possync/internal/modules/order"
	"github.com/mkandawire/possync/internal/modules/remote"
	syncmod "github.com/mkandawire/possync/internal/modules/sync"
	"github.com/mkandawire/possync/internal/modules/syncstate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Successfully connected to the database!")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Storage ─────────────────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	orderRepo := order.NewPostgresRepository(db)
	stateRepo := syncstate.NewPostgresRepository(db)

	// ── Remote client & engine ──────────────────────────────
	client := remote.NewClient(cfg.POSBaseURL, cfg.POSAccessToken)
	dispatcher := notify.NewLogDispatcher()
	engine := syncmod.NewEngine(client, catalogRepo, orderRepo, stateRepo, dispatcher, syncmod.Config{
		Environment:       cfg.Environment,
		MaxAttempts:       cfg.SyncMaxAttempts,
		RetryBase:         cfg.SyncRetryBase,
		RateLimitCooldown: cfg.RateLimitCooldown,
		OrderAmountCap:    cfg.OrderAmountCap,
		OrderDenylist:     cfg.OrderDenylist,
	})

	orchestrator := backfill.NewOrchestrator(client, catalogRepo, orderRepo, backfill.Config{
		ChunkSize:         time.Duration(cfg.BackfillChunkDays) * 24 * time.Hour,
		RequestInterval:   cfg.BackfillRequestInterval,
		RateLimitCooldown: cfg.RateLimitCooldown,
		OrderAmountCap:    cfg.OrderAmountCap,
		OrderDenylist:     cfg.OrderDenylist,
	})

	admin.NewHandler(engine, orchestrator, stateRepo).RegisterRoutes(router)

	// ── Start Server ────────────────────────────────────────
	fmt.Printf("POS sync daemon starting on :%s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
