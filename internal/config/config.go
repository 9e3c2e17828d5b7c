package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config collects everything the daemon reads from the environment.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	POSBaseURL     string
	POSAccessToken string

	SyncMaxAttempts int
	SyncRetryBase   time.Duration

	BackfillChunkDays       int
	BackfillRequestInterval time.Duration
	RateLimitCooldown       time.Duration

	OrderAmountCap int64
	OrderDenylist  []string
}

// Load reads .env when present, then the process environment. Only the
// database URL and POS credentials are required; everything else has a
// working default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfg := Config{
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		Port:                    envOr("APP_PORT", "8080"),
		Environment:             envOr("APP_ENV", "development"),
		POSBaseURL:              os.Getenv("POS_BASE_URL"),
		POSAccessToken:          os.Getenv("POS_ACCESS_TOKEN"),
		SyncMaxAttempts:         envInt("SYNC_MAX_ATTEMPTS", 3),
		SyncRetryBase:           envDurationMS("SYNC_RETRY_BASE_MS", time.Second),
		BackfillChunkDays:       envInt("BACKFILL_CHUNK_DAYS", 7),
		BackfillRequestInterval: requestInterval(envInt("BACKFILL_REQUESTS_PER_MINUTE", 120)),
		RateLimitCooldown:       envDurationMS("BACKFILL_RATE_COOLDOWN_MS", 30*time.Second),
		OrderAmountCap:          envInt64("ORDER_AMOUNT_CAP", 10_000_000),
		OrderDenylist:           envList("ORDER_DENYLIST"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.POSBaseURL == "" {
		return cfg, fmt.Errorf("POS_BASE_URL is required")
	}
	if cfg.POSAccessToken == "" {
		return cfg, fmt.Errorf("POS_ACCESS_TOKEN is required")
	}
	return cfg, nil
}

func requestInterval(perMinute int) time.Duration {
	if perMinute <= 0 {
		perMinute = 120
	}
	return time.Minute / time.Duration(perMinute)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDurationMS(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		log.Printf("config: %s=%q is not a millisecond count, using %s", key, v, fallback)
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
