package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/dedup"
	"github.com/martiantux/redditarr/internal/downloader"
	"github.com/martiantux/redditarr/internal/handlers"
	"github.com/martiantux/redditarr/internal/middleware"
	"github.com/martiantux/redditarr/internal/paths"
	"github.com/martiantux/redditarr/internal/ratelimit"
	"github.com/martiantux/redditarr/internal/reddit"
	"github.com/martiantux/redditarr/internal/scheduler"
	"github.com/martiantux/redditarr/internal/worker"
)

const defaultUserAgent = "redditarr/1.0 (archival tool)"

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	dataDir := envOr("REDDITARR_DATA_DIR", "./data")
	dbPath := envOr("REDDITARR_DB_PATH", filepath.Join(dataDir, "redditarr.db"))
	listenAddr := envOr("REDDITARR_LISTEN_ADDR", ":8080")
	userAgent := envOr("REDDITARR_USER_AGENT", defaultUserAgent)

	store, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("Opening database: %v", err)
	}
	defer store.Close()

	layout, err := paths.NewLayout(dataDir)
	if err != nil {
		log.Fatalf("Preparing data directories: %v", err)
	}

	limiters := ratelimit.NewRegistry(map[string]ratelimit.Config{
		"reddit":  {CallsPerMinute: envFloat("REDDITARR_REDDIT_RPM", 60), BurstAllowance: 1, Jitter: true},
		"imgur":   {CallsPerMinute: envFloat("REDDITARR_IMGUR_RPM", 20), BurstAllowance: 1, Jitter: true},
		"redgifs": {CallsPerMinute: envFloat("REDDITARR_REDGIFS_RPM", 60), BurstAllowance: 1, Jitter: true},
		"default": {CallsPerMinute: 30, BurstAllowance: 1, Jitter: true},
	})

	client := reddit.NewAPIClient(nil, limiters.For("reddit"), userAgent)
	deduper := dedup.NewEngine(store, layout)
	dl := downloader.New(store, layout, limiters, deduper, userAgent)
	sched := scheduler.New(store)
	manager := worker.NewManager(store, layout, client, dl, sched)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.StartEnabled(ctx); err != nil {
		log.Fatalf("Starting workers: %v", err)
	}

	api := handlers.NewServer(store, manager, layout)
	apiLimiter := middleware.NewRateLimiterMiddleware(rate.Limit(20), 40)
	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      apiLimiter.Middleware(api.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	manager.StopAll()
	log.Println("Shutdown complete")
}
