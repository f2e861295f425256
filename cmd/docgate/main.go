package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docgate/docgate/internal/api"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/gemini"
	"github.com/docgate/docgate/internal/job"
	"github.com/docgate/docgate/internal/queue"
	"github.com/docgate/docgate/internal/report"
	"github.com/docgate/docgate/internal/webhook"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	reporter, err := report.New(cfg.SentryDSN)
	if err != nil {
		slog.Error("sentry", "error", err)
		os.Exit(1)
	}
	defer reporter.Flush(2 * time.Second)

	store, err := job.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		slog.Error("store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	broker := newBroker(cfg)
	defer broker.Close()

	gen := gemini.NewClient(gemini.Config{
		APIKey:  cfg.GoogleAPIKey,
		Model:   cfg.Model,
		Retries: 2,
	}, slog.Default())

	q := queue.New(broker, store, gen, reporter, webhook.NewSender(), cfg.Concurrency)

	if err := q.Recovery(context.Background()); err != nil {
		slog.Error("recovery", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	q.StartCleanup(ctx, cfg.JobTTLHours, cfg.CleanupIntervalMinutes)

	mux := http.NewServeMux()
	h := api.NewHandler(store, q, cfg)
	h.RegisterRoutes(mux)

	handler := api.Chain(mux,
		api.CORS(cfg.CORSOrigins),
		api.RequestID,
		api.Logging,
		api.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.Auth(cfg.APIKeys),
	)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("docgate listening", "addr", cfg.ListenAddr, "broker", broker.Kind(), "model", cfg.Model)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newBroker picks the Redis broker when REDIS_HOST is configured, falling
// back to the in-process queue when Redis is unreachable so the service
// stays usable (submissions are then served by this process's own workers).
func newBroker(cfg *config.Config) queue.Broker {
	if cfg.RedisAddr == "" {
		return queue.NewMemoryBroker(cfg.QueueSize)
	}
	rb, err := queue.NewRedisBroker(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		slog.Warn("redis unavailable, using in-process queue", "addr", cfg.RedisAddr, "error", err)
		return queue.NewMemoryBroker(cfg.QueueSize)
	}
	return rb
}
