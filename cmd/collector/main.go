package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/log-shipper/internal/adapter/api"
	"github.com/user/log-shipper/internal/adapter/api/middleware"
	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/adapter/repository/postgres"
	redisrepo "github.com/user/log-shipper/internal/adapter/repository/redis"
	"github.com/user/log-shipper/internal/domain"
	"github.com/user/log-shipper/internal/pkg/config"
	"github.com/user/log-shipper/internal/pkg/logger"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	cfg, err := config.LoadCollector()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewCollectorMetrics()

	// --- Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    ":9092",
		Handler: adminMux,
	}

	go func() {
		log.Info("starting metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	eventStore := postgres.NewEventRepository(db, log)

	// --- Optional Live-Tail Stream ---
	var publisher domain.EventPublisher
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, live tail disabled", "error", err)
		} else {
			publisher = redisrepo.NewEventRepository(redisClient, log)
			log.Info("connected to redis, live tail enabled")
		}
	}

	// --- Collector Server ---
	router := api.NewRouter(cfg, log, eventStore, publisher, m)
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      middleware.Logging(log)(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting collector server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("collector server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down collector...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("collector server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}

	log.Info("collector shut down gracefully")
}
