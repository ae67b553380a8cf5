package main

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/log-shipper/internal/adapter/collector"
	"github.com/user/log-shipper/internal/adapter/format"
	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/pkg/config"
	"github.com/user/log-shipper/internal/pkg/logger"
	"github.com/user/log-shipper/internal/usecase"
)

const maxRecordSize = 1024 * 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewShipperMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	adminServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: adminMux,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Delivery Pipeline ---
	client := collector.NewClient(cfg, log, m)
	dispatcher := usecase.NewDispatchEventsUseCase(client, log, m)
	buffer := usecase.NewBufferEventsUseCase(dispatcher, cfg, log, m)
	formatter := format.NewFormatter(cfg.AppName, cfg.MinLevel, log)

	log.Info("shipper started",
		"server_url", cfg.ServerURL,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval,
		"queue_size_limit", cfg.QueueSizeLimit,
	)

	// --- Read NDJSON records from stdin ---
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var record map[string]any
			if err := json.Unmarshal(line, &record); err != nil {
				log.Warn("skipping malformed record", "error", err)
				continue
			}
			event, ok := formatter.Format(record)
			if !ok {
				continue
			}
			buffer.Enqueue(event)
		}
		if err := scanner.Err(); err != nil {
			log.Error("stdin read failed", "error", err)
		}
		stop() // end of stream triggers shutdown
	}()

	<-ctx.Done()
	log.Info("shutting down, flushing pending events...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := buffer.Close(shutdownCtx); err != nil {
		log.Error("failed to close event buffer", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("shipper shut down gracefully")
}
