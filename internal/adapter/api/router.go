package api

import (
	"log/slog"
	"net/http"

	"github.com/user/log-shipper/internal/adapter/api/handler"
	"github.com/user/log-shipper/internal/adapter/api/middleware"
	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/domain"
	"github.com/user/log-shipper/internal/pkg/config"
)

// NewRouter creates and configures the HTTP router for the collector.
func NewRouter(
	cfg *config.CollectorConfig,
	logger *slog.Logger,
	store domain.EventStore,
	publisher domain.EventPublisher,
	m *metrics.CollectorMetrics,
) http.Handler {
	mux := http.NewServeMux()

	eventsHandler := handler.NewEventsHandler(store, publisher, logger, m, cfg.MaxEventSize)
	authMiddleware := middleware.Auth(cfg.APIKey, logger)

	mux.Handle("POST /api/events", authMiddleware(eventsHandler))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
