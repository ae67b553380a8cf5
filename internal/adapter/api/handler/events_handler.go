package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/domain"
)

// EventsHandler handles HTTP requests for event delivery on the
// collector side.
type EventsHandler struct {
	store        domain.EventStore
	publisher    domain.EventPublisher
	logger       *slog.Logger
	metrics      *metrics.CollectorMetrics
	maxEventSize int64
}

// NewEventsHandler creates a new EventsHandler. The publisher is
// optional; pass nil to disable live-tail publishing.
func NewEventsHandler(store domain.EventStore, publisher domain.EventPublisher, logger *slog.Logger, m *metrics.CollectorMetrics, maxEventSize int64) *EventsHandler {
	return &EventsHandler{
		store:        store,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
		maxEventSize: maxEventSize,
	}
}

// ServeHTTP accepts one JSON-serialized event per request and responds
// with a delivery acknowledgment.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		h.metrics.EventsReceivedTotal.WithLabelValues("error_media_type").Inc()
		http.Error(w, "Unsupported Content-Type", http.StatusUnsupportedMediaType)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxEventSize)

	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			h.metrics.EventsReceivedTotal.WithLabelValues("error_parse").Inc()
			h.writeAck(w, http.StatusBadRequest, domain.DeliveryAck{Success: false, Message: "malformed gzip body"})
			return
		}
		defer gz.Close()
		body = gz
	}

	var event domain.Event
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&event); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.metrics.EventsReceivedTotal.WithLabelValues("error_size").Inc()
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.metrics.EventsReceivedTotal.WithLabelValues("error_parse").Inc()
		h.writeAck(w, http.StatusBadRequest, domain.DeliveryAck{Success: false, Message: "malformed event"})
		return
	}
	if r.ContentLength > 0 {
		h.metrics.BytesReceivedTotal.Add(float64(r.ContentLength))
	}

	eventID := uuid.NewString()
	if err := h.store.StoreEvent(r.Context(), eventID, event); err != nil {
		h.metrics.EventsReceivedTotal.WithLabelValues("error_store").Inc()
		h.logger.Error("failed to store event", "error", err, "event_id", eventID)
		h.writeAck(w, http.StatusInternalServerError, domain.DeliveryAck{Success: false, Message: "storage failure"})
		return
	}

	if h.publisher != nil {
		// Best-effort; a broken live tail must not reject the delivery.
		if err := h.publisher.PublishEvent(r.Context(), eventID, event); err != nil {
			h.logger.Warn("failed to publish event to live tail", "error", err, "event_id", eventID)
		}
	}

	h.metrics.EventsReceivedTotal.WithLabelValues("accepted").Inc()
	h.writeAck(w, http.StatusOK, domain.DeliveryAck{Success: true, Message: "event accepted", EventID: eventID})
}

func (h *EventsHandler) writeAck(w http.ResponseWriter, status int, ack domain.DeliveryAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ack); err != nil {
		h.logger.Error("failed to write acknowledgment", "error", err)
	}
}
