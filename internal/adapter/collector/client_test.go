package collector

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/domain"
	"github.com/user/log-shipper/internal/pkg/config"
)

var testMetrics = metrics.NewShipperMetrics()

func newTestClient(t *testing.T, serverURL string, mutate func(*config.Config)) *Client {
	t.Helper()
	cfg := &config.Config{
		ServerURL:      serverURL,
		BatchSize:      10,
		FlushInterval:  time.Second,
		QueueSizeLimit: 100,
		Timeout:        2 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
	}
	if mutate != nil {
		mutate(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, logger, testMetrics)
}

func testEvent() domain.Event {
	return domain.Event{
		Category:  domain.CategoryError,
		App:       "checkout",
		Timestamp: "2026-08-24T12:00:00Z",
		Message:   "payment failed",
		Data:      map[string]any{"order_id": "o-17"},
	}
}

func TestClient_Send(t *testing.T) {
	t.Run("Success With Auth And Content Type", func(t *testing.T) {
		var attempts atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			if r.URL.Path != "/api/events" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("unexpected content type %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("unexpected authorization header %q", got)
			}
			var event domain.Event
			if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
				t.Errorf("failed to decode event body: %v", err)
			}
			if event.Message != "payment failed" {
				t.Errorf("unexpected message %q", event.Message)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"message":"event accepted","eventId":"abc"}`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, func(cfg *config.Config) { cfg.APIKey = "secret" })
		if err := c.Send(context.Background(), testEvent()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if attempts.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts.Load())
		}
	})

	t.Run("HTTP 404 Makes Exactly One Attempt", func(t *testing.T) {
		var attempts atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, nil)
		err := c.Send(context.Background(), testEvent())

		var statusErr *domain.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if statusErr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", statusErr.Code)
		}
		var exhausted *domain.ExhaustedError
		if errors.As(err, &exhausted) {
			t.Error("a non-retryable failure must not be reported as exhaustion")
		}
		if attempts.Load() != 1 {
			t.Errorf("expected exactly 1 attempt, got %d", attempts.Load())
		}
	})

	t.Run("HTTP 500 Three Times Then Success", func(t *testing.T) {
		var attempts atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) <= 3 {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"success":true,"message":"event accepted"}`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, nil) // retryAttempts=3
		if err := c.Send(context.Background(), testEvent()); err != nil {
			t.Fatalf("expected success on try 4, got %v", err)
		}
		if attempts.Load() != 4 {
			t.Errorf("expected 4 attempts, got %d", attempts.Load())
		}
	})

	t.Run("HTTP 429 Exhausts As ExhaustedError", func(t *testing.T) {
		var attempts atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, func(cfg *config.Config) { cfg.RetryAttempts = 2 })
		err := c.Send(context.Background(), testEvent())

		var exhausted *domain.ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected ExhaustedError, got %v", err)
		}
		if exhausted.Attempts != 3 {
			t.Errorf("expected 3 attempts recorded, got %d", exhausted.Attempts)
		}
		var statusErr *domain.StatusError
		if !errors.As(exhausted.Last, &statusErr) || statusErr.Code != http.StatusTooManyRequests {
			t.Errorf("expected last error to carry status 429, got %v", exhausted.Last)
		}
		if attempts.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts.Load())
		}
	})

	t.Run("Per Attempt Timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		c := newTestClient(t, server.URL, func(cfg *config.Config) {
			cfg.Timeout = 20 * time.Millisecond
			cfg.RetryAttempts = 0
		})
		err := c.Send(context.Background(), testEvent())

		var exhausted *domain.ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected ExhaustedError, got %v", err)
		}
		var timeoutErr *domain.TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("expected a timeout failure, got %v", exhausted.Last)
		}
	})

	t.Run("Network Failure Is Retried", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse all connections

		c := newTestClient(t, server.URL, func(cfg *config.Config) { cfg.RetryAttempts = 1 })
		err := c.Send(context.Background(), testEvent())

		var exhausted *domain.ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected ExhaustedError, got %v", err)
		}
		if exhausted.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", exhausted.Attempts)
		}
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) {
			t.Errorf("expected last error to be a NetworkError, got %v", exhausted.Last)
		}
	})

	t.Run("Cancelled Context Stops Retrying", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := newTestClient(t, server.URL, func(cfg *config.Config) { cfg.RetryDelay = time.Hour })
		err := c.Send(ctx, testEvent())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Compressed Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Content-Encoding"); got != "gzip" {
				t.Errorf("expected gzip content encoding, got %q", got)
			}
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				t.Fatalf("failed to open gzip body: %v", err)
			}
			defer gz.Close()
			var event domain.Event
			if err := json.NewDecoder(gz).Decode(&event); err != nil {
				t.Errorf("failed to decode compressed event: %v", err)
			}
			if event.Message != "payment failed" {
				t.Errorf("unexpected message %q", event.Message)
			}
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, func(cfg *config.Config) { cfg.Compress = true })
		if err := c.Send(context.Background(), testEvent()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Breaker Stays Closed On Non-Retryable Responses", func(t *testing.T) {
		var attempts atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, func(cfg *config.Config) { cfg.CircuitBreaker = true })

		// Well past the default consecutive-failure threshold; every send
		// must still reach the collector and classify as a 404, never as
		// an open-circuit NetworkError.
		for i := 0; i < 10; i++ {
			err := c.Send(context.Background(), testEvent())
			var statusErr *domain.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
				t.Fatalf("send %d: expected StatusError 404, got %v", i+1, err)
			}
		}
		if attempts.Load() != 10 {
			t.Errorf("expected 10 attempts, got %d", attempts.Load())
		}
	})

	t.Run("Non JSON Ack Body Still Succeeds", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, nil)
		if err := c.Send(context.Background(), testEvent()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestClient_BackoffDelay(t *testing.T) {
	c := newTestClient(t, "http://localhost", func(cfg *config.Config) {
		cfg.RetryDelay = 100 * time.Millisecond
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := c.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}
