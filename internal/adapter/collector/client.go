package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker"

	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/domain"
	"github.com/user/log-shipper/internal/pkg/config"
)

const eventsPath = "/api/events"

// Client delivers single events to the collector over HTTP. It enforces
// a per-attempt timeout, classifies failures via the domain taxonomy and
// retries retryable ones with exponential backoff. It holds no mutable
// state and is safe for concurrent use across events.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	apiKey        string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	compress      bool
	breaker       *gobreaker.CircuitBreaker
	logger        *slog.Logger
	metrics       *metrics.ShipperMetrics
}

// NewClient creates a delivery client from the shipper configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, m *metrics.ShipperMetrics) *Client {
	c := &Client{
		// The attempt deadline lives on the request context; the
		// http.Client itself carries no timeout so the two never fight.
		httpClient:    &http.Client{},
		endpoint:      strings.TrimRight(cfg.ServerURL, "/") + eventsPath,
		apiKey:        cfg.APIKey,
		timeout:       cfg.Timeout,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		compress:      cfg.Compress,
		logger:        logger.With("component", "delivery_client"),
		metrics:       m,
	}

	if cfg.CircuitBreaker {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "collector",
			// A non-retryable rejection is the collector answering, not
			// the collector being down; only retryable failures may trip
			// the breaker.
			IsSuccessful: func(err error) bool {
				return err == nil || !domain.IsRetryable(err)
			},
		})
	}

	return c
}

// Send delivers one event, retrying retryable failures up to
// retryAttempts additional times. On exhaustion it returns an
// ExhaustedError wrapping the last attempt's error; a non-retryable
// failure is returned as-is with no further attempts.
func (c *Client) Send(ctx context.Context, event domain.Event) error {
	payload, err := c.encode(event)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			c.logger.Debug("backing off before retry", "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.attempt(ctx, payload)
		if err == nil {
			c.metrics.DeliveryAttemptsTotal.WithLabelValues("success").Inc()
			if attempt > 0 {
				c.logger.Debug("delivery succeeded after retries", "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if !domain.IsRetryable(err) {
			c.metrics.DeliveryAttemptsTotal.WithLabelValues("fatal_error").Inc()
			c.logger.Warn("non-retryable delivery failure", "error", err)
			return err
		}
		c.metrics.DeliveryAttemptsTotal.WithLabelValues("retryable_error").Inc()
		c.logger.Warn("delivery attempt failed", "attempt", attempt+1, "error", err)
	}

	return &domain.ExhaustedError{Attempts: c.retryAttempts + 1, Last: lastErr}
}

// backoffDelay returns the delay inserted before attempt k (1-indexed
// for the first retry): retryDelay * 2^(k-1).
func (c *Client) backoffDelay(attempt int) time.Duration {
	return c.retryDelay * time.Duration(1<<(attempt-1))
}

func (c *Client) encode(event domain.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	if !c.compress {
		return body, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return nil, fmt.Errorf("failed to compress event: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress event: %w", err)
	}
	return buf.Bytes(), nil
}

// attempt performs one HTTP POST under its own deadline and maps the
// outcome onto the error taxonomy.
func (c *Client) attempt(parent context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if c.breaker != nil {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.do(parent, req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.NetworkError{Err: err}
		}
		return err
	}
	return c.do(parent, req)
}

func (c *Client) do(parent context.Context, req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The parent being done means the caller gave up, not that the
		// attempt timed out.
		if parent.Err() != nil {
			return parent.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &domain.TimeoutError{Timeout: c.timeout}
		}
		return &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// The ack body is informational only; a malformed or empty body
		// does not fail the delivery.
		var ack domain.DeliveryAck
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && ack.EventID != "" {
			c.logger.Debug("collector acknowledged event", "event_id", ack.EventID)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return &domain.StatusError{Code: resp.StatusCode}
}
