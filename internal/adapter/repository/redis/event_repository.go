package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/user/log-shipper/internal/domain"
)

const (
	eventStreamKey = "delivered_events"
	streamMaxLen   = 10000
)

// EventRepository implements domain.EventPublisher using a capped Redis
// Stream, giving local dashboards a live tail of delivered events.
type EventRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewEventRepository creates a new Redis-backed event publisher.
func NewEventRepository(client *redis.Client, logger *slog.Logger) *EventRepository {
	return &EventRepository{
		client: client,
		logger: logger.With("component", "redis_repository"),
	}
}

// PublishEvent appends one delivered event to the live-tail stream. The
// stream is trimmed approximately so it never grows unbounded.
func (r *EventRepository) PublishEvent(ctx context.Context, eventID string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: eventStreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id": eventID,
			"payload":  payload,
		},
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event to stream: %w", err)
	}
	return nil
}
