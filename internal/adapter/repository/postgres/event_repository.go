package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/log-shipper/internal/domain"
)

// EventRepository implements domain.EventStore for PostgreSQL.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger.With("component", "postgres_repository"),
	}
}

// StoreEvent inserts one delivered event. Inserts are idempotent on
// event_id so a redelivered event never duplicates a row.
func (r *EventRepository) StoreEvent(ctx context.Context, eventID string, event domain.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	eventTime, err := time.Parse(time.RFC3339Nano, event.Timestamp)
	if err != nil {
		// A shipper should always send RFC3339; tolerate a bad clock
		// rather than rejecting the event.
		eventTime = time.Now().UTC()
	}

	const query = `
		INSERT INTO events (event_id, category, app, event_time, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING;
	`
	if _, err := r.db.ExecContext(ctx, query, eventID, string(event.Category), event.App, eventTime, event.Message, data); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}
