package domain

import "context"

// EventSender delivers a single event to the collector. Implementations
// own retries and timeouts for that event; a returned error means the
// event is lost for this batch. Safe for concurrent use across events.
type EventSender interface {
	Send(ctx context.Context, event Event) error
}

// BatchDispatcher fans out one drained batch as independent concurrent
// sends and absorbs every per-event failure; it never reports an error
// to its caller.
type BatchDispatcher interface {
	SendAll(ctx context.Context, events []Event)
}

// EventStore persists a delivered event on the collector side.
type EventStore interface {
	StoreEvent(ctx context.Context, eventID string, event Event) error
}

// EventPublisher announces a delivered event to live subscribers
// (best-effort; failures must not reject the delivery).
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventID string, event Event) error
}
