package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/domain"
)

// DispatchEventsUseCase fans out one drained batch as independent
// concurrent sends. Per-event failures are absorbed here: a failed event
// is lost for its batch and surfaced only through diagnostics and
// metrics, never to the caller.
type DispatchEventsUseCase struct {
	sender  domain.EventSender
	logger  *slog.Logger
	metrics *metrics.ShipperMetrics
}

// NewDispatchEventsUseCase creates a new DispatchEventsUseCase.
func NewDispatchEventsUseCase(sender domain.EventSender, logger *slog.Logger, m *metrics.ShipperMetrics) *DispatchEventsUseCase {
	return &DispatchEventsUseCase{
		sender:  sender,
		logger:  logger.With("component", "batch_dispatcher"),
		metrics: m,
	}
}

// SendAll delivers every event of the batch concurrently and waits for
// all sends to settle. Delivery order across events is not guaranteed.
func (uc *DispatchEventsUseCase) SendAll(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}

	var wg sync.WaitGroup
	var delivered, lost atomic.Int64

	for _, event := range events {
		wg.Add(1)
		go func(ev domain.Event) {
			defer wg.Done()
			if err := uc.sender.Send(ctx, ev); err != nil {
				lost.Add(1)
				uc.metrics.EventsLostTotal.Inc()
				uc.logger.Warn("event lost after delivery failure", "category", ev.Category, "error", err)
				return
			}
			delivered.Add(1)
			uc.metrics.EventsDeliveredTotal.Inc()
		}(event)
	}
	wg.Wait()

	if lost.Load() > 0 {
		uc.logger.Warn("batch delivered partially", "delivered", delivered.Load(), "lost", lost.Load())
		return
	}
	uc.logger.Debug("batch delivered", "count", delivered.Load())
}
