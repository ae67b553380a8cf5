package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/user/log-shipper/internal/adapter/metrics"
	"github.com/user/log-shipper/internal/domain"
	"github.com/user/log-shipper/internal/pkg/config"
)

type lifecycleState int

const (
	stateActive lifecycleState = iota
	stateClosing
	stateClosed
)

// BufferEventsUseCase owns the pending-event buffer and decides when to
// flush it: on reaching batchSize, on every flushInterval tick, and once
// more during Close. The buffer is bounded; under sustained backpressure
// the oldest event is evicted so the producer is never blocked. At most
// one flush is in flight at a time, and network I/O always happens
// outside the critical section.
type BufferEventsUseCase struct {
	dispatcher    domain.BatchDispatcher
	batchSize     int
	queueLimit    int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.ShipperMetrics

	mu              sync.Mutex
	buffer          []domain.Event
	state           lifecycleState
	flushInProgress bool
	flushDone       *sync.Cond // signalled when flushInProgress drops

	stopTimer chan struct{}
	closeOnce sync.Once
}

// NewBufferEventsUseCase creates the buffer manager and starts its
// periodic flush timer. The timer runs on a background goroutine and is
// cancelled exactly once when Close begins.
func NewBufferEventsUseCase(dispatcher domain.BatchDispatcher, cfg *config.Config, logger *slog.Logger, m *metrics.ShipperMetrics) *BufferEventsUseCase {
	uc := &BufferEventsUseCase{
		dispatcher:    dispatcher,
		batchSize:     cfg.BatchSize,
		queueLimit:    cfg.QueueSizeLimit,
		flushInterval: cfg.FlushInterval,
		logger:        logger.With("component", "buffer_manager"),
		metrics:       m,
		buffer:        make([]domain.Event, 0, cfg.BatchSize),
		stopTimer:     make(chan struct{}),
	}
	uc.flushDone = sync.NewCond(&uc.mu)

	go uc.timerLoop()

	return uc
}

// Enqueue appends one event to the pending buffer. It never blocks on
// network I/O: when the size threshold is reached the flush runs on its
// own goroutine. Once closing has begun the event is dropped with a
// warning. At capacity the oldest buffered event is evicted first.
func (uc *BufferEventsUseCase) Enqueue(event domain.Event) {
	uc.mu.Lock()
	if uc.state != stateActive {
		uc.mu.Unlock()
		uc.metrics.EventsDroppedTotal.WithLabelValues("closed").Inc()
		uc.logger.Warn("event rejected, shipper is closed", "category", event.Category)
		return
	}

	if len(uc.buffer) >= uc.queueLimit {
		copy(uc.buffer, uc.buffer[1:])
		uc.buffer = uc.buffer[:len(uc.buffer)-1]
		uc.metrics.EventsDroppedTotal.WithLabelValues("overflow").Inc()
		uc.logger.Warn("buffer full, evicted oldest event", "limit", uc.queueLimit)
	}

	uc.buffer = append(uc.buffer, event)
	length := len(uc.buffer)
	// Published under the lock so concurrent enqueues cannot publish a
	// stale length over a fresh one.
	uc.metrics.BufferLength.Set(float64(length))
	uc.mu.Unlock()

	uc.metrics.EventsEnqueuedTotal.Inc()

	if length >= uc.batchSize {
		go uc.flush(context.Background())
	}
}

// Flush drains the buffer and delivers its contents. It is an idempotent
// no-op while another flush is in progress or when the buffer is empty.
func (uc *BufferEventsUseCase) Flush(ctx context.Context) {
	uc.flush(ctx)
}

// Close stops the timer, performs one final synchronous flush and
// transitions to Closed. It is idempotent; a second call returns
// immediately. After Close returns no flush is in flight and every
// subsequent Enqueue is rejected.
func (uc *BufferEventsUseCase) Close(ctx context.Context) error {
	uc.closeOnce.Do(func() {
		uc.mu.Lock()
		uc.state = stateClosing
		uc.mu.Unlock()

		close(uc.stopTimer)

		// Wait out any in-flight flush, then claim the single-flight
		// slot under the same lock so nothing can start in between.
		uc.mu.Lock()
		for uc.flushInProgress {
			uc.flushDone.Wait()
		}
		batch := uc.buffer
		uc.buffer = nil
		if len(batch) > 0 {
			uc.flushInProgress = true
		}
		uc.mu.Unlock()

		if len(batch) > 0 {
			uc.logger.Debug("final flush on close", "count", len(batch))
			uc.sendBatch(ctx, batch)
		}

		uc.mu.Lock()
		uc.state = stateClosed
		uc.mu.Unlock()

		uc.metrics.BufferLength.Set(0)
		uc.logger.Info("event buffer closed")
	})
	return nil
}

func (uc *BufferEventsUseCase) timerLoop() {
	ticker := time.NewTicker(uc.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			uc.flush(context.Background())
		case <-uc.stopTimer:
			return
		}
	}
}

func (uc *BufferEventsUseCase) flush(ctx context.Context) {
	batch := uc.takeBatch()
	if batch == nil {
		return
	}
	uc.sendBatch(ctx, batch)
}

// takeBatch atomically drains the whole buffer and claims the
// single-flight slot. It returns nil when a flush is already in
// progress, the buffer is empty, or the manager is closed.
func (uc *BufferEventsUseCase) takeBatch() []domain.Event {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.flushInProgress || uc.state == stateClosed || len(uc.buffer) == 0 {
		if uc.flushInProgress {
			uc.logger.Debug("flush already in progress, skipping")
		}
		return nil
	}

	uc.flushInProgress = true
	batch := uc.buffer
	uc.buffer = make([]domain.Event, 0, uc.batchSize)
	uc.metrics.BufferLength.Set(0)
	return batch
}

func (uc *BufferEventsUseCase) sendBatch(ctx context.Context, batch []domain.Event) {
	timer := prometheus.NewTimer(uc.metrics.FlushDurationSeconds)
	uc.dispatcher.SendAll(ctx, batch)
	timer.ObserveDuration()

	uc.mu.Lock()
	uc.flushInProgress = false
	uc.flushDone.Broadcast()
	uc.mu.Unlock()
}
