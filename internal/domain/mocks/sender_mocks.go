package mocks

import (
	"context"
	"sync"

	"github.com/user/log-shipper/internal/domain"
)

// MockEventSender is a mock implementation of domain.EventSender for testing.
type MockEventSender struct {
	mu         sync.Mutex
	SentEvents []domain.Event
	Calls      int

	// SendFunc, when set, decides the outcome of each call. The call is
	// still recorded.
	SendFunc func(ctx context.Context, event domain.Event) error
	SendErr  error
}

func (m *MockEventSender) Send(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	m.Calls++
	m.SentEvents = append(m.SentEvents, event)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, event)
	}
	return m.SendErr
}

// Sent returns a snapshot of the events handed to Send so far.
func (m *MockEventSender) Sent() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.SentEvents))
	copy(out, m.SentEvents)
	return out
}

// MockBatchDispatcher is a mock implementation of domain.BatchDispatcher.
// When Block is non-nil, SendAll parks on it after recording the batch,
// letting tests hold a flush in flight; closing the channel releases
// every parked and future call.
type MockBatchDispatcher struct {
	mu      sync.Mutex
	Batches [][]domain.Event

	Block chan struct{}
}

func (m *MockBatchDispatcher) SendAll(ctx context.Context, events []domain.Event) {
	m.mu.Lock()
	batch := make([]domain.Event, len(events))
	copy(batch, events)
	m.Batches = append(m.Batches, batch)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
}

// BatchCount returns the number of flushes dispatched so far.
func (m *MockBatchDispatcher) BatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Batches)
}

// AllEvents returns every dispatched event in dispatch order.
func (m *MockBatchDispatcher) AllEvents() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, b := range m.Batches {
		out = append(out, b...)
	}
	return out
}
