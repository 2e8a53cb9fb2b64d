package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher records events instead of sending them
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) PublishLedgerChanged(ctx context.Context, event LedgerChanged) error {
	return m.record(TopicLedgerChanged, event)
}

func (m *MockEventPublisher) PublishReferenceChanged(ctx context.Context, event ReferenceChanged) error {
	return m.record(TopicReferenceChanged, event)
}

func (m *MockEventPublisher) record(eventType string, data interface{}) error {
	event, err := newEvent(eventType, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("Mock event recorded", "type", eventType, "event_id", event.ID)
	}
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}

func (m *MockEventPublisher) Close() error {
	return nil
}
