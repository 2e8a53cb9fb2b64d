package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicLedgerChanged    = "ledger.changed"
	TopicReferenceChanged = "reference.changed"

	eventSource  = "class-payroll-service"
	eventVersion = "1.0"
)

// Event is the envelope carried by every message
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// LedgerChanged reports a class write. Periods are yyyy-mm keys of every month touched.
type LedgerChanged struct {
	Action   string   `json:"action"`
	ClassIDs []uint   `json:"classIds,omitempty"`
	Periods  []string `json:"periods"`
}

// ReferenceChanged reports a write to roles, ranks, modalities, teachers or fixed values
type ReferenceChanged struct {
	Entity   string `json:"entity"`
	Action   string `json:"action"`
	EntityID uint   `json:"entityId,omitempty"`
}

// EventPublisher is what services depend on
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, event LedgerChanged) error
	PublishReferenceChanged(ctx context.Context, event ReferenceChanged) error
	Close() error
}

func newEvent(eventType string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}
