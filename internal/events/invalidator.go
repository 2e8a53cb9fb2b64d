package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/studioflow/class-payroll-service/internal/cache"
	"github.com/studioflow/class-payroll-service/internal/models"
)

// CacheInvalidator drops cached reports when the ledger or reference data change
type CacheInvalidator struct {
	router *message.Router
	cache  *cache.CacheManager
	logger *slog.Logger
}

func NewCacheInvalidator(sub message.Subscriber, cm *cache.CacheManager, logger *slog.Logger) (*CacheInvalidator, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	inv := &CacheInvalidator{router: router, cache: cm, logger: logger}
	router.AddNoPublisherHandler("invalidate_ledger_reports", TopicLedgerChanged, sub, inv.handleLedgerChanged)
	router.AddNoPublisherHandler("invalidate_reference_reports", TopicReferenceChanged, sub, inv.handleReferenceChanged)

	return inv, nil
}

// Run blocks until ctx is cancelled or Close is called
func (i *CacheInvalidator) Run(ctx context.Context) error {
	return i.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (i *CacheInvalidator) Running() chan struct{} {
	return i.router.Running()
}

func (i *CacheInvalidator) Close() error {
	return i.router.Close()
}

func (i *CacheInvalidator) handleLedgerChanged(msg *message.Message) error {
	var data LedgerChanged
	if err := decodeEvent(msg, &data); err != nil {
		// a malformed event can never succeed; ack it and move on
		i.logger.Error("Dropping malformed ledger event", "message_id", msg.UUID, "error", err)
		return nil
	}

	next := make([]string, 0, len(data.Periods))
	for _, key := range data.Periods {
		p, err := models.ParsePeriodKey(key)
		if err != nil {
			i.logger.Warn("Ignoring invalid period in ledger event", "period", key)
			continue
		}
		next = append(next, p.Next().Key())
	}

	i.cache.InvalidatePeriods(msg.Context(), data.Periods, next)
	i.logger.Debug("Invalidated cached reports", "action", data.Action, "periods", data.Periods)
	return nil
}

func (i *CacheInvalidator) handleReferenceChanged(msg *message.Message) error {
	var data ReferenceChanged
	if err := decodeEvent(msg, &data); err != nil {
		i.logger.Error("Dropping malformed reference event", "message_id", msg.UUID, "error", err)
		return nil
	}

	i.cache.InvalidateAllReports(msg.Context())
	i.logger.Debug("Invalidated all cached reports", "entity", data.Entity, "action", data.Action)
	return nil
}

func decodeEvent(msg *message.Message, dest interface{}) error {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return err
	}
	return json.Unmarshal(event.Data, dest)
}
