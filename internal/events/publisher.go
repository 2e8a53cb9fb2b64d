package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/studioflow/class-payroll-service/internal/config"
)

// WatermillPublisher delivers events in-process over a gochannel and, when
// brokers are configured, mirrors them to kafka for other consumers.
type WatermillPublisher struct {
	local       *gochannel.GoChannel
	remote      message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

func NewWatermillPublisher(cfg config.EventsConfig, logger *slog.Logger) (*WatermillPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	p := &WatermillPublisher{
		local:       gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger),
		topicPrefix: cfg.TopicPrefix,
		logger:      logger,
	}

	if len(cfg.KafkaBrokers) > 0 {
		remote, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			p.local.Close()
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		p.remote = remote
		logger.Info("Kafka event publisher enabled", "brokers", cfg.KafkaBrokers, "topic_prefix", cfg.TopicPrefix)
	}

	return p, nil
}

// Subscriber exposes the in-process side for the cache invalidator
func (p *WatermillPublisher) Subscriber() message.Subscriber {
	return p.local
}

func (p *WatermillPublisher) PublishLedgerChanged(ctx context.Context, event LedgerChanged) error {
	return p.publish(ctx, TopicLedgerChanged, event)
}

func (p *WatermillPublisher) PublishReferenceChanged(ctx context.Context, event ReferenceChanged) error {
	return p.publish(ctx, TopicReferenceChanged, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, data interface{}) error {
	event, err := newEvent(topic, data)
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", topic, err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", topic)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if p.remote != nil {
		remoteTopic := topic
		if p.topicPrefix != "" {
			remoteTopic = p.topicPrefix + "." + topic
		}
		// kafka is a best-effort mirror; the local bus drives cache invalidation
		if err := p.remote.Publish(remoteTopic, msg.Copy()); err != nil {
			p.logger.Warn("Failed to publish event to kafka",
				"topic", remoteTopic,
				"event_id", event.ID,
				"error", err)
		}
	}

	if err := p.local.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}

	p.logger.Debug("Event published", "topic", topic, "event_id", event.ID)
	return nil
}

func (p *WatermillPublisher) Close() error {
	var firstErr error
	if p.remote != nil {
		if err := p.remote.Close(); err != nil {
			firstErr = err
		}
	}
	if err := p.local.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
