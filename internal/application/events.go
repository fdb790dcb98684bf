package application

import (
	"context"

	"go.uber.org/zap"
)

// EventPublisher delivers a domain event to the message bus. key orders
// events of one aggregate.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, data any) error
}

// publishEvent is fire-and-forget: a bus outage must not fail a write that
// is already committed.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, eventType, key string, data any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, key, data); err != nil {
		logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
