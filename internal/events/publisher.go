package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/common/kafka"
	"github.com/hostledger/service-rental/internal/domain/booking"
)

// Source is the CloudEvents source attribute of every event this service emits.
const Source = "service-rental"

type cloudEventWriter interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

type messageSender interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

func newEnvelope(eventType, key string, data any) (kafka.CloudEvent, error) {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		return kafka.CloudEvent{}, err
	}
	ce.Subject = key
	return ce, nil
}

// KafkaPublisher publishes booking events as CloudEvents on the booking topic.
type KafkaPublisher struct {
	producer cloudEventWriter
	topic    string
}

// NewKafkaPublisher creates a KafkaPublisher writing through producer.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: booking.TopicBookingEvents}
}

// Publish wraps data in a CloudEvent whose subject is key.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, data any) error {
	ce, err := newEnvelope(eventType, key, data)
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, p.topic, ce)
}

// RabbitPublisher publishes booking events to a topic exchange, routed by
// event type.
type RabbitPublisher struct {
	sender messageSender
}

// NewRabbitPublisher creates a RabbitPublisher sending through sender.
func NewRabbitPublisher(sender messageSender) *RabbitPublisher {
	return &RabbitPublisher{sender: sender}
}

// Publish sends the CloudEvent with routing key eventType.
func (p *RabbitPublisher) Publish(ctx context.Context, eventType, key string, data any) error {
	ce, err := newEnvelope(eventType, key, data)
	if err != nil {
		return err
	}
	if err := p.sender.Publish(ctx, eventType, ce); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// NopPublisher logs events at debug level and drops them.
type NopPublisher struct {
	Logger *zap.Logger
}

// Publish implements application.EventPublisher.
func (p NopPublisher) Publish(_ context.Context, eventType, key string, _ any) error {
	if p.Logger != nil {
		p.Logger.Debug("event dropped, no bus configured",
			zap.String("event_type", eventType),
			zap.String("key", key),
		)
	}
	return nil
}
