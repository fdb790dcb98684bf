package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/common/kafka"
	"github.com/hostledger/service-rental/internal/domain/booking"
)

// StayInvalidator drops cached guest stay summaries.
type StayInvalidator interface {
	Invalidate(ownerID uuid.UUID, guestIDs ...uuid.UUID)
}

// BookingEventConsumer listens to booking events and invalidates the stay
// summaries they change. Every replica runs its own consumer group so each
// local cache sees every event.
type BookingEventConsumer struct {
	consumer *kafka.Consumer
	stays    StayInvalidator
	logger   *zap.Logger
}

// NewBookingEventConsumer creates a new BookingEventConsumer.
func NewBookingEventConsumer(
	brokers []string,
	groupID string,
	stays StayInvalidator,
	logger *zap.Logger,
) *BookingEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, booking.TopicBookingEvents, logger)
	return &BookingEventConsumer{
		consumer: consumer,
		stays:    stays,
		logger:   logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *BookingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *BookingEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *BookingEventConsumer) handleMessage(_ context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch ce.Type {
	case booking.EventCreated, booking.EventUpdated, booking.EventDeleted, booking.EventContractUploaded:
		return c.handleBookingChanged(ce)
	default:
		c.logger.Debug("ignoring unhandled booking event type",
			zap.String("type", ce.Type),
		)
		return nil
	}
}

func (c *BookingEventConsumer) handleBookingChanged(ce kafka.CloudEvent) error {
	var evt booking.ChangedEvent
	if err := ce.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse booking event data",
			zap.String("type", ce.Type),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	guests := evt.AffectedGuests()
	c.stays.Invalidate(evt.OwnerID, guests...)

	c.logger.Debug("guest stays invalidated",
		zap.String("type", ce.Type),
		zap.String("booking_id", evt.BookingID.String()),
		zap.Int("guests", len(guests)),
	)
	return nil
}
