//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/database"
	"github.com/hostledger/service-rental/internal/common/kafka"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/events"
	"github.com/hostledger/service-rental/internal/repository"
)

// pgInfra holds a migrated PostgreSQL database.
type pgInfra struct {
	DB      *gorm.DB
	Cleanup func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Service    *application.BookingService
	Properties *repository.GormPropertyRepository
	Guests     *repository.GormGuestRepository
}

// setupPostgres starts a PostgreSQL container and applies every migration.
func setupPostgres(t *testing.T) *pgInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_rental",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_rental",
	}

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", logger))

	return &pgInfra{
		DB: db,
		Cleanup: func() {
			if err := pgContainer.Terminate(ctx); err != nil {
				t.Logf("failed to terminate PostgreSQL container: %v", err)
			}
		},
	}
}

// setupKafka starts a Kafka container with the booking topic created.
func setupKafka(t *testing.T) ([]string, func()) {
	t.Helper()
	ctx := context.Background()

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, bookingDomain.TopicBookingEvents)

	return brokers, func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	}
}

// setupBookingStack wires the booking service over GORM with the given
// publisher and stay cache.
func setupBookingStack(t *testing.T, db *gorm.DB, publisher application.EventPublisher, stays *application.StayCache) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookings := repository.NewGormBookingRepository(db)
	properties := repository.NewGormPropertyRepository(db)
	guests := repository.NewGormGuestRepository(db)
	tx := repository.NewGormTransactor(db, bookings, 5, 20*time.Millisecond, logger)
	checker := application.NewAvailabilityChecker(bookings,
		application.IndexRetryPolicy{Attempts: 2, Delay: 50 * time.Millisecond}, logger)

	svc := application.NewBookingService(bookings, tx, properties, guests, checker,
		bookingDomain.NewNightlyPricingStrategy(), publisher, stays, logger)

	return &bookingStack{Service: svc, Properties: properties, Guests: guests}
}

// seedPropertyAndGuest inserts one property priced at amount per night and one guest.
func seedPropertyAndGuest(t *testing.T, stack *bookingStack, ownerID uuid.UUID, amount float64) (*propertyDomain.Property, *guestDomain.Guest) {
	t.Helper()
	ctx := context.Background()

	p, err := propertyDomain.NewProperty(ownerID, propertyDomain.Details{Name: "Harbour Loft"},
		[]propertyDomain.Price{{Name: "Standard", Amount: amount}})
	require.NoError(t, err)
	require.NoError(t, stack.Properties.Save(ctx, p))

	g, err := guestDomain.NewGuest(ownerID, fmt.Sprintf("Guest %s", uuid.New().String()[:6]), "", "")
	require.NoError(t, err)
	require.NoError(t, stack.Guests.Save(ctx, g))
	return p, g
}

// newKafkaPublisher returns a booking event publisher and its closer.
func newKafkaPublisher(brokers []string) (*events.KafkaPublisher, func()) {
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	return events.NewKafkaPublisher(producer), func() { _ = producer.Close() }
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
