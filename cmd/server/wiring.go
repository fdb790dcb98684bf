package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/database"
	"github.com/hostledger/service-rental/internal/common/health"
	"github.com/hostledger/service-rental/internal/common/kafka"
	"github.com/hostledger/service-rental/internal/common/rabbitmq"
	"github.com/hostledger/service-rental/internal/config"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	guestDomain "github.com/hostledger/service-rental/internal/domain/guest"
	propertyDomain "github.com/hostledger/service-rental/internal/domain/property"
	"github.com/hostledger/service-rental/internal/events"
	"github.com/hostledger/service-rental/internal/repository"
	"github.com/hostledger/service-rental/internal/repository/memstore"
	"github.com/hostledger/service-rental/internal/repository/mongostore"
	"github.com/hostledger/service-rental/internal/storage"
)

// backend is the record store selected by configuration.
type backend struct {
	properties propertyDomain.Repository
	guests     guestDomain.Repository
	bookings   bookingDomain.Repository
	tx         bookingDomain.Transactor
	checks     map[string]health.Check
	close      func()
}

func openStore(ctx context.Context, cfg *config.ServiceConfig, log *zap.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		s := memstore.New()
		log.Warn("using in-memory store, data is lost on restart")
		return &backend{
			properties: s.Properties(),
			guests:     s.Guests(),
			bookings:   s.Bookings(),
			tx:         s,
			checks:     map[string]health.Check{},
			close:      func() {},
		}, nil

	case config.StoreMongo:
		client, err := database.ConnectMongo(ctx, database.MongoConfig{
			URI:      cfg.MongoConfig.URI,
			Database: cfg.MongoConfig.Database,
		}, log)
		if err != nil {
			return nil, err
		}
		s := mongostore.New(client, cfg.MongoConfig.Database, log)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		return &backend{
			properties: s.Properties(),
			guests:     s.Guests(),
			bookings:   s.Bookings(),
			tx:         s,
			checks: map[string]health.Check{
				"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			},
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil

	default:
		dbConfig := database.PostgresConfig{
			Host:     cfg.DBConfig.Host,
			Port:     cfg.DBConfig.Port,
			User:     cfg.DBConfig.User,
			Password: cfg.DBConfig.Password,
			DBName:   cfg.DBConfig.DBName,
			SSLMode:  cfg.DBConfig.SSLMode,
		}
		db, err := database.Connect(dbConfig, log)
		if err != nil {
			return nil, err
		}

		// Run database migrations
		if cfg.AppEnv == "development" {
			if err := db.AutoMigrate(&repository.PropertyModel{}, &repository.GuestModel{}, &repository.BookingModel{}); err != nil {
				return nil, fmt.Errorf("failed to run auto-migration: %w", err)
			}
			log.Info("database migration completed (dev auto-migrate)")
		} else if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		bookings := repository.NewGormBookingRepository(db)
		return &backend{
			properties: repository.NewGormPropertyRepository(db),
			guests:     repository.NewGormGuestRepository(db),
			bookings:   bookings,
			tx:         repository.NewGormTransactor(db, bookings, cfg.Tx.RetryAttempts, cfg.Tx.RetryDelay, log),
			checks: map[string]health.Check{
				"postgres": sqlDB.PingContext,
			},
			close: func() { _ = sqlDB.Close() },
		}, nil
	}
}

func openPublisher(cfg *config.ServiceConfig, log *zap.Logger) (application.EventPublisher, func(), error) {
	switch cfg.EventsDriver {
	case config.EventsKafka:
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		return events.NewKafkaPublisher(producer), func() { _ = producer.Close() }, nil
	case config.EventsRabbitMQ:
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQConfig.URL, cfg.RabbitMQConfig.Exchange, log)
		if err != nil {
			return nil, nil, err
		}
		return events.NewRabbitPublisher(pub), func() { _ = pub.Close() }, nil
	default:
		return events.NopPublisher{Logger: log}, func() {}, nil
	}
}

func openFileStorage(cfg *config.ServiceConfig) (storage.FileStorage, error) {
	if cfg.Storage.Driver == config.StorageCloudinary {
		return storage.NewCloudinaryStorage(storage.CloudinaryConfig{
			CloudName: cfg.Storage.CloudName,
			APIKey:    cfg.Storage.APIKey,
			APISecret: cfg.Storage.APISecret,
			Folder:    cfg.Storage.Folder,
		})
	}
	return storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.PublicURL)
}
