package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/auth"
	"github.com/hostledger/service-rental/internal/common/health"
	"github.com/hostledger/service-rental/internal/common/logger"
	"github.com/hostledger/service-rental/internal/common/middleware"
	"github.com/hostledger/service-rental/internal/config"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
	"github.com/hostledger/service-rental/internal/events"
	"github.com/hostledger/service-rental/internal/handler"
	"github.com/hostledger/service-rental/internal/storage"
)

const serviceName = "service-rental"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("events", cfg.EventsDriver),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect the record store
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.close()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.AccessTTL)

	// Initialize event publisher
	publisher, closePublisher, err := openPublisher(cfg, log)
	if err != nil {
		log.Fatal("failed to open event bus", zap.Error(err))
	}
	defer closePublisher()

	// Initialize contract storage
	files, err := openFileStorage(cfg)
	if err != nil {
		log.Fatal("failed to open file storage", zap.Error(err))
	}

	// Guest stay cache
	var stays *application.StayCache
	if cfg.StayCacheEnabled() {
		stays = application.NewStayCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
		defer stays.Stop()
	} else if cfg.Cache.MaxSize > 0 {
		log.Info("guest stay cache disabled: booking events are not consumed", zap.String("events", cfg.EventsDriver))
	}

	// Initialize application services
	checker := application.NewAvailabilityChecker(st.bookings, application.IndexRetryPolicy{
		Attempts: cfg.Availability.IndexRetryAttempts,
		Delay:    cfg.Availability.IndexRetryDelay,
	}, log)
	bookingService := application.NewBookingService(
		st.bookings,
		st.tx,
		st.properties,
		st.guests,
		checker,
		bookingDomain.NewNightlyPricingStrategy(),
		publisher,
		stays,
		log,
	)
	contractService := application.NewContractService(st.bookings, files, cfg.Storage.MaxContractBytes, publisher, stays, log)
	propertyService := application.NewPropertyService(st.properties, st.bookings, log)
	guestService := application.NewGuestService(st.guests, st.bookings, stays, log)
	overviewService := application.NewOverviewService(st.properties, st.guests, st.bookings, log)

	// Other replicas publish booking events too; drop their guests' cached stays.
	if cfg.EventsDriver == config.EventsKafka && stays != nil {
		hostname, _ := os.Hostname()
		groupID := cfg.KafkaConfig.GroupPrefix + serviceName + "-stays-" + hostname
		consumer := events.NewBookingEventConsumer(cfg.KafkaConfig.Brokers, groupID, stays, log)
		defer func() { _ = consumer.Close() }()

		go func() {
			log.Info("starting booking event consumer", zap.String("group_id", groupID))
			if err := consumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("booking event consumer error", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	propertyHandler := handler.NewPropertyHandler(propertyService)
	guestHandler := handler.NewGuestHandler(guestService)
	bookingHandler := handler.NewBookingHandler(bookingService, contractService)
	overviewHandler := handler.NewOverviewHandler(overviewService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins...))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(serviceName, st.checks)
	healthHandler.RegisterRoutes(router)

	// Serve locally stored contracts
	if local, ok := files.(*storage.LocalStorage); ok {
		router.Static(cfg.Storage.PublicURL, local.Dir())
	}

	// Register routes
	propertyHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	guestHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	overviewHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
