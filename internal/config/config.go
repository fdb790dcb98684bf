package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hostledger/service-rental/internal/common/config"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Event bus drivers.
const (
	EventsNone     = "none"
	EventsKafka    = "kafka"
	EventsRabbitMQ = "rabbitmq"
)

// File storage drivers.
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
)

// AvailabilityConfig bounds the index-readiness retry of the availability check.
type AvailabilityConfig struct {
	IndexRetryAttempts int
	IndexRetryDelay    time.Duration
}

// TxConfig bounds retries of serialization failures in the SQL store.
type TxConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
}

// CacheConfig sizes the guest stay cache. MaxSize 0 disables it.
type CacheConfig struct {
	MaxSize int64
	TTL     time.Duration
}

// StorageConfig selects where contracts are written.
type StorageConfig struct {
	Driver           string
	LocalDir         string
	PublicURL        string
	MaxContractBytes int
	CloudName        string
	APIKey           string
	APISecret        string
	Folder           string
}

// ServiceConfig holds all configuration for the rental service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	StoreDriver    string
	EventsDriver   string
	DBConfig       config.DatabaseConfig
	MongoConfig    config.MongoConfig
	JWTConfig      config.JWTConfig
	KafkaConfig    config.KafkaConfig
	RabbitMQConfig config.RabbitMQConfig
	Availability   AvailabilityConfig
	Tx             TxConfig
	Cache          CacheConfig
	Storage        StorageConfig
	CORSOrigins    []string
}

// Load reads configuration from RENTAL_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("RENTAL")
	if err != nil {
		return nil, err
	}

	v.SetDefault("DB_NAME", "rental")
	v.SetDefault("MONGO_DATABASE", "rental")
	v.SetDefault("JWT_ISSUER", "service-rental")
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("EVENTS_DRIVER", EventsKafka)
	v.SetDefault("STORAGE_DRIVER", StorageLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/files")
	v.SetDefault("STORAGE_PUBLIC_URL", "/files")
	v.SetDefault("STORAGE_MAX_CONTRACT_BYTES", 10<<20)
	v.SetDefault("AVAILABILITY_INDEX_RETRY_ATTEMPTS", 3)
	v.SetDefault("AVAILABILITY_INDEX_RETRY_DELAY", "2s")
	v.SetDefault("STORE_TX_RETRY_ATTEMPTS", 5)
	v.SetDefault("STORE_TX_RETRY_DELAY", "50ms")
	v.SetDefault("CACHE_MAX_SIZE", 10000)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "")

	cfg := &ServiceConfig{
		Port:           config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:         config.GetAppEnv(v),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		EventsDriver:   strings.ToLower(v.GetString("EVENTS_DRIVER")),
		DBConfig:       config.LoadDatabaseConfig(v, "DB_NAME"),
		MongoConfig:    config.LoadMongoConfig(v, "MONGO_DATABASE"),
		JWTConfig:      config.LoadJWTConfig(v),
		KafkaConfig:    config.LoadKafkaConfig(v),
		RabbitMQConfig: config.LoadRabbitMQConfig(v),
		Availability: AvailabilityConfig{
			IndexRetryAttempts: v.GetInt("AVAILABILITY_INDEX_RETRY_ATTEMPTS"),
			IndexRetryDelay:    v.GetDuration("AVAILABILITY_INDEX_RETRY_DELAY"),
		},
		Tx: TxConfig{
			RetryAttempts: v.GetInt("STORE_TX_RETRY_ATTEMPTS"),
			RetryDelay:    v.GetDuration("STORE_TX_RETRY_DELAY"),
		},
		Cache: CacheConfig{
			MaxSize: v.GetInt64("CACHE_MAX_SIZE"),
			TTL:     v.GetDuration("CACHE_TTL"),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(v.GetString("STORAGE_DRIVER")),
			LocalDir:         v.GetString("STORAGE_LOCAL_DIR"),
			PublicURL:        v.GetString("STORAGE_PUBLIC_URL"),
			MaxContractBytes: v.GetInt("STORAGE_MAX_CONTRACT_BYTES"),
			CloudName:        v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:           v.GetString("CLOUDINARY_API_KEY"),
			APISecret:        v.GetString("CLOUDINARY_API_SECRET"),
			Folder:           v.GetString("CLOUDINARY_FOLDER"),
		},
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StayCacheEnabled reports whether the guest stay cache may run. Other
// instances' booking writes only reach the cache through the Kafka
// consumer, so it stays off on shared stores without Kafka events.
func (c *ServiceConfig) StayCacheEnabled() bool {
	if c.Cache.MaxSize <= 0 {
		return false
	}
	return c.EventsDriver == EventsKafka || c.StoreDriver == StoreMemory
}

func (c *ServiceConfig) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.EventsDriver {
	case EventsNone, EventsKafka, EventsRabbitMQ:
	default:
		return fmt.Errorf("unknown events driver %q", c.EventsDriver)
	}
	switch c.Storage.Driver {
	case StorageLocal, StorageCloudinary:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWTConfig.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Availability.IndexRetryAttempts < 1 {
		return fmt.Errorf("availability index retry attempts must be at least 1")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
