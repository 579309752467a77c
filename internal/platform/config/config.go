package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMongo    = "mongo"
	StorageBackendRedis    = "redis"
	StorageBackendMemory   = "memory"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string
	HTTPPort       string
	StorageBackend string

	PostgresDSN         string
	PostgresAutoMigrate bool
	MongoURI            string
	MongoDatabase       string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	KafkaBrokers        []string

	VoterKind         string
	DocumentCacheSize int
	DocumentCacheTTL  time.Duration

	OutboxBatchSize            int
	WorkerPollInterval         time.Duration
	EnableVoterRemovalConsumer bool
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "docvote")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORAGE_BACKEND", StorageBackendPostgres)
	v.SetDefault("POSTGRES_AUTO_MIGRATE", "true")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "docvote")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("VOTER_KIND", "User")
	v.SetDefault("DOCUMENT_CACHE_SIZE", 0)
	v.SetDefault("DOCUMENT_CACHE_TTL", "30s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("WORKER_POLL_INTERVAL", "2s")
	v.SetDefault("ENABLE_VOTER_REMOVAL_CONSUMER", "true")
}

func fromViper(v *viper.Viper) (Config, error) {
	backend := strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND")))
	switch backend {
	case StorageBackendPostgres, StorageBackendMongo, StorageBackendRedis, StorageBackendMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}

	pollInterval, err := time.ParseDuration(strings.TrimSpace(v.GetString("WORKER_POLL_INTERVAL")))
	if err != nil {
		return Config{}, fmt.Errorf("parse WORKER_POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return Config{}, fmt.Errorf("WORKER_POLL_INTERVAL must be positive, got %s", pollInterval)
	}

	cacheSize := v.GetInt("DOCUMENT_CACHE_SIZE")
	if cacheSize < 0 {
		return Config{}, fmt.Errorf("DOCUMENT_CACHE_SIZE must not be negative, got %d", cacheSize)
	}

	cacheTTL, err := time.ParseDuration(strings.TrimSpace(v.GetString("DOCUMENT_CACHE_TTL")))
	if err != nil {
		return Config{}, fmt.Errorf("parse DOCUMENT_CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("DOCUMENT_CACHE_TTL must be positive, got %s", cacheTTL)
	}

	batchSize := v.GetInt("OUTBOX_BATCH_SIZE")
	if batchSize <= 0 {
		batchSize = 100
	}

	var brokers []string
	for _, value := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:    strings.TrimSpace(v.GetString("SERVICE_NAME")),
		HTTPPort:       strings.TrimSpace(v.GetString("HTTP_PORT")),
		StorageBackend: backend,

		PostgresDSN:         strings.TrimSpace(v.GetString("POSTGRES_DSN")),
		PostgresAutoMigrate: parseBool(v.GetString("POSTGRES_AUTO_MIGRATE"), true),
		MongoURI:            strings.TrimSpace(v.GetString("MONGO_URI")),
		MongoDatabase:       strings.TrimSpace(v.GetString("MONGO_DATABASE")),
		RedisAddr:           strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		KafkaBrokers:        brokers,

		VoterKind:         strings.TrimSpace(v.GetString("VOTER_KIND")),
		DocumentCacheSize: cacheSize,
		DocumentCacheTTL:  cacheTTL,

		OutboxBatchSize:            batchSize,
		WorkerPollInterval:         pollInterval,
		EnableVoterRemovalConsumer: parseBool(v.GetString("ENABLE_VOTER_REMOVAL_CONSUMER"), true),
	}, nil
}

func parseBool(raw string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
