package config

import (
	"os"
	"strconv"
	"time"

	"studiobook/internal/database"
	"studiobook/internal/external"
	"studiobook/internal/messaging"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	NATS     messaging.Config
	Valkey   ValkeyConfig
	Notify   external.NotifyConfig
	Booking  BookingConfig
}

// BookingConfig tunes the booking engine. PromotionDebitPolicy is "always"
// (debit the promoted member unconditionally, matching the historical
// behavior; a finite balance may go negative) or "skip" (an insolvent
// member keeps the waitlist spot and the seat stays open).
type BookingConfig struct {
	PromotionDebitPolicy string
}

// ValkeyConfig holds the member-auth cache configuration
type ValkeyConfig struct {
	Addr         string
	Password     string
	AuthHashKey  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "studiobook"),
			Password:           getEnv("DB_PASSWORD", "studiobook123"),
			DBName:             getEnv("DB_NAME", "studiobook"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "studiobook"),
			ClientID:  getEnv("NATS_CLIENT_ID", "studiobook-api"),
		},

		Valkey: ValkeyConfig{
			Addr:         getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:     os.Getenv("VALKEY_PASSWORD"),
			AuthHashKey:  getEnv("VALKEY_AUTH_HASH_KEY", "members:auth"),
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			DialTimeout:  5 * time.Second,
		},

		Notify: external.NotifyConfig{
			BaseURL: getEnv("NOTIFY_GATEWAY_URL", "http://localhost:9000"),
			APIKey:  os.Getenv("NOTIFY_GATEWAY_API_KEY"),
			Timeout: time.Duration(getEnvInt("NOTIFY_TIMEOUT_SEC", 10)) * time.Second,
		},

		Booking: BookingConfig{
			PromotionDebitPolicy: getEnv("PROMOTION_DEBIT_POLICY", "always"),
		},
	}
}

// ElasticsearchConfig holds the schedule-search index configuration
type ElasticsearchConfig struct {
	URL        string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

// LoadElasticsearchConfig reads the Elasticsearch configuration from
// environment variables
func LoadElasticsearchConfig() ElasticsearchConfig {
	timeout := 30 * time.Second
	if val := os.Getenv("ELASTICSEARCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			timeout = parsed
		}
	}

	return ElasticsearchConfig{
		URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		Index:      getEnv("ELASTICSEARCH_INDEX", "class_sessions"),
		Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:    timeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
