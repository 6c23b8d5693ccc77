package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StorePebble   = "pebble"
)

// Upload backends
const (
	UploadLocal = "local"
	UploadS3    = "s3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Upload    UploadConfig
	S3        S3Config
	Broadcast BroadcastConfig
	Kafka     KafkaConfig
	Sync      SyncConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host      string
	Port      int
	StaticDir string // optional directory with the browser UI
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend   string // "memory", "postgres" or "pebble"
	PebbleDir string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// UploadConfig holds menu image storage configuration.
type UploadConfig struct {
	Backend string // "local" or "s3"
	Dir     string
}

// S3Config holds AWS S3 configuration for uploaded images.
type S3Config struct {
	Bucket string
	Region string
	Prefix string // Path prefix within bucket (e.g., "uploads/")
}

// BroadcastConfig holds viewer fan-out configuration.
type BroadcastConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// KafkaConfig holds the optional change-event sink configuration.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// SyncConfig tunes the sync controller.
type SyncConfig struct {
	MaxAttempts int // bound on CAS retries for transitions and generated order IDs
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present; real environment wins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "0.0.0.0"),
			Port:      getEnvAsInt("SERVER_PORT", 3000),
			StaticDir: getEnv("STATIC_DIR", ""),
		},
		Store: StoreConfig{
			Backend:   getEnv("STORE_BACKEND", StoreMemory),
			PebbleDir: getEnv("PEBBLE_DIR", "data/pebble"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "barsync"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Upload: UploadConfig{
			Backend: getEnv("UPLOAD_BACKEND", UploadLocal),
			Dir:     getEnv("UPLOAD_DIR", "uploads"),
		},
		S3: S3Config{
			Bucket: getEnv("S3_BUCKET", ""),
			Region: getEnv("S3_REGION", "us-east-1"),
			Prefix: getEnv("S3_PREFIX", "uploads/"),
		},
		Broadcast: BroadcastConfig{
			QueueSize:    getEnvAsInt("BROADCAST_QUEUE_SIZE", 16),
			WriteTimeout: time.Duration(getEnvAsInt("BROADCAST_WRITE_TIMEOUT", 5)) * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "barsync.changes"),
		},
		Sync: SyncConfig{
			MaxAttempts: getEnvAsInt("TRANSITION_MAX_ATTEMPTS", 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePebble:
		if c.Store.PebbleDir == "" {
			return fmt.Errorf("pebble directory is required when store backend is pebble")
		}
	case StorePostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory, postgres, or pebble)", c.Store.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Upload.Backend {
	case UploadLocal:
		if c.Upload.Dir == "" {
			return fmt.Errorf("upload directory is required when upload backend is local")
		}
	case UploadS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when upload backend is s3")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when upload backend is s3")
		}
	default:
		return fmt.Errorf("invalid upload backend: %s (must be local or s3)", c.Upload.Backend)
	}

	if c.Broadcast.QueueSize < 1 {
		return fmt.Errorf("broadcast queue size must be at least 1")
	}

	if c.Broadcast.WriteTimeout <= 0 {
		return fmt.Errorf("broadcast write timeout must be positive")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("transition max attempts must be at least 1")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList retrieves a comma-separated environment variable or returns a default value.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
