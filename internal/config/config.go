package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the storacct API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
	Upload   UploadConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries object store connection and bucket information.
// PersistentBucket holds quota-counted user objects; TemporalBucket holds
// ephemeral processing artifacts that are never accounted.
type MinIOConfig struct {
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	PersistentBucket string
	TemporalBucket   string
	UseSSL           bool
	Region           string
}

// AuthConfig groups token-verification settings. Tokens are issued by the
// platform gateway; this service only verifies them.
type AuthConfig struct {
	AccessTokenSecret string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// UploadConfig parameterizes presigned-upload issuance.
type UploadConfig struct {
	PresignTTL      time.Duration
	MaxDeclaredSize int64
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("STORACCT_API_HOST", "0.0.0.0"),
			Port:         getInt("STORACCT_API_PORT", 8080),
			ReadTimeout:  getDuration("STORACCT_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("STORACCT_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("STORACCT_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "storacct_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "storacct"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:         getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:      getString("MINIO_ROOT_USER", "storacct"),
			SecretAccessKey:  getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			PersistentBucket: getString("MINIO_PERSISTENT_BUCKET", "storacct"),
			TemporalBucket:   getString("MINIO_TEMPORAL_BUCKET", "storacct-tmp"),
			UseSSL:           getBool("MINIO_USE_SSL", false),
			Region:           getString("MINIO_REGION", ""),
		},
		Auth: AuthConfig{
			AccessTokenSecret: getString("STORACCT_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("STORACCT_METRICS_PATH", "/metrics"),
		},
		Upload: UploadConfig{
			PresignTTL:      getDuration("STORACCT_UPLOAD_PRESIGN_TTL", 15*time.Minute),
			MaxDeclaredSize: getInt64("STORACCT_UPLOAD_MAX_DECLARED_SIZE", 5*1024*1024*1024),
		},
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
