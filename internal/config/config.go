package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Stream    StreamConfig
	Directory DirectoryConfig
	Push      PushConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// StreamConfig names the event streams and consumer groups and bounds the
// per-message retry policy.
type StreamConfig struct {
	LogStream      string
	LogGroup       string
	TicketStream   string
	TicketGroup    string
	ConsumerName   string
	MaxAttempts    int
	RetryBackoffMS int
	ReadBlockMS    int
	ReadBatchSize  int
}

// DirectoryConfig points at the identity service used for recipient lookups.
type DirectoryConfig struct {
	BaseURL        string
	TimeoutSeconds int
	FallbackEmail  string
}

// PushConfig controls real-time channel naming.
type PushConfig struct {
	ChannelPrefix string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "notification-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8081"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Stream: StreamConfig{
			LogStream:      getEnv("STREAM_LOG_EVENTS", "events:logs"),
			LogGroup:       getEnv("STREAM_LOG_GROUP", "notification-service:logs"),
			TicketStream:   getEnv("STREAM_TICKET_EVENTS", "events:tickets"),
			TicketGroup:    getEnv("STREAM_TICKET_GROUP", "notification-service:tickets"),
			ConsumerName:   os.Getenv("STREAM_CONSUMER_NAME"),
			MaxAttempts:    getEnvAsInt("STREAM_MAX_ATTEMPTS", 3),
			RetryBackoffMS: getEnvAsInt("STREAM_RETRY_BACKOFF_MS", 1000),
			ReadBlockMS:    getEnvAsInt("STREAM_READ_BLOCK_MS", 5000),
			ReadBatchSize:  getEnvAsInt("STREAM_READ_BATCH_SIZE", 16),
		},
		Directory: DirectoryConfig{
			BaseURL:        getEnv("DIRECTORY_BASE_URL", "http://127.0.0.1:8080"),
			TimeoutSeconds: getEnvAsInt("DIRECTORY_TIMEOUT_SECONDS", 5),
			FallbackEmail:  getEnv("DIRECTORY_FALLBACK_EMAIL", "notifications-fallback@local"),
		},
		Push: PushConfig{
			ChannelPrefix: getEnv("PUSH_CHANNEL_PREFIX", "notifications"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RetryBackoff returns the fixed delay between consumer retry attempts.
func (s StreamConfig) RetryBackoff() time.Duration {
	if s.RetryBackoffMS <= 0 {
		return 0
	}
	return time.Duration(s.RetryBackoffMS) * time.Millisecond
}

// ReadBlock returns how long a consumer read blocks waiting for new messages.
func (s StreamConfig) ReadBlock() time.Duration {
	if s.ReadBlockMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReadBlockMS) * time.Millisecond
}

// Timeout bounds a single directory lookup.
func (d DirectoryConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
