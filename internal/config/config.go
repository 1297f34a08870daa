package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the service.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Settlement  SettlementConfig
	Reminder    ReminderConfig
	Rewards     RewardsConfig
	Outbox      OutboxConfig
	Kafka       KafkaConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// SettlementConfig tunes the coordinator.
type SettlementConfig struct {
	StoreRetries int
	RetryBackoff time.Duration
	LockTTL      time.Duration
}

// ReminderConfig bounds the sweep window and schedule. The window values are
// an implementation parameter, not a contract; the defaults tolerate an hour
// of scheduler downtime without resurrecting stale reminders.
type ReminderConfig struct {
	Interval    time.Duration
	Grace       time.Duration
	Lookahead   time.Duration
	Parallelism int
}

// RewardsConfig describes the external reward ledger.
type RewardsConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
}

type OutboxConfig struct {
	Path           string
	DrainInterval  time.Duration
	BatchSize      int
	MaxRetries     int
	RetentionHours int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "settlement"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "settlement_db"),
			User:            getString("DB_USER", "settlement_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "settlement"),
		},
		Settlement: SettlementConfig{
			StoreRetries: getInt("SETTLE_STORE_RETRIES", 3),
			RetryBackoff: getDuration("SETTLE_RETRY_BACKOFF", 100*time.Millisecond),
			LockTTL:      getDuration("SETTLE_LOCK_TTL", 30*time.Second),
		},
		Reminder: ReminderConfig{
			Interval:    getDuration("REMINDER_INTERVAL", time.Minute),
			Grace:       getDuration("REMINDER_GRACE", 60*time.Minute),
			Lookahead:   getDuration("REMINDER_LOOKAHEAD", 15*time.Minute),
			Parallelism: getInt("REMINDER_PARALLELISM", 8),
		},
		Rewards: RewardsConfig{
			BaseURL:        getString("REWARDS_BASE_URL", "http://localhost:4000"),
			RequestTimeout: getDuration("REWARDS_TIMEOUT", 5*time.Second),
			MaxAttempts:    getInt("REWARDS_MAX_ATTEMPTS", 3),
			BackoffBase:    getDuration("REWARDS_BACKOFF_BASE", 200*time.Millisecond),
		},
		Outbox: OutboxConfig{
			Path:           getString("OUTBOX_PATH", "./data/outbox.db"),
			DrainInterval:  getDuration("OUTBOX_DRAIN_INTERVAL", 30*time.Second),
			BatchSize:      getInt("OUTBOX_BATCH_SIZE", 50),
			MaxRetries:     getInt("OUTBOX_MAX_RETRIES", 3),
			RetentionHours: getInt("OUTBOX_RETENTION_HOURS", 24),
		},
		Kafka: KafkaConfig{
			Brokers: getStrings("KAFKA_BROKERS", nil),
			Topic:   getString("KAFKA_NOTIFICATIONS_TOPIC", "task-reminders"),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// DSN returns the postgres connection string, preferring an explicit URL.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getStrings(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
