package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tradejournal/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Coaching      CoachingConfig
	State         StateConfig
	Broadcast     BroadcastConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"tradejournal"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	Migrate  bool   `envconfig:"POSTGRES_MIGRATE" default:"true"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig is optional: with no brokers, domain events are dropped
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type TelegramConfig struct {
	BotToken      string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	WebhookURL    string  `envconfig:"TELEGRAM_WEBHOOK_URL"` // empty = long polling
	WebhookSecret string  `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	AdminIDs      []int64 `envconfig:"TELEGRAM_ADMIN_IDS"`
	RateLimit     int     `envconfig:"TELEGRAM_RATE_LIMIT" default:"20"`
	RateBurst     int     `envconfig:"TELEGRAM_RATE_BURST" default:"30"`
	Debug         bool    `envconfig:"TELEGRAM_DEBUG" default:"false"`
}

type AIConfig struct {
	Provider    string        `envconfig:"AI_PROVIDER" default:"gemini"` // gemini | openai
	GeminiKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OpenAIKey   string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Timeout     time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
}

// HasCredentials reports whether any coaching backend can be built
func (c AIConfig) HasCredentials() bool {
	return c.GeminiKey != "" || c.OpenAIKey != ""
}

type CoachingConfig struct {
	MaxAttempts    int           `envconfig:"COACHING_MAX_ATTEMPTS" default:"3"`
	InitialBackoff time.Duration `envconfig:"COACHING_INITIAL_BACKOFF" default:"1s"`
	MaxBackoff     time.Duration `envconfig:"COACHING_MAX_BACKOFF" default:"8s"`
}

type StateConfig struct {
	Backend        string        `envconfig:"STATE_STORE_BACKEND" default:"postgres"` // postgres | redis
	MenuSessionTTL time.Duration `envconfig:"MENU_SESSION_TTL" default:"30m"`
}

type BroadcastConfig struct {
	Rate  float64 `envconfig:"BROADCAST_RATE" default:"10"` // messages per second
	Burst int     `envconfig:"BROADCAST_BURST" default:"1"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

type WorkerConfig struct {
	WeeklyReportEnabled  bool   `envconfig:"WEEKLY_REPORT_ENABLED" default:"true"`
	WeeklyReportSchedule string `envconfig:"WEEKLY_REPORT_SCHEDULE" default:"0 0 18 * * SUN"` // with seconds field
}

// IsAdmin reports whether telegramID is on the broadcast allow-list
func (c TelegramConfig) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// Load reads configuration from environment variables.
// A .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.State.Backend {
	case "postgres", "redis":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "STATE_STORE_BACKEND must be postgres or redis, got %q", c.State.Backend)
	}

	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "AI_PROVIDER must be gemini or openai, got %q", c.AI.Provider)
	}

	if c.Coaching.MaxAttempts < 1 {
		return errors.Wrap(errors.ErrInvalidInput, "COACHING_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}
