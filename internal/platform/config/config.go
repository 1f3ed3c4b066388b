package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "retreat/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	// RequestTimeout bounds every handler; webhooks and exports included.
	RequestTimeout time.Duration
}

// DatabaseConfig selects Postgres when URL is set, in-memory stores otherwise.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig is used by the webhook event log. Empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EventTTL     time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Fake swaps the Stripe client for an in-process gateway.
	Fake bool
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
	ReplyTo      string
}

type AdminConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	BootstrapEmail    string
	BootstrapPassword string
}

type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
	BatchSize    int
}

// Config is the full process configuration.
type Config struct {
	Server         Server
	Database       DatabaseConfig
	Redis          RedisConfig
	Stripe         StripeConfig
	Email          EmailConfig
	Admin          AdminConfig
	Kafka          KafkaConfig
	EventFile      string
	WaiversEnabled bool
}

const devJWTSecret = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           getEnv("RETREAT_ADDR", ":8080"),
			Environment:    getEnv("APP_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			EventTTL:     getDuration("WEBHOOK_EVENT_TTL", 72*time.Hour),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Fake:          getBool("PAYMENTS_FAKE", false),
		},
		Email: EmailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("EMAIL_FROM", "Retreat Registration <registration@example.org>"),
			ReplyTo:      os.Getenv("EMAIL_REPLY_TO"),
		},
		Admin: AdminConfig{
			JWTSecret:         getEnv("ADMIN_JWT_SECRET", devJWTSecret),
			TokenTTL:          getDuration("ADMIN_TOKEN_TTL", 8*time.Hour),
			BootstrapEmail:    os.Getenv("ADMIN_BOOTSTRAP_EMAIL"),
			BootstrapPassword: os.Getenv("ADMIN_BOOTSTRAP_PASSWORD"),
		},
		Kafka: KafkaConfig{
			Brokers:      pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   getEnv("AUDIT_TOPIC", "retreat.audit"),
			PollInterval: getDuration("AUDIT_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getInt("AUDIT_BATCH_SIZE", 100),
		},
		EventFile:      os.Getenv("EVENT_CONFIG"),
		WaiversEnabled: getBool("WAIVERS_ENABLED", true),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate rejects configurations that would run production with dev defaults.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("RETREAT_ADDR is required"))
	}
	if c.Admin.TokenTTL <= 0 {
		errs = append(errs, errors.New("ADMIN_TOKEN_TTL must be positive"))
	}
	if c.Kafka.BatchSize <= 0 {
		errs = append(errs, errors.New("AUDIT_BATCH_SIZE must be positive"))
	}
	if (c.Admin.BootstrapEmail == "") != (c.Admin.BootstrapPassword == "") {
		errs = append(errs, errors.New("ADMIN_BOOTSTRAP_EMAIL and ADMIN_BOOTSTRAP_PASSWORD must be set together"))
	}
	if !c.Stripe.Fake && c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required unless PAYMENTS_FAKE=true"))
	}
	if c.IsProduction() {
		if c.Admin.JWTSecret == devJWTSecret || len(c.Admin.JWTSecret) < 32 {
			errs = append(errs, errors.New("ADMIN_JWT_SECRET must be set to at least 32 characters in production"))
		}
		if c.Stripe.Fake {
			errs = append(errs, errors.New("PAYMENTS_FAKE cannot be enabled in production"))
		}
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required in production"))
		}
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// String renders the non-secret parts of the config for startup logs.
func (c Config) String() string {
	return fmt.Sprintf("addr=%s env=%s postgres=%t redis=%t kafka=%t fake_payments=%t waivers=%t",
		c.Server.Addr, c.Server.Environment, c.Database.URL != "", c.Redis.URL != "",
		len(c.Kafka.Brokers) > 0, c.Stripe.Fake, c.WaiversEnabled)
}
