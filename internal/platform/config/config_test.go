package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("RETREAT_ADDR", "")
	t.Setenv("ADMIN_TOKEN_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8*time.Hour, cfg.Admin.TokenTTL)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, "retreat.audit", cfg.Kafka.AuditTopic)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RETREAT_ADDR", ":9090")
	t.Setenv("PAYMENTS_FAKE", "true")
	t.Setenv("ADMIN_TOKEN_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,a:9092")
	t.Setenv("WAIVERS_ENABLED", "false")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Stripe.Fake)
	assert.Equal(t, 30*time.Minute, cfg.Admin.TokenTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.WaiversEnabled)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server: Server{Addr: ":8080", Environment: "development"},
			Stripe: StripeConfig{Fake: true},
			Admin:  AdminConfig{JWTSecret: devJWTSecret, TokenTTL: time.Hour},
			Kafka:  KafkaConfig{BatchSize: 10},
		}
	}

	t.Run("development with fake payments is valid", func(t *testing.T) {
		require.NoError(t, base().Validate())
	})

	t.Run("stripe key required without fake payments", func(t *testing.T) {
		cfg := base()
		cfg.Stripe.Fake = false
		require.ErrorContains(t, cfg.Validate(), "STRIPE_SECRET_KEY")
	})

	t.Run("bootstrap credentials come in pairs", func(t *testing.T) {
		cfg := base()
		cfg.Admin.BootstrapEmail = "staff@example.org"
		require.ErrorContains(t, cfg.Validate(), "ADMIN_BOOTSTRAP_PASSWORD")
	})

	t.Run("production rejects dev defaults", func(t *testing.T) {
		cfg := base()
		cfg.Server.Environment = "production"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_JWT_SECRET")
		assert.Contains(t, err.Error(), "PAYMENTS_FAKE")
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})
}
