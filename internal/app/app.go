// Package app builds the process graph shared by the server and retreatctl:
// configuration, storage, payment gateway, mailer, audit and the services.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"

	"retreat/internal/admin"
	"retreat/internal/audit"
	"retreat/internal/event"
	"retreat/internal/notify"
	"retreat/internal/payment"
	"retreat/internal/platform/config"
	"retreat/internal/platform/postgres"
	"retreat/internal/platform/redis"
	"retreat/internal/registration/metrics"
	"retreat/internal/registration/service"
	"retreat/internal/registration/store/memory"
	pgstore "retreat/internal/registration/store/postgres"
	"retreat/internal/waiver"
	"retreat/pkg/platform/circuit"
)

const (
	tokenIssuer   = "retreat"
	tokenAudience = "retreat-admin"
)

// Registration metrics live in the default registry, which accepts each
// collector once per process.
var registrationMetrics = sync.OnceValue(metrics.New)

// App holds the wired services. Close releases connections.
type App struct {
	Config        config.Config
	Logger        *slog.Logger
	Event         event.Event
	DB            *sql.DB
	Redis         *redis.Client
	Registrations *service.Service
	Admin         *admin.Service
	Webhook       *payment.Webhook
	Outbox        *audit.OutboxStore
}

// New connects to the configured backends and builds the services. Missing
// DATABASE_URL or REDIS_URL fall back to in-memory implementations.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	ev, err := event.LoadFile(cfg.EventFile)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Event: *ev}

	if a.DB, err = postgres.Open(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if a.Redis, err = redis.New(ctx, cfg.Redis); err != nil {
		a.Close()
		return nil, err
	}

	publisher := a.auditPublisher()
	if err := a.buildRegistrations(publisher); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildAdmin(publisher); err != nil {
		a.Close()
		return nil, err
	}
	a.buildWebhook()
	return a, nil
}

// Migrate applies pending schema migrations. It is a no-op without Postgres.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, nil
	}
	return postgres.Migrate(ctx, a.DB)
}

// Bootstrap creates the configured staff account when it does not exist.
func (a *App) Bootstrap(ctx context.Context) error {
	if a.Config.Admin.BootstrapEmail == "" {
		return nil
	}
	created, err := a.Admin.EnsureUser(ctx, a.Config.Admin.BootstrapEmail, a.Config.Admin.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin user: %w", err)
	}
	if created {
		a.Logger.InfoContext(ctx, "bootstrap admin user created", "email", a.Config.Admin.BootstrapEmail)
	}
	return nil
}

// AuditWorker returns the outbox relay, or nil when Postgres or Kafka is not
// configured.
func (a *App) AuditWorker() (*audit.Worker, func(), error) {
	if a.Outbox == nil || len(a.Config.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := audit.NewKafkaProducer(a.Config.Kafka.Brokers, a.Config.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	worker := audit.NewWorker(a.Outbox, producer, a.Config.Kafka.PollInterval, a.Config.Kafka.BatchSize, a.Logger)
	return worker, producer.Close, nil
}

func (a *App) Close() {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("closing connections", "error", err)
	}
}

func (a *App) auditPublisher() *audit.Publisher {
	if a.DB != nil {
		a.Outbox = audit.NewOutboxStore(a.DB)
		return audit.NewPublisher(a.Outbox, audit.WithLogger(a.Logger))
	}
	return audit.NewPublisher(audit.NewLogSink(a.Logger), audit.WithLogger(a.Logger))
}

func (a *App) buildRegistrations(publisher *audit.Publisher) error {
	var (
		stores service.Stores
		tx     service.StoreTx
		wstore service.WaiverStore
	)
	if a.DB != nil {
		st := pgstore.New(a.DB)
		stores = service.Stores{Guardians: st.Guardians(), Participants: st.Participants(), Registrations: st.Registrations()}
		tx = service.NewStoreTx(st, stores)
		wstore = waiver.NewPostgresStore(a.DB)
	} else {
		a.Logger.Warn("DATABASE_URL not set, registrations are kept in memory")
		st := memory.New()
		stores = service.Stores{Guardians: st.Guardians(), Participants: st.Participants(), Registrations: st.Registrations()}
		tx = service.NewStoreTx(st, stores)
		wstore = waiver.NewMemoryStore()
	}

	templates, err := notify.NewTemplates()
	if err != nil {
		return err
	}
	opts := []service.Option{
		service.WithLogger(a.Logger),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(registrationMetrics()),
		service.WithMailer(a.mailer(), templates),
		service.WithTracerProvider(otel.GetTracerProvider()),
	}
	if a.Config.WaiversEnabled {
		opts = append(opts, service.WithWaiverStore(wstore))
	}

	a.Registrations, err = service.New(a.Event, stores, tx, a.gateway(), opts...)
	return err
}

func (a *App) gateway() payment.Gateway {
	if a.Config.Stripe.Fake {
		a.Logger.Warn("using the in-process payment gateway")
		return payment.NewFakeGateway(true)
	}
	return payment.NewStripeGateway(a.Config.Stripe.SecretKey)
}

func (a *App) mailer() notify.Mailer {
	if a.Config.Email.ResendAPIKey == "" {
		return notify.NewLogMailer(a.Logger)
	}
	breaker := circuit.New("resend")
	return notify.NewBreakerMailer(
		notify.NewResendMailer(a.Config.Email.ResendAPIKey, a.Config.Email.From, a.Config.Email.ReplyTo),
		breaker,
		a.Logger,
	)
}

func (a *App) buildAdmin(publisher *audit.Publisher) error {
	var users admin.UserStore = admin.NewMemoryUserStore()
	if a.DB != nil {
		users = admin.NewPostgresUserStore(a.DB)
	}
	opts := []admin.Option{admin.WithLogger(a.Logger), admin.WithAuditPublisher(publisher)}
	if a.Redis != nil {
		opts = append(opts, admin.WithLimiter(admin.NewRedisLimiter(a.Redis, admin.DefaultMaxAttempts, admin.DefaultLockout)))
	}
	tokens := admin.NewTokenIssuer(a.Config.Admin.JWTSecret, tokenIssuer, tokenAudience, a.Config.Admin.TokenTTL)

	var err error
	a.Admin, err = admin.New(users, tokens, opts...)
	return err
}

func (a *App) buildWebhook() {
	var log payment.EventLog = payment.NewMemoryEventLog(a.Config.Redis.EventTTL)
	if a.Redis != nil {
		log = payment.NewRedisEventLog(a.Redis, a.Config.Redis.EventTTL)
	}
	a.Webhook = payment.NewWebhook(a.Config.Stripe.WebhookSecret, log, a.Logger)
	for _, t := range []string{payment.EventChargeRefunded, payment.EventPaymentIntentFailed, payment.EventPaymentIntentSucceed} {
		a.Webhook.Handle(t, a.Registrations.HandlePaymentEvent)
	}
}

// WebhookHandler is nil when no signing secret is configured.
func (a *App) WebhookHandler() http.Handler {
	if a.Config.Stripe.WebhookSecret == "" {
		return nil
	}
	return a.Webhook
}
