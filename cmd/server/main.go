package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"retreat/internal/admin"
	"retreat/internal/app"
	"retreat/internal/platform/config"
	"retreat/internal/platform/httpserver"
	"retreat/internal/platform/logger"
	"retreat/internal/platform/metrics"
	registrationhandler "retreat/internal/registration/handler"
	httptransport "retreat/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	applied, err := a.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		log.Info("migrations applied", "versions", applied)
	}
	if err := a.Bootstrap(ctx); err != nil {
		return err
	}

	health := map[string]httptransport.HealthCheck{}
	if a.DB != nil {
		health["postgres"] = a.DB.PingContext
	}
	if a.Redis != nil {
		health["redis"] = a.Redis.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Registrations:  registrationhandler.New(a.Registrations, log),
		Admin:          admin.NewHandler(a.Admin, log),
		AdminValidator: a.Admin,
		Webhook:        a.WebhookHandler(),
		Metrics:        metrics.New(),
		Health:         health,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         log,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	worker, closeWorker, err := a.AuditWorker()
	if err != nil {
		return err
	}
	defer closeWorker()

	log.Info("starting retreat registration",
		"addr", cfg.Server.Addr,
		"event", a.Event.Slug,
		"postgres", a.DB != nil,
		"redis", a.Redis != nil,
		"audit_relay", worker != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(gctx, srv, log) })
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}
	return g.Wait()
}
