// Command server runs the meal-choice import and notification HTTP service.
//
// Startup order:
//  1. load .env (best effort) and environment configuration
//  2. configure zerolog
//  3. open SQLite, run migrations, optionally attach GORM tracing
//  4. initialize OpenTelemetry (no-op unless enabled)
//  5. start the notification worker pool
//  6. serve HTTP until SIGINT/SIGTERM, then drain and shut down
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/nikola-86/jelovnik/internal/config"
	httpapi "github.com/nikola-86/jelovnik/internal/http"
	"github.com/nikola-86/jelovnik/internal/notify"
	"github.com/nikola-86/jelovnik/internal/observability"
	"github.com/nikola-86/jelovnik/internal/queue"
	"github.com/nikola-86/jelovnik/internal/repo"
	"github.com/nikola-86/jelovnik/internal/services"
	"github.com/nikola-86/jelovnik/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// setupDatabase opens the SQLite store, runs schema migrations, and attaches
// the GORM tracing plugin when tracing is enabled. A server must never come up
// against an unmigrated file.
func setupDatabase(path string, traced bool) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	if traced {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting jelovnik")

	gin.SetMode(cfg.GinMode)

	db, err := setupDatabase(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OpenTelemetry")
	}

	notifier := notify.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.DefaultChannel, cfg.Slack.Timeout)
	if cfg.Slack.WebhookURL == "" {
		log.Warn().Msg("SLACK_WEBHOOK_URL is empty; notification jobs will be recorded as failed")
	}

	// The queue's handler is the notification service, and the service
	// re-schedules through the queue; break the cycle with a late-bound
	// closure assigned before Start.
	var notifSvc *services.NotificationService
	q := queue.New(cfg.Queue.Buffer, func(ctx context.Context, job queue.Job) error {
		return notifSvc.Process(ctx, job)
	})
	notifSvc = services.NewNotificationService(db, notifier, q)

	// Workers get their own lifetime: HTTP shutdown happens first so no new
	// jobs arrive while the queue drains.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	q.Start(workerCtx, cfg.Queue.Workers)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, q, notifier, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}

	// Drain queued notification jobs before tearing the workers down.
	q.Stop()
	cancelWorkers()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown error")
	}
	log.Info().Msg("server stopped")
}
