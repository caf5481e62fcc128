// Package main is the entry point of the Noteria API server.
//
// It loads configuration, opens the database pool, wires the reminder
// subsystem (email provider, renderer, notifier, scheduler and reconciler),
// mounts the HTTP handlers on the core chassis and runs until SIGINT or
// SIGTERM. Pending reminders are rebuilt from the database in the background
// at startup and are never persisted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"noteria/internal/api/handlers"
	"noteria/internal/auth"
	"noteria/internal/config"
	"noteria/internal/core"
	"noteria/internal/db"
	"noteria/internal/external"
	notifcore "noteria/internal/notifications/core"
	"noteria/internal/notifications/email"
	"noteria/internal/reminder"
	"noteria/internal/scheduler"
	"noteria/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// app holds the long-lived components started and stopped by run.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	pool        *pgxpool.Pool
	server      *core.Server
	reminders   *reminder.Service
	reconciler  *reminder.Reconciler
	maintenance *scheduler.Maintenance
}

func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("noteria API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.pool.Close()

	return a.serve(ctx)
}

// secretProvider returns the SSM provider outside local development; local
// runs resolve *_SSM_PARAM paths from the environment. It is created before
// configuration is loaded, so it reads the region directly.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return config.NewEnvVarProvider()
	}
	return config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	typedLogger := &slogAdapter{logger: logger}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Maintenance.Timezone)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading maintenance time zone: %w", err)
	}

	taskRepo := db.NewTaskRepository(pool)
	categoryRepo := db.NewCategoryRepository(pool)
	noteRepo := db.NewNoteRepository(pool)
	sessionRepo := db.NewSessionRepository(pool)
	userRepo := db.NewUserRepository(pool)

	// Reminder pipeline: provider -> renderer -> notifier -> scheduler.
	provider, err := external.NewEmailProvider(cfg.Email, awsCfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating email provider: %w", err)
	}
	renderer, err := email.NewRenderer(loc)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading email templates: %w", err)
	}
	notifier := email.NewReminderNotifier(email.ReminderNotifierConfig{
		Provider: provider,
		Renderer: renderer,
		Sender:   types.SenderIdentity{Name: cfg.Email.FromName, Address: cfg.Email.FromAddress},
		Logger:   typedLogger.With("component", "reminder_notifier"),
	})

	var metrics notifcore.ReminderMetrics = notifcore.NoopReminderMetrics{}
	if cfg.Observability.EnableMetrics {
		metrics = notifcore.NewCloudWatchReminderMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			cfg.Email.Provider,
			typedLogger.With("component", "reminder_metrics"),
		)
	}

	reminders := reminder.NewService(reminder.ServiceConfig{
		Store:       taskRepo,
		Notifier:    notifier,
		Metrics:     metrics,
		Logger:      typedLogger.With("component", "reminder"),
		HookTimeout: cfg.Reminder.HookTimeout,
	})
	reconciler := reminder.NewReconciler(reminders)

	maintenance := scheduler.NewMaintenance(loc, logger)
	jobs := []scheduler.Job{
		scheduler.ReminderSweepJob(cfg.Reminder.SweepSchedule, reconciler),
		scheduler.PurgeUnverifiedJob(cfg.Maintenance.PurgeUnverifiedSchedule, userRepo, types.RealClock{}, logger),
	}
	for _, job := range jobs {
		if err := maintenance.Add(job); err != nil {
			pool.Close()
			return nil, fmt.Errorf("registering job %s: %w", job.Name, err)
		}
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = auth.NewSessionAuthenticator(sessionRepo, types.RealClock{}, logger)
	srv.RateLimitStore = core.NewMemoryRateLimitStore(types.RealClock{})
	srv.HealthProbes = []core.HealthProbe{core.DatabaseProbe{DB: pool}}

	categoryHandler := handlers.NewCategoryHandler(categoryRepo, taskRepo, noteRepo, reminders, srv.Validator, logger)
	noteHandler := handlers.NewNoteHandler(noteRepo, categoryRepo, srv.Validator, logger)
	taskHandler := handlers.NewTaskHandler(taskRepo, categoryRepo, reminders, srv.Validator, logger)
	reminderHandler := handlers.NewReminderHandler(reminders)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		categoryHandler.RegisterRoutes,
		noteHandler.RegisterRoutes,
		taskHandler.RegisterRoutes,
		reminderHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	return &app{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		server:      srv,
		reminders:   reminders,
		reconciler:  reconciler,
		maintenance: maintenance,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// serve runs the HTTP server, the maintenance cron and the boot
// reconciliation until ctx is cancelled, then shuts them down in order:
// HTTP first so no hook arms a job after the scheduler stopped.
func (a *app) serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		bootCtx, cancel := context.WithTimeout(gctx, a.cfg.Reminder.BootTimeout)
		defer cancel()
		// Boot continues without restored reminders; the reconciler logs the
		// failure.
		_, _ = a.reconciler.LoadExisting(bootCtx)
		return nil
	})

	a.maintenance.Start()

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("initiating graceful shutdown")
		return a.shutdown(httpServer)
	})

	return g.Wait()
}

func (a *app) shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.maintenance.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("maintenance shutdown: %w", err))
	}
	if err := a.reminders.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reminder shutdown: %w", err))
	}
	if len(errs) == 0 {
		a.logger.Info("server exited cleanly")
	}
	return errors.Join(errs...)
}

// newLogger creates a JSON slog.Logger for the given level name.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// slogAdapter lets *slog.Logger satisfy types.Logger, whose With returns the
// interface type.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)
