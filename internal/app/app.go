// Package app wires the intake service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mail-expense-intake/internal/archive"
	"mail-expense-intake/internal/config"
	"mail-expense-intake/internal/db"
	"mail-expense-intake/internal/extraction"
	"mail-expense-intake/internal/extraction/httpgw"
	"mail-expense-intake/internal/extraction/vertex"
	"mail-expense-intake/internal/handler"
	"mail-expense-intake/internal/ledger"
	"mail-expense-intake/internal/mailbox"
	"mail-expense-intake/internal/metrics"
	"mail-expense-intake/internal/notify"
	"mail-expense-intake/internal/pipeline"
	"mail-expense-intake/internal/repository"
	"mail-expense-intake/internal/review"
	"mail-expense-intake/internal/router"
	"mail-expense-intake/internal/scheduler"
)

// App holds the wired components of the service
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Repo      *repository.Repository
	Metrics   *metrics.Metrics
	Pipeline  *pipeline.Pipeline
	Review    *review.Service
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// SetupLogging configures logrus the same way for every entry point
func SetupLogging(cfg config.LogConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// New builds every component from cfg. Metrics are registered on reg.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	a, err := openStore(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}

	gateway, err := a.newGateway(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	notifier, err := a.newNotifier(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Pipeline = pipeline.New(mailbox.New(cfg.Mailbox), gateway, a.Repo, notifier, a.Metrics, pipeline.Options{
		Window:            time.Duration(cfg.Mailbox.WindowDays) * 24 * time.Hour,
		StaleAfter:        cfg.Pipeline.StaleAfter,
		JobThreshold:      cfg.Resolver.JobThreshold,
		EmployeeThreshold: cfg.Resolver.EmployeeThreshold,
	})
	a.Scheduler = scheduler.New(&cfg.Scheduler, a.Pipeline)

	return a, nil
}

// NewStore builds only the database, the job directory and the review
// service. Mailbox, extraction and notification settings are not needed;
// Pipeline and Scheduler stay nil.
func NewStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return openStore(ctx, cfg, reg)
}

func openStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		Config:  cfg,
		DB:      dbConn,
		Repo:    repository.New(dbConn),
		Metrics: metrics.NewMetrics(reg),
	}
	a.closers = append(a.closers, func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	archiver, err := a.newArchiver(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Review = review.NewService(a.Repo, ledger.NewGormCommitter(), archiver, a.Metrics)

	return a, nil
}

func (a *App) newGateway(ctx context.Context) (extraction.Gateway, error) {
	cfg := a.Config.Extraction

	var gw extraction.Gateway
	switch cfg.Provider {
	case "vertex":
		client, err := vertex.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		gw = client
		logrus.Infof("Using Vertex AI model %s for extraction", cfg.Model)
	case "http":
		gw = httpgw.New(cfg.Endpoint, cfg.APIKey)
		logrus.Infof("Using HTTP extraction endpoint %s", cfg.Endpoint)
	default:
		return nil, fmt.Errorf("unsupported extraction provider %q", cfg.Provider)
	}

	return extraction.NewLimited(gw, cfg.RatePerMinute, cfg.Timeout), nil
}

func (a *App) newArchiver(ctx context.Context) (archive.Archiver, error) {
	if !a.Config.Archive.Enabled {
		return archive.Noop{}, nil
	}
	gcs, err := archive.NewGCS(ctx, a.Config.Archive.Bucket)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, gcs.Close)
	logrus.Infof("Archiving approved documents to gs://%s", a.Config.Archive.Bucket)
	return gcs, nil
}

func (a *App) newNotifier(ctx context.Context) (notify.Notifier, error) {
	if !a.Config.Notify.Enabled {
		return notify.Noop{}, nil
	}
	gmail, err := notify.NewGmail(ctx, a.Config.Notify)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail notifier: %w", err)
	}
	return gmail, nil
}

// Close releases every component in reverse creation order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Serve runs the HTTP server and, when enabled, the scheduler until ctx is
// done, then shuts both down gracefully.
func (a *App) Serve(ctx context.Context) error {
	h := handler.NewHandlers(a.Repo, a.Review, a.Scheduler)
	srv := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      router.SetupRouter(h),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown closes the listeners at once and then waits for handlers,
	// which include a run-once request until the scheduler cancels its run.
	httpDone := make(chan error, 1)
	go func() { httpDone <- srv.Shutdown(shutdownCtx) }()

	if err := a.Scheduler.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	if err := <-httpDone; err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return runErr
}
