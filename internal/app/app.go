// Package app wires the configuration, logger, pipeline, and HTTP server
// into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bullboard/internal/analytics"
	"bullboard/internal/calendar"
	"bullboard/internal/config"
	apierrors "bullboard/internal/errors"
	"bullboard/internal/fetch"
	"bullboard/internal/infrastructure"
	"bullboard/internal/pipeline"
	"bullboard/internal/scheduler"
	"bullboard/internal/services"
	transporthttp "bullboard/internal/transport/http"
	"bullboard/internal/validation"
)

// Version is stamped at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = ""
)

// Application owns every long-lived component of the server process.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *infrastructure.Metrics
	Analytics *services.AnalyticsService
	Scheduler *scheduler.Scheduler
	Server    *http.Server
}

// NewApplication builds the full dependency graph from the config file at
// configPath (empty means defaults plus environment).
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	metrics := infrastructure.NewMetrics()
	cal := calendar.NewNYSE()

	source := fetch.NewHTTPSource(cfg.Provider, logger)
	fetcher := fetch.NewFetcher(source, cal, cfg.Pipeline, logger, metrics)
	validator := validation.NewValidator(cal, cfg.Pipeline, logger, metrics)
	processor := analytics.NewProcessor(cfg.Pipeline.Windows)
	orchestrator := pipeline.NewOrchestrator(fetcher, validator, processor, cfg.Pipeline, logger, metrics)

	analyticsService := services.NewAnalyticsService(orchestrator, cfg.Refresh, logger)
	healthService := services.NewHealthService(Version, BuildTime, analyticsService, logger)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	router := transporthttp.NewRouter(transporthttp.RouterDeps{
		Analytics:    analyticsService,
		Health:       healthService,
		Metrics:      metrics,
		Logger:       logger,
		ErrorHandler: errorHandler,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Analytics: analyticsService,
		Scheduler: scheduler.New(cfg.Refresh, analyticsService, logger),
		Server:    server,
	}, nil
}

// Start launches the HTTP server and the refresh scheduler. Server failures
// cancel the context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("log_level", a.Config.Logging.Level))

	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the scheduler and the HTTP server.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Scheduler.Stop(shutdownCtx)

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
