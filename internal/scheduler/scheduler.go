// Package scheduler triggers pipeline refreshes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"bullboard/internal/config"
	"bullboard/internal/infrastructure"
)

// Refresher re-runs the pipeline over the configured symbol universe.
type Refresher interface {
	RunScheduled(ctx context.Context)
}

// Scheduler owns the cron runner. Specs use six fields with seconds, matching
// the config default that fires on weekday evenings after the US close.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.RefreshConfig
	service Refresher
	logger  *slog.Logger
}

// New creates a Scheduler. It does nothing until Start.
func New(cfg config.RefreshConfig, service Refresher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		cfg:     cfg,
		service: service,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the refresh job and begins the cron loop. A disabled
// refresh config is a no-op, not an error.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduled refresh disabled")
		return nil
	}
	if len(s.cfg.Symbols) == 0 {
		return fmt.Errorf("refresh enabled but no symbols configured")
	}

	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		// Each firing gets its own trace ID so log records correlate per run.
		jobCtx := infrastructure.EnsureTraceID(ctx)
		s.logger.InfoContext(jobCtx, "scheduled refresh starting",
			slog.Int("symbols", len(s.cfg.Symbols)))
		s.service.RunScheduled(jobCtx)
	})
	if err != nil {
		return fmt.Errorf("register refresh job with spec %q: %w", s.cfg.CronSpec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("spec", s.cfg.CronSpec),
		slog.Int("symbols", len(s.cfg.Symbols)))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish, bounded by
// the context.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with job still running")
	}
}
