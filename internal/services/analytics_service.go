// Package services holds the application service layer between HTTP transport
// and the pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bullboard/internal/config"
	"bullboard/internal/fetch"
	"bullboard/internal/pipeline"
	"bullboard/pkg/contracts/domain"
)

// ErrNoRun is returned when results are requested before any pipeline run has
// completed.
var ErrNoRun = errors.New("no pipeline run has completed yet")

// ErrSymbolNotInRun is returned when a symbol was not part of the latest run.
var ErrSymbolNotInRun = errors.New("symbol not present in latest run")

// PipelineRunner executes a pipeline run over a symbol set.
type PipelineRunner interface {
	Run(ctx context.Context, symbols []domain.Symbol, start, end time.Time) (domain.PipelineResult, error)
}

var _ PipelineRunner = (*pipeline.Orchestrator)(nil)

// RunRequest describes one requested pipeline run.
type RunRequest struct {
	Symbols []string
	Start   time.Time
	End     time.Time
}

// AnalyticsService runs the pipeline and retains the latest result for the
// dashboard endpoints. Only the most recent run is kept; history is the
// exporter's concern.
type AnalyticsService struct {
	runner PipelineRunner
	cfg    config.RefreshConfig
	logger *slog.Logger

	mu     sync.RWMutex
	latest *domain.PipelineResult
}

// NewAnalyticsService creates the analytics service.
func NewAnalyticsService(runner PipelineRunner, cfg config.RefreshConfig, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		runner: runner,
		cfg:    cfg,
		logger: logger.With(slog.String("service", "analytics")),
	}
}

// Run executes the pipeline for the request and stores the result as the
// latest. Each missing date bound defaults independently: end to today, start
// to end minus the configured refresh range. A zero time never reaches the
// pipeline.
func (s *AnalyticsService) Run(ctx context.Context, req RunRequest) (domain.PipelineResult, error) {
	symbols := make([]domain.Symbol, 0, len(req.Symbols))
	for _, raw := range req.Symbols {
		symbols = append(symbols, domain.NewSymbol(raw))
	}

	start, end := req.Start, req.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -s.cfg.RangeDays)
	}

	result, err := s.runner.Run(ctx, symbols, start, end)
	if err != nil {
		return domain.PipelineResult{}, err
	}

	s.mu.Lock()
	s.latest = &result
	s.mu.Unlock()
	return result, nil
}

// RunScheduled executes the configured refresh universe. Used by the cron
// scheduler; failures are logged, never fatal.
func (s *AnalyticsService) RunScheduled(ctx context.Context) {
	result, err := s.Run(ctx, RunRequest{Symbols: s.cfg.Symbols})
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled refresh failed", slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "scheduled refresh complete",
		slog.String("run_id", result.RunID),
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", result.Failed()))
}

// Latest returns the most recent pipeline result.
func (s *AnalyticsService) Latest() (domain.PipelineResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.PipelineResult{}, ErrNoRun
	}
	return *s.latest, nil
}

// SymbolOutcome returns one symbol's outcome from the latest run.
func (s *AnalyticsService) SymbolOutcome(raw string) (domain.SymbolOutcome, error) {
	sym := domain.NewSymbol(raw)
	if sym == "" {
		return domain.SymbolOutcome{}, &fetch.FetchError{
			Symbol: sym, Sentinel: fetch.ErrInput, Err: errors.New("empty symbol"),
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.SymbolOutcome{}, ErrNoRun
	}
	outcome, ok := s.latest.PerSymbol[sym]
	if !ok {
		return domain.SymbolOutcome{}, fmt.Errorf("%w: %s", ErrSymbolNotInRun, sym)
	}
	return outcome, nil
}

// Summaries returns the per-symbol summaries of the latest run, succeeded
// symbols only.
func (s *AnalyticsService) Summaries() ([]domain.SymbolSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoRun
	}
	summaries := make([]domain.SymbolSummary, 0, len(s.latest.PerSymbol))
	for _, outcome := range s.latest.PerSymbol {
		if outcome.OK() {
			summaries = append(summaries, *outcome.Summary)
		}
	}
	return summaries, nil
}
