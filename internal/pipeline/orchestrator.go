// Package pipeline coordinates the fetch, validate, and compute stages across
// a set of symbols. Symbols are fully isolated: one symbol's failure is
// recorded in the run result and never aborts the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bullboard/internal/analytics"
	"bullboard/internal/config"
	"bullboard/internal/fetch"
	"bullboard/internal/infrastructure"
	"bullboard/internal/validation"
	"bullboard/pkg/contracts/domain"
)

// Pipeline stage names used in failure records and metrics labels.
const (
	StageFetch    = "fetch"
	StageValidate = "validate"
	StageCompute  = "compute"
)

// ErrNoSymbols rejects a run over an empty symbol set before any work starts.
var ErrNoSymbols = errors.New("no symbols to process")

// HistoryFetcher retrieves raw price history for one symbol.
type HistoryFetcher interface {
	Fetch(ctx context.Context, symbol domain.Symbol, start, end time.Time) (domain.RawSeries, error)
}

// SeriesValidator runs data quality checks against a raw series.
type SeriesValidator interface {
	Validate(raw domain.RawSeries, now time.Time) domain.ValidationReport
}

var (
	_ HistoryFetcher  = (*fetch.Fetcher)(nil)
	_ SeriesValidator = (*validation.Validator)(nil)
)

// Orchestrator runs the full pipeline over many symbols concurrently, bounded
// by MaxFetchConcurrency. Outcomes flow back over a channel; no stage mutates
// shared state.
type Orchestrator struct {
	fetcher   HistoryFetcher
	validator SeriesValidator
	processor *analytics.Processor
	cfg       config.PipelineConfig
	logger    *slog.Logger
	metrics   *infrastructure.Metrics
	now       func() time.Time
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(fetcher HistoryFetcher, validator SeriesValidator, processor *analytics.Processor, cfg config.PipelineConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		validator: validator,
		processor: processor,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "orchestrator")),
		metrics:   metrics,
		now:       time.Now,
	}
}

type symbolResult struct {
	symbol  domain.Symbol
	outcome domain.SymbolOutcome
}

// Run executes fetch, validate, and compute for every symbol and aggregates
// the per-symbol outcomes. Duplicate symbols are processed once. The returned
// error covers run-level problems only (empty input, cancellation before any
// work); per-symbol failures live inside the result.
func (o *Orchestrator) Run(ctx context.Context, symbols []domain.Symbol, start, end time.Time) (domain.PipelineResult, error) {
	unique := dedupe(symbols)
	if len(unique) == 0 {
		return domain.PipelineResult{}, ErrNoSymbols
	}
	if err := ctx.Err(); err != nil {
		return domain.PipelineResult{}, err
	}

	runID := uuid.New().String()
	ctx = infrastructure.WithTraceID(ctx, runID)
	logger := o.logger.With(slog.String("run_id", runID))
	started := o.now()

	logger.InfoContext(ctx, "pipeline run starting",
		slog.Int("symbols", len(unique)),
		slog.String("start", start.Format("2006-01-02")),
		slog.String("end", end.Format("2006-01-02")))

	results := make(chan symbolResult, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxFetchConcurrency)
	for _, symbol := range unique {
		g.Go(func() error {
			results <- symbolResult{symbol: symbol, outcome: o.processSymbol(gctx, logger, symbol, start, end)}
			return nil
		})
	}

	// Workers never return errors, so Wait only synchronizes.
	_ = g.Wait()
	close(results)

	result := domain.PipelineResult{
		RunID:     runID,
		Start:     start,
		End:       end,
		PerSymbol: make(map[domain.Symbol]domain.SymbolOutcome, len(unique)),
	}
	for r := range results {
		result.PerSymbol[r.symbol] = r.outcome
	}
	result.Duration = o.now().Sub(started)

	o.observeRun(result)
	logger.InfoContext(ctx, "pipeline run finished",
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", result.Failed()),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// processSymbol runs the three stages for one symbol under its own timeout.
// Every failure path produces a stage-labelled outcome instead of an error.
func (o *Orchestrator) processSymbol(ctx context.Context, logger *slog.Logger, symbol domain.Symbol, start, end time.Time) domain.SymbolOutcome {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.PerSymbolTimeout)
	defer cancel()

	raw, err := o.fetcher.Fetch(ctx, symbol, start, end)
	if err != nil {
		logger.WarnContext(ctx, "symbol failed",
			slog.String("symbol", symbol.String()),
			slog.String("stage", StageFetch),
			slog.String("error", err.Error()))
		return failure(symbol, StageFetch, err.Error(), nil)
	}

	report := o.validator.Validate(raw, o.now().UTC())
	if !report.Accepted {
		reasons := report.FatalIssues()
		logger.WarnContext(ctx, "symbol failed",
			slog.String("symbol", symbol.String()),
			slog.String("stage", StageValidate),
			slog.Int("fatal_issues", len(reasons)))
		return failure(symbol, StageValidate, summarizeIssues(reasons), report.Issues)
	}

	frame := o.processor.Compute(symbol, report.CleanedSeries)
	if frame.Len() == 0 {
		return failure(symbol, StageCompute,
			fmt.Sprintf("series of %d bars is too short for analytics", len(report.CleanedSeries)), report.Issues)
	}
	summary := analytics.Summarize(report.CleanedSeries, frame)

	logger.DebugContext(ctx, "symbol complete",
		slog.String("symbol", symbol.String()),
		slog.Int("rows", frame.Len()),
		slog.Int("warnings", len(report.Warnings())))
	return domain.SymbolOutcome{Frame: &frame, Summary: &summary}
}

func failure(symbol domain.Symbol, stage, reason string, issues []domain.Issue) domain.SymbolOutcome {
	return domain.SymbolOutcome{Failure: &domain.SymbolFailure{
		Symbol: symbol,
		Stage:  stage,
		Reason: reason,
		Issues: issues,
	}}
}

func (o *Orchestrator) observeRun(result domain.PipelineResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.RunDuration.Observe(result.Duration.Seconds())
	for _, outcome := range result.PerSymbol {
		if outcome.OK() {
			o.metrics.SymbolsOK.Inc()
			continue
		}
		stage := StageFetch
		if outcome.Failure != nil {
			stage = outcome.Failure.Stage
		}
		o.metrics.SymbolsFailed.WithLabelValues(stage).Inc()
	}
}

func summarizeIssues(issues []domain.Issue) string {
	if len(issues) == 0 {
		return "rejected by validation"
	}
	return issues[0].String()
}

func dedupe(symbols []domain.Symbol) []domain.Symbol {
	seen := make(map[domain.Symbol]bool, len(symbols))
	unique := make([]domain.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
	}
	return unique
}
