package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullboard/internal/config"
	"bullboard/pkg/contracts/domain"
)

type stubRunner struct {
	lastSymbols []domain.Symbol
	lastStart   time.Time
	lastEnd     time.Time
	err         error
}

func (s *stubRunner) Run(_ context.Context, symbols []domain.Symbol, start, end time.Time) (domain.PipelineResult, error) {
	s.lastSymbols, s.lastStart, s.lastEnd = symbols, start, end
	if s.err != nil {
		return domain.PipelineResult{}, s.err
	}
	per := make(map[domain.Symbol]domain.SymbolOutcome, len(symbols))
	for _, sym := range symbols {
		frame := domain.AnalyticsFrame{Symbol: sym, Rows: []domain.AnalyticsRow{{Close: 1}}}
		summary := domain.SymbolSummary{Symbol: sym}
		per[sym] = domain.SymbolOutcome{Frame: &frame, Summary: &summary}
	}
	return domain.PipelineResult{RunID: "stub", PerSymbol: per}, nil
}

func TestRun_NormalizesSymbolsAndStoresLatest(t *testing.T) {
	runner := &stubRunner{}
	svc := NewAnalyticsService(runner, config.Default().Refresh, nil)

	_, err := svc.Latest()
	assert.ErrorIs(t, err, ErrNoRun)

	result, err := svc.Run(context.Background(), RunRequest{
		Symbols: []string{" aapl ", "msft"},
		Start:   time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Symbol{"AAPL", "MSFT"}, runner.lastSymbols)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, result.RunID, latest.RunID)
}

func TestRun_DefaultsRangeFromConfig(t *testing.T) {
	runner := &stubRunner{}
	cfg := config.Default().Refresh
	cfg.RangeDays = 90
	svc := NewAnalyticsService(runner, cfg, nil)

	_, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().UTC(), runner.lastEnd, time.Minute)
	assert.Equal(t, runner.lastEnd.AddDate(0, 0, -90), runner.lastStart)
}

func TestRun_DefaultsEachBoundIndependently(t *testing.T) {
	cfg := config.Default().Refresh
	cfg.RangeDays = 90

	t.Run("only end given", func(t *testing.T) {
		runner := &stubRunner{}
		svc := NewAnalyticsService(runner, cfg, nil)
		end := time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC)

		_, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"AAPL"}, End: end})
		require.NoError(t, err)

		assert.Equal(t, end, runner.lastEnd)
		assert.Equal(t, end.AddDate(0, 0, -90), runner.lastStart)
		assert.False(t, runner.lastStart.IsZero())
	})

	t.Run("only start given", func(t *testing.T) {
		runner := &stubRunner{}
		svc := NewAnalyticsService(runner, cfg, nil)
		start := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

		_, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"AAPL"}, Start: start})
		require.NoError(t, err)

		assert.Equal(t, start, runner.lastStart)
		assert.WithinDuration(t, time.Now().UTC(), runner.lastEnd, time.Minute)
	})
}

func TestSymbolOutcome(t *testing.T) {
	runner := &stubRunner{}
	svc := NewAnalyticsService(runner, config.Default().Refresh, nil)

	_, err := svc.SymbolOutcome("AAPL")
	assert.ErrorIs(t, err, ErrNoRun)

	_, err = svc.Run(context.Background(), RunRequest{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	outcome, err := svc.SymbolOutcome("aapl")
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	_, err = svc.SymbolOutcome("TSLA")
	assert.ErrorIs(t, err, ErrSymbolNotInRun)
}

func TestSummaries_SkipsFailures(t *testing.T) {
	runner := &stubRunner{}
	svc := NewAnalyticsService(runner, config.Default().Refresh, nil)

	_, err := svc.Run(context.Background(), RunRequest{Symbols: []string{"AAPL", "MSFT"}})
	require.NoError(t, err)

	// Inject a failure alongside the successes.
	svc.mu.Lock()
	svc.latest.PerSymbol["BAD"] = domain.SymbolOutcome{
		Failure: &domain.SymbolFailure{Symbol: "BAD", Stage: "fetch", Reason: "boom"},
	}
	svc.mu.Unlock()

	summaries, err := svc.Summaries()
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}
