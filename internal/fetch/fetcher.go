package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"bullboard/internal/calendar"
	"bullboard/internal/config"
	"bullboard/internal/infrastructure"
	"bullboard/pkg/contracts/domain"
)

// Fetcher wraps a MarketDataSource with retry, backoff, and market-calendar
// date normalization. It keeps no state between calls except the shared rate
// limiter, so one instance serves all symbols concurrently.
type Fetcher struct {
	source  MarketDataSource
	cal     calendar.Calendar
	limiter *rate.Limiter
	cfg     config.PipelineConfig
	logger  *slog.Logger
	metrics *infrastructure.Metrics
}

// NewFetcher creates a Fetcher. The limiter is shared across all Fetch calls
// to respect the provider's rate limits; it is the only cross-symbol resource.
func NewFetcher(source MarketDataSource, cal calendar.Calendar, cfg config.PipelineConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:  source,
		cal:     cal,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "fetcher")),
		metrics: metrics,
	}
}

// Fetch retrieves raw history for one symbol. The requested range is clamped
// to the trading calendar: an end date on a non-trading day moves back to the
// prior trading day, and a range containing zero trading days is an input
// error, not a retryable one. Transient provider failures are retried up to
// MaxRetries times with doubling, capped backoff; permanent failures surface
// immediately. Cancellation is honored between attempts.
func (f *Fetcher) Fetch(ctx context.Context, symbol domain.Symbol, start, end time.Time) (domain.RawSeries, error) {
	if symbol == "" {
		return domain.RawSeries{}, &FetchError{Symbol: symbol, Sentinel: ErrInput, Err: fmt.Errorf("empty symbol")}
	}
	if start.After(end) {
		return domain.RawSeries{}, &FetchError{Symbol: symbol, Sentinel: ErrInput,
			Err: fmt.Errorf("start %s after end %s", start.Format("2006-01-02"), end.Format("2006-01-02"))}
	}

	end = f.cal.PriorTradingDay(end)
	expected := f.cal.TradingDays(start, end)
	if len(expected) == 0 {
		return domain.RawSeries{}, &FetchError{Symbol: symbol, Sentinel: ErrInput,
			Err: fmt.Errorf("no trading days between %s and %s", start.Format("2006-01-02"), end.Format("2006-01-02"))}
	}

	attempts := 0
	var bars []domain.PriceBar

	operation := func() error {
		attempts++
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		fetched, err := f.source.GetHistory(ctx, symbol, start, end)
		if err != nil {
			return f.classify(ctx, symbol, err)
		}
		if len(fetched) == 0 {
			// The calendar says data should exist; an empty answer is a
			// provider hiccup, not proof of an empty range.
			f.countAttempt("transient")
			return &ProviderError{Kind: ProviderErrorTransient, Message: "empty response for non-empty trading range"}
		}

		f.countAttempt("success")
		bars = fetched
		return nil
	}

	if err := backoff.Retry(operation, f.newBackOff(ctx)); err != nil {
		return domain.RawSeries{}, f.wrap(symbol, attempts, err)
	}

	series := domain.RawSeries{Symbol: symbol, Start: start, End: end, Attempts: attempts}
	series.Bars = clampAndSort(bars, start, end)

	f.logger.DebugContext(ctx, "fetch complete",
		slog.String("symbol", symbol.String()),
		slog.Int("bars", len(series.Bars)),
		slog.Int("attempts", attempts))
	return series, nil
}

// newBackOff builds the per-call retry schedule: base delay doubling each
// attempt, capped, bounded by MaxRetries, and cancellable between attempts.
func (f *Fetcher) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.cfg.BackoffBase
	bo.MaxInterval = f.cfg.BackoffCap
	bo.Multiplier = 2.0
	bo.MaxElapsedTime = 0 // bounded by retry count and context, not wall clock
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.cfg.MaxRetries)), ctx)
}

// classify converts a provider failure into a retryable or permanent backoff
// outcome and records it.
func (f *Fetcher) classify(ctx context.Context, symbol domain.Symbol, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Transient() {
		f.countAttempt("transient")
		if f.metrics != nil {
			f.metrics.FetchRetries.Inc()
		}
		f.logger.WarnContext(ctx, "transient provider failure, will retry",
			slog.String("symbol", symbol.String()),
			slog.String("error", err.Error()))
		return err
	}
	f.countAttempt("permanent")
	return backoff.Permanent(err)
}

// wrap maps the terminal retry error onto the fetch taxonomy.
func (f *Fetcher) wrap(symbol domain.Symbol, attempts int, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) && !perr.Transient() {
		return &FetchError{Symbol: symbol, Attempts: attempts, Sentinel: ErrPermanent, Err: err}
	}
	return &FetchError{Symbol: symbol, Attempts: attempts, Sentinel: ErrFetchFailed, Err: err}
}

func (f *Fetcher) countAttempt(outcome string) {
	if f.metrics != nil {
		f.metrics.FetchAttempts.WithLabelValues(outcome).Inc()
	}
}

// clampAndSort keeps bars inside [start, end] and orders them ascending.
// Duplicate dates survive here; deduplication is the validator's concern.
func clampAndSort(bars []domain.PriceBar, start, end time.Time) []domain.PriceBar {
	kept := make([]domain.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		kept = append(kept, bar)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })
	return kept
}
