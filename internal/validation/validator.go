// Package validation inspects raw price series for completeness, staleness,
// and statistical anomalies, producing a per-symbol ValidationReport. It
// annotates or rejects; it never fabricates data: gaps stay gaps and
// suspicious bars are flagged, not corrected.
package validation

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"bullboard/internal/calendar"
	"bullboard/internal/config"
	"bullboard/internal/infrastructure"
	"bullboard/pkg/contracts/domain"
)

// anomalyWindow is the trailing number of daily returns used to estimate the
// return distribution when flagging outliers.
const anomalyWindow = 21

// minAnomalyObservations is the fewest trailing returns required before the
// z-score test is meaningful.
const minAnomalyObservations = 3

// Validator performs data quality validation. It is pure and synchronous:
// one instance serves all symbols with no concurrency control.
type Validator struct {
	cal     calendar.Calendar
	cfg     config.PipelineConfig
	logger  *slog.Logger
	metrics *infrastructure.Metrics
}

// NewValidator creates a Validator.
func NewValidator(cal calendar.Calendar, cfg config.PipelineConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		cal:     cal,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "validator")),
		metrics: metrics,
	}
}

// Validate runs every quality check against the raw series and reports the
// outcome. The report is Accepted iff no fatal issue was found; only then is
// CleanedSeries populated (duplicates and price-insane bars removed, sorted
// ascending, anomalous bars retained).
func (v *Validator) Validate(raw domain.RawSeries, now time.Time) domain.ValidationReport {
	report := domain.ValidationReport{Symbol: raw.Symbol}

	if len(raw.Bars) == 0 {
		report.Issues = append(report.Issues, domain.Issue{
			Kind:     domain.IssueEmptySeries,
			Severity: domain.SeverityFatal,
			Message:  "series contains no bars",
		})
		v.record(report.Issues)
		return report
	}

	bars := make([]domain.PriceBar, len(raw.Bars))
	copy(bars, raw.Bars)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	deduped, dupIssues := dropDuplicates(bars)
	cleaned, sanityIssues := dropInsaneBars(deduped)

	var issues []domain.Issue
	issues = append(issues, v.checkCompleteness(raw, cleaned)...)
	issues = append(issues, dupIssues...)
	issues = append(issues, v.checkStaleness(cleaned, now)...)
	issues = append(issues, sanityIssues...)

	// Escalate to a series-level rejection when too many bars failed the
	// price sanity check to trust what remains.
	if dropped := len(deduped) - len(cleaned); dropped > 0 {
		fraction := float64(dropped) / float64(len(deduped))
		if fraction > v.cfg.MaxDroppedBarFraction {
			issues = append(issues, domain.Issue{
				Kind:     domain.IssuePriceSanity,
				Severity: domain.SeverityFatal,
				Message: fmt.Sprintf("%.0f%% of bars dropped for price sanity, above the %.0f%% limit",
					fraction*100, v.cfg.MaxDroppedBarFraction*100),
			})
		}
	}

	issues = append(issues, v.checkAnomalies(cleaned)...)

	report.Issues = issues
	report.Accepted = len(report.FatalIssues()) == 0
	if report.Accepted {
		report.CleanedSeries = cleaned
	}

	v.record(issues)
	v.logger.Debug("validation complete",
		slog.String("symbol", raw.Symbol.String()),
		slog.Bool("accepted", report.Accepted),
		slog.Int("issues", len(issues)),
		slog.Int("cleaned_bars", len(report.CleanedSeries)))
	return report
}

// checkCompleteness compares the cleaned bar count against the trading
// calendar's expectation for the requested range. A gap is tolerated and left
// as a gap, never interpolated, but a missing fraction above the threshold
// rejects the series.
func (v *Validator) checkCompleteness(raw domain.RawSeries, cleaned []domain.PriceBar) []domain.Issue {
	expected := v.cal.TradingDays(raw.Start, raw.End)
	if len(expected) == 0 {
		return nil
	}

	have := make(map[time.Time]bool, len(cleaned))
	for _, bar := range cleaned {
		have[dateOnly(bar.Date)] = true
	}
	missing := 0
	for _, day := range expected {
		if !have[dateOnly(day)] {
			missing++
		}
	}
	if missing == 0 {
		return nil
	}

	fraction := float64(missing) / float64(len(expected))
	severity := domain.SeverityWarning
	if fraction > v.cfg.CompletenessThreshold {
		severity = domain.SeverityFatal
	}
	return []domain.Issue{{
		Kind:     domain.IssueIncomplete,
		Severity: severity,
		Message: fmt.Sprintf("%d of %d expected trading days missing (%.1f%%)",
			missing, len(expected), fraction*100),
	}}
}

// checkStaleness warns when the most recent bar is older than the configured
// maximum age. Staleness never blocks acceptance; the consumer decides.
func (v *Validator) checkStaleness(cleaned []domain.PriceBar, now time.Time) []domain.Issue {
	if len(cleaned) == 0 {
		return nil
	}
	last := cleaned[len(cleaned)-1].Date
	age := int(now.Sub(last).Hours() / 24)
	if age <= v.cfg.StalenessMaxDays {
		return nil
	}
	return []domain.Issue{{
		Kind:     domain.IssueStale,
		Severity: domain.SeverityWarning,
		Date:     last,
		Message:  fmt.Sprintf("latest bar is %d days old, maximum is %d", age, v.cfg.StalenessMaxDays),
	}}
}

// checkAnomalies flags day-over-day returns that sit more than AnomalyK
// standard deviations outside the trailing return distribution. Flagged bars
// stay in the series: a spike may be a stock split or a data error, and this
// pipeline detects but does not auto-correct corporate actions.
func (v *Validator) checkAnomalies(cleaned []domain.PriceBar) []domain.Issue {
	if len(cleaned) < 2 {
		return nil
	}

	returns := make([]float64, len(cleaned)-1)
	for i := 1; i < len(cleaned); i++ {
		returns[i-1] = cleaned[i].Close/cleaned[i-1].Close - 1
	}

	var issues []domain.Issue
	for i := range returns {
		lo := i - anomalyWindow
		if lo < 0 {
			lo = 0
		}
		trailing := returns[lo:i]
		if len(trailing) < minAnomalyObservations {
			continue
		}

		mean, std := stat.MeanStdDev(trailing, nil)
		deviation := math.Abs(returns[i] - mean)
		outlier := deviation > v.cfg.AnomalyK*std
		if std == 0 {
			// A flat trailing distribution makes any movement an outlier.
			outlier = deviation > 0
		}
		if !outlier {
			continue
		}

		barDate := cleaned[i+1].Date
		issues = append(issues, domain.Issue{
			Kind:     domain.IssueAnomaly,
			Severity: domain.SeverityWarning,
			Date:     barDate,
			Message: fmt.Sprintf("daily return %.1f%% deviates %.1f std from trailing mean (possible split or data error)",
				returns[i]*100, safeZ(deviation, std)),
		})
	}
	return issues
}

// dropDuplicates keeps the first bar per date and records a warning for each
// discarded duplicate.
func dropDuplicates(bars []domain.PriceBar) ([]domain.PriceBar, []domain.Issue) {
	seen := make(map[time.Time]bool, len(bars))
	kept := make([]domain.PriceBar, 0, len(bars))
	var issues []domain.Issue
	for _, bar := range bars {
		day := dateOnly(bar.Date)
		if seen[day] {
			issues = append(issues, domain.Issue{
				Kind:     domain.IssueDuplicate,
				Severity: domain.SeverityWarning,
				Date:     bar.Date,
				Message:  "duplicate date, keeping first occurrence",
			})
			continue
		}
		seen[day] = true
		kept = append(kept, bar)
	}
	return kept, issues
}

// dropInsaneBars removes bars violating the OHLC ordering invariant or with
// non-positive prices, recording a warning per dropped bar. Escalation to a
// series-level rejection happens in Validate.
func dropInsaneBars(bars []domain.PriceBar) ([]domain.PriceBar, []domain.Issue) {
	kept := make([]domain.PriceBar, 0, len(bars))
	var issues []domain.Issue
	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			issues = append(issues, domain.Issue{
				Kind:     domain.IssuePriceSanity,
				Severity: domain.SeverityWarning,
				Date:     bar.Date,
				Message:  fmt.Sprintf("bar dropped: %v", err),
			})
			continue
		}
		kept = append(kept, bar)
	}
	return kept, issues
}

func (v *Validator) record(issues []domain.Issue) {
	if v.metrics == nil {
		return
	}
	for _, issue := range issues {
		v.metrics.ValidationIssue.WithLabelValues(string(issue.Kind), string(issue.Severity)).Inc()
	}
}

func safeZ(deviation, std float64) float64 {
	if std == 0 {
		return math.Inf(1)
	}
	return deviation / std
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
