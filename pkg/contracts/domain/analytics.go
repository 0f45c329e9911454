package domain

import (
	"time"

	"github.com/guregu/null/v6"
)

// AnalyticsRow holds every computed metric for one trading day. Metrics whose
// warm-up window is not yet filled are null, never zero-filled: a null cell
// means "insufficient history", not "no movement".
type AnalyticsRow struct {
	Date             time.Time          `json:"date"`
	Close            float64            `json:"close"`
	DailyReturn      float64            `json:"daily_return"`
	CumulativeReturn float64            `json:"cumulative_return"`
	Drawdown         float64            `json:"drawdown"`
	RollingMean      map[int]null.Float `json:"rolling_mean"`
	Volatility       map[int]null.Float `json:"volatility"`
	RollingYield     map[int]null.Float `json:"rolling_yield"`
	Sharpe           map[int]null.Float `json:"sharpe"`
}

// AnalyticsFrame is the derived table for one symbol, keyed by date and
// sorted ascending. Rows begin at the second cleaned bar: the first bar has
// no defined daily return and is omitted rather than padded.
type AnalyticsFrame struct {
	Symbol  Symbol         `json:"symbol"`
	Windows []int          `json:"windows"`
	Rows    []AnalyticsRow `json:"rows"`
}

// Len returns the number of rows in the frame.
func (f AnalyticsFrame) Len() int {
	return len(f.Rows)
}

// SymbolSummary condenses a frame into the per-symbol headline figures shown
// on the dashboard.
type SymbolSummary struct {
	Symbol          Symbol     `json:"symbol"`
	PeriodStart     time.Time  `json:"period_start"`
	PeriodEnd       time.Time  `json:"period_end"`
	TradingDays     int        `json:"trading_days"`
	AvgClose        float64    `json:"avg_close"`
	TotalReturn     float64    `json:"total_return"`
	AvgVolatility   null.Float `json:"avg_volatility"`
	AvgRollingYield null.Float `json:"avg_rolling_yield"`
	AvgSharpe       null.Float `json:"avg_sharpe"`
	MaxDrawdown     float64    `json:"max_drawdown"`
	RiskScore       null.Float `json:"risk_score"`
}

// SymbolFailure is the structured failure reason recorded for a symbol whose
// pipeline leg did not produce analytics.
type SymbolFailure struct {
	Symbol Symbol  `json:"symbol"`
	Stage  string  `json:"stage"`
	Reason string  `json:"reason"`
	Issues []Issue `json:"issues,omitempty"`
}

// SymbolOutcome is one entry of a PipelineResult: either a frame with its
// summary, or a failure.
type SymbolOutcome struct {
	Frame   *AnalyticsFrame `json:"frame,omitempty"`
	Summary *SymbolSummary  `json:"summary,omitempty"`
	Failure *SymbolFailure  `json:"failure,omitempty"`
}

// OK reports whether the symbol produced analytics.
func (o SymbolOutcome) OK() bool {
	return o.Failure == nil && o.Frame != nil
}

// PipelineResult aggregates per-symbol outcomes for one run. The mapping is
// keyed so aggregation order carries no meaning.
type PipelineResult struct {
	RunID     string                   `json:"run_id"`
	Start     time.Time                `json:"start"`
	End       time.Time                `json:"end"`
	Duration  time.Duration            `json:"duration"`
	PerSymbol map[Symbol]SymbolOutcome `json:"per_symbol"`
}

// Succeeded returns the symbols that produced analytics, count only.
func (r PipelineResult) Succeeded() int {
	n := 0
	for _, outcome := range r.PerSymbol {
		if outcome.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of symbols that recorded a failure.
func (r PipelineResult) Failed() int {
	return len(r.PerSymbol) - r.Succeeded()
}
