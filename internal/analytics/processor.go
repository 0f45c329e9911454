// Package analytics derives rolling metrics from cleaned price series. Every
// computation is a pure function of the input bars and configured windows: no
// randomness, no global state, bit-identical output for identical input.
package analytics

import (
	"math"
	"sort"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"bullboard/pkg/contracts/domain"
)

// tradingDaysPerYear annualizes the Sharpe-like ratio, matching the usual
// daily-to-annual convention.
const tradingDaysPerYear = 252

// Processor computes the analytics frame for one symbol. Pure and
// synchronous; one instance serves all symbols.
type Processor struct {
	windows []int
}

// NewProcessor creates a Processor for the given rolling window sizes.
// Windows are deduplicated and sorted ascending.
func NewProcessor(windows []int) *Processor {
	uniq := make(map[int]bool, len(windows))
	var ws []int
	for _, w := range windows {
		if w > 0 && !uniq[w] {
			uniq[w] = true
			ws = append(ws, w)
		}
	}
	sort.Ints(ws)
	return &Processor{windows: ws}
}

// Windows returns the configured window sizes, ascending.
func (p *Processor) Windows() []int {
	return p.windows
}

// Compute derives the full analytics frame from a cleaned series. Rows begin
// at the second bar (the first has no defined daily return); rolling columns
// are null until their window is filled, never zero-filled. The Sharpe-like
// ratio is null (not infinity, not zero) whenever rolling volatility is
// exactly zero.
func (p *Processor) Compute(symbol domain.Symbol, bars []domain.PriceBar) domain.AnalyticsFrame {
	frame := domain.AnalyticsFrame{Symbol: symbol, Windows: p.windows}
	if len(bars) < 2 {
		return frame
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	// returns[j] is the daily return of bar j+1 against bar j.
	returns := make([]float64, len(bars)-1)
	for j := range returns {
		returns[j] = (closes[j+1] - closes[j]) / closes[j]
	}

	frame.Rows = make([]domain.AnalyticsRow, 0, len(returns))
	cumulative := 1.0
	runningMax := closes[0]

	for i := 1; i < len(bars); i++ {
		ret := returns[i-1]
		cumulative *= 1 + ret
		if closes[i] > runningMax {
			runningMax = closes[i]
		}

		row := domain.AnalyticsRow{
			Date:             bars[i].Date,
			Close:            closes[i],
			DailyReturn:      ret,
			CumulativeReturn: cumulative - 1,
			Drawdown:         closes[i]/runningMax - 1,
			RollingMean:      make(map[int]null.Float, len(p.windows)),
			Volatility:       make(map[int]null.Float, len(p.windows)),
			RollingYield:     make(map[int]null.Float, len(p.windows)),
			Sharpe:           make(map[int]null.Float, len(p.windows)),
		}

		for _, w := range p.windows {
			row.RollingMean[w] = rollingMeanClose(closes, i, w)
			vol, yield := rollingReturnStats(returns, i, w)
			row.Volatility[w] = vol
			row.RollingYield[w] = yield
			row.Sharpe[w] = sharpeRatio(yield, vol)
		}

		frame.Rows = append(frame.Rows, row)
	}
	return frame
}

// rollingMeanClose averages the w closing prices ending at bar index i, or
// returns null when fewer than w observations exist.
func rollingMeanClose(closes []float64, i, w int) null.Float {
	if i+1 < w {
		return null.Float{}
	}
	return null.FloatFrom(stat.Mean(closes[i+1-w:i+1], nil))
}

// rollingReturnStats computes the sample standard deviation (volatility) and
// mean (yield) of the w daily returns ending at bar index i. Both are null
// until w returns have accumulated.
func rollingReturnStats(returns []float64, i, w int) (vol, yield null.Float) {
	j := i - 1 // return index for bar i
	if j+1 < w {
		return null.Float{}, null.Float{}
	}
	window := returns[j+1-w : j+1]
	mean, std := stat.MeanStdDev(window, nil)
	return null.FloatFrom(std), null.FloatFrom(mean)
}

// sharpeRatio annualizes yield over volatility. Undefined (null) when either
// input is null or when volatility is exactly zero, to avoid misleading
// spikes from dividing by nothing.
func sharpeRatio(yield, vol null.Float) null.Float {
	if !yield.Valid || !vol.Valid || vol.Float64 == 0 {
		return null.Float{}
	}
	return null.FloatFrom(yield.Float64 / vol.Float64 * math.Sqrt(tradingDaysPerYear))
}
