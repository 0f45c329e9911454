package analytics

import (
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"bullboard/pkg/contracts/domain"
)

// Risk score weights: realized volatility dominates, drawdown depth tempers.
const (
	riskWeightVolatility = 0.7
	riskWeightDrawdown   = 0.3
)

// Summarize condenses a cleaned series and its computed frame into the
// headline figures for one symbol. Averages over rolling columns use the
// smallest configured window and skip null cells; they are null themselves
// when no cell ever filled.
func Summarize(bars []domain.PriceBar, frame domain.AnalyticsFrame) domain.SymbolSummary {
	summary := domain.SymbolSummary{Symbol: frame.Symbol}
	if len(bars) == 0 {
		return summary
	}

	summary.PeriodStart = bars[0].Date
	summary.PeriodEnd = bars[len(bars)-1].Date
	summary.TradingDays = len(bars)

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	summary.AvgClose = stat.Mean(closes, nil)
	summary.TotalReturn = closes[len(closes)-1]/closes[0] - 1

	if len(frame.Rows) == 0 || len(frame.Windows) == 0 {
		return summary
	}
	w := frame.Windows[0]

	summary.AvgVolatility = meanOfValid(frame.Rows, func(r domain.AnalyticsRow) null.Float { return r.Volatility[w] })
	summary.AvgRollingYield = meanOfValid(frame.Rows, func(r domain.AnalyticsRow) null.Float { return r.RollingYield[w] })
	summary.AvgSharpe = meanOfValid(frame.Rows, func(r domain.AnalyticsRow) null.Float { return r.Sharpe[w] })

	for _, row := range frame.Rows {
		if row.Drawdown < summary.MaxDrawdown {
			summary.MaxDrawdown = row.Drawdown
		}
	}

	summary.RiskScore = riskScore(summary.AvgVolatility, summary.MaxDrawdown)
	return summary
}

// riskScore blends average realized volatility with the deepest drawdown.
// Undefined when volatility never filled its window.
func riskScore(avgVolatility null.Float, maxDrawdown float64) null.Float {
	if !avgVolatility.Valid {
		return null.Float{}
	}
	score := riskWeightVolatility*avgVolatility.Float64 + riskWeightDrawdown*math.Abs(maxDrawdown)
	return null.FloatFrom(score)
}

func meanOfValid(rows []domain.AnalyticsRow, cell func(domain.AnalyticsRow) null.Float) null.Float {
	sum, n := 0.0, 0
	for _, row := range rows {
		if v := cell(row); v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(sum / float64(n))
}
