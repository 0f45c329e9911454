package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullboard/pkg/contracts/domain"
)

func TestSummarize_HeadlineFigures(t *testing.T) {
	bars := series(100, 105, 110, 95, 90, 100, 120, 110)
	p := NewProcessor([]int{3})
	frame := p.Compute("TEST", bars)

	summary := Summarize(bars, frame)

	assert.Equal(t, domain.Symbol("TEST"), summary.Symbol)
	assert.Equal(t, bars[0].Date, summary.PeriodStart)
	assert.Equal(t, bars[7].Date, summary.PeriodEnd)
	assert.Equal(t, 8, summary.TradingDays)
	assert.InDelta(t, 110.0/100.0-1, summary.TotalReturn, 1e-12)
	assert.InDelta(t, (100.0+105+110+95+90+100+120+110)/8, summary.AvgClose, 1e-12)

	// Deepest trough: 90 against the 110 running high.
	assert.InDelta(t, 90.0/110.0-1, summary.MaxDrawdown, 1e-12)

	require.True(t, summary.AvgVolatility.Valid)
	require.True(t, summary.RiskScore.Valid)
	expected := 0.7*summary.AvgVolatility.Float64 + 0.3*math.Abs(summary.MaxDrawdown)
	assert.InDelta(t, expected, summary.RiskScore.Float64, 1e-12)
}

func TestSummarize_ShortSeriesHasNullAverages(t *testing.T) {
	bars := series(100, 101, 102)
	p := NewProcessor([]int{21})
	frame := p.Compute("TEST", bars)

	summary := Summarize(bars, frame)

	assert.Equal(t, 3, summary.TradingDays)
	assert.False(t, summary.AvgVolatility.Valid, "window never filled")
	assert.False(t, summary.AvgSharpe.Valid)
	assert.False(t, summary.RiskScore.Valid, "risk score undefined without volatility")
}

func TestSummarize_EmptySeries(t *testing.T) {
	p := NewProcessor([]int{21})
	summary := Summarize(nil, p.Compute("TEST", nil))

	assert.Zero(t, summary.TradingDays)
	assert.False(t, summary.RiskScore.Valid)
}

func TestSummarize_UsesSmallestWindow(t *testing.T) {
	bars := series(100, 101, 103, 99, 104, 102, 101, 105, 107, 103)
	p := NewProcessor([]int{63, 3})
	frame := p.Compute("TEST", bars)

	summary := Summarize(bars, frame)

	// Only the 3-day window ever fills on ten bars; averages come from it.
	assert.True(t, summary.AvgVolatility.Valid)
	assert.True(t, summary.AvgRollingYield.Valid)
}
