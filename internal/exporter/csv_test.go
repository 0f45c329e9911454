package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bullboard/pkg/contracts/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func testFrame() domain.AnalyticsFrame {
	date := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	return domain.AnalyticsFrame{
		Symbol:  "AAPL",
		Windows: []int{3},
		Rows: []domain.AnalyticsRow{
			{
				Date: date, Close: 101, DailyReturn: 0.01, CumulativeReturn: 0.01, Drawdown: 0,
				RollingMean:  map[int]null.Float{3: {}},
				Volatility:   map[int]null.Float{3: {}},
				RollingYield: map[int]null.Float{3: {}},
				Sharpe:       map[int]null.Float{3: {}},
			},
			{
				Date: date.AddDate(0, 0, 1), Close: 99, DailyReturn: -0.0198, CumulativeReturn: -0.0099, Drawdown: -0.0198,
				RollingMean:  map[int]null.Float{3: null.FloatFrom(100.25)},
				Volatility:   map[int]null.Float{3: null.FloatFrom(0.02)},
				RollingYield: map[int]null.Float{3: null.FloatFrom(-0.005)},
				Sharpe:       map[int]null.Float{3: null.FloatFrom(-3.96)},
			},
		},
	}
}

func TestExportFrame(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVExporter(dir, nil)

	require.NoError(t, e.ExportFrame(testFrame()))

	records := readCSV(t, filepath.Join(dir, "AAPL_analytics.csv"))
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, []string{
		"date", "close", "daily_return", "cumulative_return", "drawdown",
		"rolling_mean_3", "volatility_3", "rolling_yield_3", "sharpe_3",
	}, header)

	// Null cells stay empty rather than becoming zeros.
	warmup := records[1]
	assert.Equal(t, "2024-01-03", warmup[0])
	assert.Equal(t, "", warmup[5])
	assert.Equal(t, "", warmup[8])

	filled := records[2]
	assert.Equal(t, "100.25", filled[5])
	assert.Equal(t, "0.02", filled[6])
}

func TestExportResult(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVExporter(dir, nil)

	frame := testFrame()
	summary := domain.SymbolSummary{
		Symbol:      "AAPL",
		PeriodStart: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC),
		TradingDays: 3,
		AvgClose:    100,
		TotalReturn: -0.01,
		MaxDrawdown: -0.0198,
		RiskScore:   null.FloatFrom(0.02),
	}
	result := domain.PipelineResult{
		RunID: "run-1",
		PerSymbol: map[domain.Symbol]domain.SymbolOutcome{
			"AAPL": {Frame: &frame, Summary: &summary},
			"BAD":  {Failure: &domain.SymbolFailure{Symbol: "BAD", Stage: "fetch", Reason: "unknown symbol"}},
		},
	}

	require.NoError(t, e.ExportResult(result))

	_, err := os.Stat(filepath.Join(dir, "AAPL_analytics.csv"))
	assert.NoError(t, err)

	// Failed symbols leave no frame file behind.
	_, err = os.Stat(filepath.Join(dir, "BAD_analytics.csv"))
	assert.True(t, os.IsNotExist(err))

	records := readCSV(t, filepath.Join(dir, "summaries.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[1][0])
	assert.Equal(t, "3", records[1][3])
	assert.Equal(t, "", records[1][6], "null average stays empty")
	assert.Equal(t, "0.02", records[1][10])
}
