// Package exporter writes pipeline results to CSV files for spreadsheet
// consumption.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/guregu/null/v6"

	"bullboard/pkg/contracts/domain"
)

// CSVExporter writes analytics frames and summaries under a base directory.
type CSVExporter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVExporter creates a CSV exporter rooted at dir.
func NewCSVExporter(dir string, logger *slog.Logger) *CSVExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVExporter{
		dir:    dir,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// ExportResult writes one frame file per succeeded symbol plus the combined
// summary file. Failed symbols are skipped; their reasons live in the run
// result, not on disk.
func (e *CSVExporter) ExportResult(result domain.PipelineResult) error {
	symbols := make([]domain.Symbol, 0, len(result.PerSymbol))
	for symbol := range result.PerSymbol {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	summaries := make([]domain.SymbolSummary, 0, len(symbols))
	for _, symbol := range symbols {
		outcome := result.PerSymbol[symbol]
		if !outcome.OK() {
			continue
		}
		if err := e.ExportFrame(*outcome.Frame); err != nil {
			return err
		}
		summaries = append(summaries, *outcome.Summary)
	}
	return e.ExportSummaries(summaries)
}

// ExportFrame writes one symbol's analytics table to <dir>/<symbol>_analytics.csv.
// Null cells are written as empty fields, never as zeros.
func (e *CSVExporter) ExportFrame(frame domain.AnalyticsFrame) error {
	headers := []string{"date", "close", "daily_return", "cumulative_return", "drawdown"}
	for _, w := range frame.Windows {
		headers = append(headers,
			fmt.Sprintf("rolling_mean_%d", w),
			fmt.Sprintf("volatility_%d", w),
			fmt.Sprintf("rolling_yield_%d", w),
			fmt.Sprintf("sharpe_%d", w))
	}

	records := make([][]string, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			formatFloat(row.Close),
			formatFloat(row.DailyReturn),
			formatFloat(row.CumulativeReturn),
			formatFloat(row.Drawdown),
		}
		for _, w := range frame.Windows {
			record = append(record,
				formatNull(row.RollingMean[w]),
				formatNull(row.Volatility[w]),
				formatNull(row.RollingYield[w]),
				formatNull(row.Sharpe[w]))
		}
		records = append(records, record)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s_analytics.csv", frame.Symbol))
	return e.write(path, headers, records)
}

// ExportSummaries writes the combined per-symbol summary table to
// <dir>/summaries.csv.
func (e *CSVExporter) ExportSummaries(summaries []domain.SymbolSummary) error {
	headers := []string{
		"symbol", "period_start", "period_end", "trading_days",
		"avg_close", "total_return", "avg_volatility", "avg_rolling_yield",
		"avg_sharpe", "max_drawdown", "risk_score",
	}

	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, []string{
			s.Symbol.String(),
			s.PeriodStart.Format("2006-01-02"),
			s.PeriodEnd.Format("2006-01-02"),
			strconv.Itoa(s.TradingDays),
			formatFloat(s.AvgClose),
			formatFloat(s.TotalReturn),
			formatNull(s.AvgVolatility),
			formatNull(s.AvgRollingYield),
			formatNull(s.AvgSharpe),
			formatFloat(s.MaxDrawdown),
			formatNull(s.RiskScore),
		})
	}

	return e.write(filepath.Join(e.dir, "summaries.csv"), headers, records)
}

// write creates the file (and its directory) and writes headers plus records.
func (e *CSVExporter) write(path string, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	writer.Flush()

	if err := writer.Error(); err != nil {
		return err
	}
	e.logger.Info("export written",
		slog.String("path", path),
		slog.Int("records", len(records)))
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatNull(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}
