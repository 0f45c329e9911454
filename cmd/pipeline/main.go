// Command pipeline runs one batch over a symbol list and exports the results
// as CSV files. Intended for cron-free environments and ad hoc backfills.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"bullboard/internal/analytics"
	"bullboard/internal/calendar"
	"bullboard/internal/config"
	"bullboard/internal/exporter"
	"bullboard/internal/fetch"
	"bullboard/internal/infrastructure"
	"bullboard/internal/pipeline"
	"bullboard/internal/validation"
	"bullboard/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	symbolsArg := flag.String("symbols", "", "comma-separated ticker symbols (required)")
	startArg := flag.String("start", "", "range start, YYYY-MM-DD (default: end minus refresh range)")
	endArg := flag.String("end", "", "range end, YYYY-MM-DD (default: today)")
	outDir := flag.String("out", "exports", "output directory for CSV files")
	flag.Parse()

	if err := run(*configPath, *symbolsArg, *startArg, *endArg, *outDir); err != nil {
		slog.Error("pipeline run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath, symbolsArg, startArg, endArg, outDir string) error {
	if symbolsArg == "" {
		return fmt.Errorf("-symbols is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	start, end, err := resolveRange(startArg, endArg, cfg.Refresh.RangeDays)
	if err != nil {
		return err
	}

	var symbols []domain.Symbol
	for _, raw := range strings.Split(symbolsArg, ",") {
		symbols = append(symbols, domain.NewSymbol(raw))
	}

	metrics := infrastructure.NewMetrics()
	cal := calendar.NewNYSE()
	source := fetch.NewHTTPSource(cfg.Provider, logger)
	fetcher := fetch.NewFetcher(source, cal, cfg.Pipeline, logger, metrics)
	validator := validation.NewValidator(cal, cfg.Pipeline, logger, metrics)
	processor := analytics.NewProcessor(cfg.Pipeline.Windows)
	orchestrator := pipeline.NewOrchestrator(fetcher, validator, processor, cfg.Pipeline, logger, metrics)

	result, err := orchestrator.Run(context.Background(), symbols, start, end)
	if err != nil {
		return err
	}

	if err := exporter.NewCSVExporter(outDir, logger).ExportResult(result); err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	logger.Info("batch complete",
		slog.String("run_id", result.RunID),
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", result.Failed()),
		slog.Duration("duration", result.Duration),
		slog.String("output_dir", outDir))

	for symbol, outcome := range result.PerSymbol {
		if outcome.Failure != nil {
			logger.Warn("symbol failed",
				slog.String("symbol", symbol.String()),
				slog.String("stage", outcome.Failure.Stage),
				slog.String("reason", outcome.Failure.Reason))
		}
	}

	if result.Succeeded() == 0 {
		return fmt.Errorf("all %d symbols failed", result.Failed())
	}
	return nil
}

// resolveRange applies the CLI date flags over the configured default range.
func resolveRange(startArg, endArg string, rangeDays int) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endArg != "" {
		parsed, err := time.Parse("2006-01-02", endArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end date %q: %w", endArg, err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -rangeDays)
	if startArg != "" {
		parsed, err := time.Parse("2006-01-02", startArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -start date %q: %w", startArg, err)
		}
		start = parsed
	}

	return start, end, nil
}
