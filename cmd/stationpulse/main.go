package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stationpulse/stationpulse/internal/config"
	"github.com/stationpulse/stationpulse/internal/export"
	"github.com/stationpulse/stationpulse/internal/ingest"
	"github.com/stationpulse/stationpulse/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("stationpulse starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"readings_glob", cfg.Input.ReadingsGlob,
		"grouping", cfg.Pipeline.Grouping,
		"bucket_resolution", cfg.Pipeline.BucketResolution.String(),
		"out_dir", cfg.Export.OutDir,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runOnce(ctx, cfg); err != nil {
		slog.Error("run failed", "err", err)
		if !cfg.Watch {
			os.Exit(1)
		}
	}

	if !cfg.Watch {
		return
	}

	// Watch mode: re-run on config edits or new provider files, until
	// interrupted.
	if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
		if err := runOnce(ctx, updated); err != nil {
			slog.Error("run failed", "err", err)
		}
	}); err != nil {
		slog.Error("watcher stopped", "err", err)
		os.Exit(1)
	}

	slog.Info("stationpulse shutting down")
}

// runOnce executes the full ingest → pipeline → export cycle for one config.
func runOnce(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	raw, _, err := ingest.ParseGlob(cfg.Input.ReadingsGlob)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		slog.Warn("no provider records matched", "glob", cfg.Input.ReadingsGlob)
	}

	readings := ingest.Cleanse(raw, cfg.Input.MaxFieldDelta)

	lookup := ingest.ComplexLookup{}
	if cfg.Input.ComplexLookup != "" {
		lookup, err = ingest.LoadComplexLookup(cfg.Input.ComplexLookup)
		if err != nil {
			return err
		}
	}
	mapping := ingest.BuildMapping(raw, lookup)

	pc, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}
	result, err := pipeline.Run(readings, mapping, pc)
	if err != nil {
		var degenerate *pipeline.DegenerateBatchError
		if errors.As(err, &degenerate) {
			slog.Error("priority scores are undefined for this batch",
				"batch_size", degenerate.Size, "raw", degenerate.Raw)
		}
		return err
	}

	result.Quality.LogAll()

	series, summary := result.TimeSeries, result.Summary
	filters, err := pipeline.ParseFilters(cfg.Export.Filters)
	if err != nil {
		return err
	}
	if len(filters) > 0 {
		series = pipeline.SelectTimeSeries(series, filters)
		summary = pipeline.SelectSummary(summary, filters)
		slog.Info("filters applied",
			"filters", len(filters),
			"time_series_rows", len(series),
			"summary_rows", len(summary),
		)
	}

	if err := export.WriteCSV(cfg.Export.OutDir, series, summary, result.Daily); err != nil {
		return err
	}
	slog.Info("csv written", "dir", cfg.Export.OutDir)

	if cfg.Export.PromFile != "" {
		if err := export.WritePromFile(cfg.Export.PromFile, result.Stats); err != nil {
			return err
		}
		slog.Info("prom file written", "path", cfg.Export.PromFile)
	}

	if ic := cfg.InfluxConfig(); ic.Enabled() {
		sink := export.NewInfluxSink(ic)
		defer sink.Close()
		if err := sink.WriteResult(ctx, series, summary, start); err != nil {
			return err
		}
		slog.Info("influx write complete", "bucket", ic.Bucket)
	}

	st := result.Stats
	slog.Info("run complete",
		"readings_in", st.ReadingsIn,
		"devices_seen", st.DevicesSeen,
		"rate_intervals", st.RateIntervals,
		"time_series_rows", st.TimeSeriesRows,
		"summary_rows", st.SummaryRows,
		"daily_share_rows", st.DailyShareRows,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}
