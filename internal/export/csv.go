package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/stationpulse/stationpulse/internal/pipeline"
	"github.com/stationpulse/stationpulse/pkg/types"
)

// Filenames written under the output directory.
const (
	TimeSeriesFile = "time_series.csv"
	SummaryFile    = "summary.csv"
	DailyFile      = "daily_shares.csv"
)

// WriteCSV writes all three output tables under dir, creating it if needed.
func WriteCSV(dir string, series []types.TimeSeriesRow, summary []types.SummaryRow, daily []pipeline.DailyShare) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create %s: %w", dir, err)
	}
	if err := writeFile(filepath.Join(dir, TimeSeriesFile), func(w io.Writer) error {
		return WriteTimeSeries(w, series)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, SummaryFile), func(w io.Writer) error {
		return WriteSummary(w, summary)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, DailyFile), func(w io.Writer) error {
		return WriteDaily(w, daily)
	})
}

// WriteTimeSeries writes the per-entity, per-bucket table to w.
func WriteTimeSeries(w io.Writer, rows []types.TimeSeriesRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"grouping", "entity", "bucket", "traffic", "density", "coverage", "priority"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Grouping.String(),
			strconv.Itoa(int(r.Entity)),
			r.Bucket.UTC().Format(time.RFC3339),
			formatFloat(r.Traffic),
			formatFloat(r.Density),
			strconv.Itoa(r.Coverage),
			formatFloat(r.Priority),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes the whole-period ranking table to w.
func WriteSummary(w io.Writer, rows []types.SummaryRow) error {
	cw := csv.NewWriter(w)
	header := []string{"grouping", "entity", "buckets", "sum_traffic", "mean_traffic", "sum_density", "mean_density", "priority"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Grouping.String(),
			strconv.Itoa(int(r.Entity)),
			strconv.Itoa(r.Buckets),
			formatFloat(r.SumTraffic),
			formatFloat(r.MeanTraffic),
			formatFloat(r.SumDensity),
			formatFloat(r.MeanDensity),
			formatFloat(r.Priority),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDaily writes the per-station daily share table to w.
func WriteDaily(w io.Writer, shares []pipeline.DailyShare) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"station", "date", "entries", "day_total", "share"}); err != nil {
		return err
	}
	for _, s := range shares {
		record := []string{
			strconv.Itoa(int(s.Station)),
			s.Date.UTC().Format("2006-01-02"),
			formatFloat(s.Entries),
			formatFloat(s.DayTotal),
			formatFloat(s.Share),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(path string, write func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := write(fh); err != nil {
		fh.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
