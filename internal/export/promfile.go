package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/stationpulse/stationpulse/internal/pipeline"
)

// WritePromFile writes run statistics in Prometheus text exposition format
// to path, for pickup by a node-exporter textfile collector. The file is
// written atomically (temp file + rename) so the collector never reads a
// partial scrape.
func WritePromFile(path string, stats pipeline.RunStats) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("export: temp prom file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeRunStats(tmp, stats); err != nil {
		tmp.Close()
		return fmt.Errorf("export: encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: rename %s: %w", path, err)
	}
	return nil
}

// EncodeRunStats writes stats to w as Prometheus text metric families.
func EncodeRunStats(w io.Writer, stats pipeline.RunStats) error {
	families := []*dto.MetricFamily{
		gauge("stationpulse_readings_total", "Cleaned readings consumed by the last run.",
			float64(stats.ReadingsIn)),
		gauge("stationpulse_devices_seen", "Distinct devices observed in the last run.",
			float64(stats.DevicesSeen)),
		gauge("stationpulse_rate_intervals_total", "Valid rate intervals produced by the last run.",
			float64(stats.RateIntervals)),
		droppedFamily(stats),
		gauge("stationpulse_timeseries_rows", "Per-bucket output rows produced by the last run.",
			float64(stats.TimeSeriesRows)),
		gauge("stationpulse_summary_rows", "Whole-period output rows produced by the last run.",
			float64(stats.SummaryRows)),
		gauge("stationpulse_run_duration_seconds", "Wall-clock duration of the last run.",
			stats.Elapsed.Seconds()),
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// droppedFamily emits one gauge per drop reason under a shared metric name.
func droppedFamily(stats pipeline.RunStats) *dto.MetricFamily {
	reasons := []struct {
		reason string
		value  int
	}{
		{"zero_delta", stats.ZeroDeltaDropped},
		{"malformed", stats.MalformedDropped},
		{"unmapped_station", stats.UnmappedStations},
		{"low_coverage", stats.BucketsFiltered},
	}
	mf := &dto.MetricFamily{
		Name: proto.String("stationpulse_dropped_total"),
		Help: proto.String("Records dropped by the last run, by reason."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, r := range reasons {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: []*dto.LabelPair{{
				Name:  proto.String("reason"),
				Value: proto.String(r.reason),
			}},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(r.value))},
		})
	}
	return mf
}

// gauge builds a single-sample gauge family.
func gauge(name, help string, value float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: proto.Float64(value)}},
		},
	}
}
