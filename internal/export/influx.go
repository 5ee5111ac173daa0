package export

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// Measurement names used in the InfluxDB bucket.
const (
	seriesMeasurement  = "station_traffic"
	summaryMeasurement = "station_summary"
)

// InfluxConfig configures the optional InfluxDB v2 sink. An empty URL
// disables it. The token is resolved from the environment variable named by
// TokenEnv, never stored in the config file.
type InfluxConfig struct {
	URL      string
	TokenEnv string
	Org      string
	Bucket   string
}

// Enabled reports whether the sink is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// Token resolves the API token from the environment.
func (c InfluxConfig) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// InfluxSink writes pipeline output as InfluxDB points.
type InfluxSink struct {
	client influxdb2.Client
	cfg    InfluxConfig
}

// NewInfluxSink builds the sink from cfg. The connection is lazy; a bad URL
// or token surfaces on the first write.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	return &InfluxSink{
		client: influxdb2.NewClient(cfg.URL, cfg.Token()),
		cfg:    cfg,
	}
}

// WriteResult writes both tables in one blocking batch, so any server or
// transport error surfaces here rather than on a background channel. Summary
// rows are stamped with runStamp since they have no bucket time of their own.
func (s *InfluxSink) WriteResult(ctx context.Context, series []types.TimeSeriesRow, summary []types.SummaryRow, runStamp time.Time) error {
	writeAPI := s.client.WriteAPIBlocking(s.cfg.Org, s.cfg.Bucket)

	points := make([]*write.Point, 0, len(series)+len(summary))
	for _, row := range series {
		points = append(points, seriesPoint(row))
	}
	for _, row := range summary {
		points = append(points, summaryPoint(row, runStamp))
	}
	if len(points) == 0 {
		return nil
	}

	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("export: influx write: %w", err)
	}
	return nil
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// seriesPoint converts one time-series row into an InfluxDB point, tagged by
// grouping and entity so dashboards can filter per station or complex.
func seriesPoint(row types.TimeSeriesRow) *write.Point {
	return influxdb2.NewPoint(
		seriesMeasurement,
		map[string]string{
			"grouping": row.Grouping.String(),
			"entity":   strconv.Itoa(int(row.Entity)),
		},
		map[string]interface{}{
			"traffic":  row.Traffic,
			"density":  row.Density,
			"coverage": row.Coverage,
			"priority": row.Priority,
		},
		row.Bucket,
	)
}

// summaryPoint converts one summary row; the bucket count rides along so
// consumers can tell a one-bucket summary from a full week.
func summaryPoint(row types.SummaryRow, runStamp time.Time) *write.Point {
	return influxdb2.NewPoint(
		summaryMeasurement,
		map[string]string{
			"grouping": row.Grouping.String(),
			"entity":   strconv.Itoa(int(row.Entity)),
		},
		map[string]interface{}{
			"sum_traffic":  row.SumTraffic,
			"mean_traffic": row.MeanTraffic,
			"sum_density":  row.SumDensity,
			"mean_density": row.MeanDensity,
			"buckets":      row.Buckets,
			"priority":     row.Priority,
		},
		runStamp,
	)
}
