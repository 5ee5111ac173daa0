package pipeline

import (
	"fmt"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// Config holds the pipeline options for one run.
type Config struct {
	// Resolution is the time-bucket width. Readings snap to the nearest
	// multiple, round half up.
	Resolution time.Duration

	// MinCoverage drops buckets observed from fewer distinct entities.
	// Zero keeps every bucket.
	MinCoverage int

	// TrafficWeight and DensityWeight are additive offsets applied to the
	// component scores before multiplication. Zero means pure multiplicative
	// combination.
	TrafficWeight float64
	DensityWeight float64

	// Grouping selects the aggregation entity: station or complex.
	Grouping types.GroupKey

	// Workers shards per-device normalization. Values below 1 mean serial.
	Workers int

	// DropZeroRates removes zero-rate intervals before bucketing. Off by
	// default: a quiet hour is a real observation.
	DropZeroRates bool
}

// RunStats counts what a run saw and produced, for logging and the optional
// textfile-collector export.
type RunStats struct {
	ReadingsIn       int
	DevicesSeen      int
	RateIntervals    int
	ZeroDeltaDropped int
	MalformedDropped int
	UnmappedStations int
	BucketsFiltered  int
	TimeSeriesRows   int
	SummaryRows      int
	DailyShareRows   int
	Elapsed          time.Duration
}

// Result is the full output of one pipeline run.
type Result struct {
	TimeSeries []types.TimeSeriesRow
	Summary    []types.SummaryRow
	Daily      []DailyShare
	Quality    *Report
	Stats      RunStats
}

// Run executes the full pipeline over one immutable reading set: normalize,
// bucket, aggregate, score, project, plus the daily share table computed
// straight from the readings. It is a pure function of its inputs —
// two runs over the same readings and config produce identical results.
//
// The returned error is non-nil only for a degenerate scoring batch
// (*DegenerateBatchError); every data-quality condition is instead collected
// in Result.Quality. On error no result is returned: priority is the
// terminal product and a batch without a valid priority column has no rows
// worth exporting.
func Run(readings []types.Reading, mapping types.Mapping, cfg Config) (*Result, error) {
	start := time.Now()
	rep := NewReport()

	rates := Normalize(readings, cfg.Workers, rep)
	if cfg.DropZeroRates {
		rates = DropZeroRates(rates)
	}

	bucketed := Bucket(rates, cfg.Resolution)
	aggregates := Aggregate(bucketed, mapping, cfg.Grouping, rep)
	aggregates = FilterCoverage(aggregates, cfg.MinCoverage, rep)
	summaries := Summarize(aggregates)

	seriesPriorities, err := Score(aggregates, cfg.TrafficWeight, cfg.DensityWeight)
	if err != nil {
		return nil, fmt.Errorf("score %s time series: %w", cfg.Grouping, err)
	}
	summaryPriorities, err := Score(summaries, cfg.TrafficWeight, cfg.DensityWeight)
	if err != nil {
		return nil, fmt.Errorf("score %s summary: %w", cfg.Grouping, err)
	}

	res := &Result{
		TimeSeries: ProjectTimeSeries(aggregates, seriesPriorities, cfg.Grouping),
		Summary:    ProjectSummary(summaries, summaryPriorities, cfg.Grouping),
		Daily:      DailyShares(readings),
		Quality:    rep,
	}
	res.Stats = RunStats{
		ReadingsIn:       len(readings),
		DevicesSeen:      len(groupByDevice(readings)),
		RateIntervals:    len(rates),
		ZeroDeltaDropped: rep.Count(WarnZeroDelta),
		MalformedDropped: rep.Count(WarnMalformedReading),
		UnmappedStations: rep.Count(WarnUnmappedStation),
		BucketsFiltered:  rep.Count(WarnLowCoverage),
		TimeSeriesRows:   len(res.TimeSeries),
		SummaryRows:      len(res.Summary),
		DailyShareRows:   len(res.Daily),
		Elapsed:          time.Since(start),
	}
	return res, nil
}
