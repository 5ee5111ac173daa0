package pipeline

import (
	"github.com/stationpulse/stationpulse/pkg/types"
)

// ProjectTimeSeries reshapes scored per-bucket records into the caller-facing
// time-series table. priorities must be index-aligned with records (the
// Score output for the same batch).
func ProjectTimeSeries(records []types.AggregateRecord, priorities []float64, key types.GroupKey) []types.TimeSeriesRow {
	rows := make([]types.TimeSeriesRow, 0, len(records))
	for i, r := range records {
		rows = append(rows, types.TimeSeriesRow{
			Grouping: key,
			Entity:   r.Entity,
			Bucket:   r.Bucket,
			Traffic:  r.TotalTraffic,
			Density:  r.Density,
			Coverage: r.Coverage,
			Priority: priorities[i],
		})
	}
	return rows
}

// ProjectSummary reshapes scored summary records into the whole-period
// ranking table. Means divide by the bucket count carried in Coverage.
func ProjectSummary(records []types.AggregateRecord, priorities []float64, key types.GroupKey) []types.SummaryRow {
	rows := make([]types.SummaryRow, 0, len(records))
	for i, r := range records {
		row := types.SummaryRow{
			Grouping:   key,
			Entity:     r.Entity,
			Buckets:    r.Coverage,
			SumTraffic: r.TotalTraffic,
			SumDensity: r.Density,
			Priority:   priorities[i],
		}
		if r.Coverage > 0 {
			row.MeanTraffic = r.TotalTraffic / float64(r.Coverage)
			row.MeanDensity = r.Density / float64(r.Coverage)
		}
		rows = append(rows, row)
	}
	return rows
}
