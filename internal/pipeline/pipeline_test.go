package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// fixtureReadings builds three stations with distinct traffic profiles over
// a four-hour window: station 1 is busy with two devices, station 2 is a
// quiet single-device stop, station 3 sits in between.
func fixtureReadings() []types.Reading {
	mk := func(device, station, hour int, net float64) types.Reading {
		return types.Reading{
			Device:       types.DeviceID(device),
			Station:      types.StationID(station),
			Timestamp:    baseTime.Add(time.Duration(hour) * time.Hour),
			NetIncrement: net,
		}
	}
	var readings []types.Reading
	for h := 0; h <= 4; h++ {
		net := float64(h) // 0 for the anchor readings
		readings = append(readings,
			mk(11, 1, h, net*400),
			mk(12, 1, h, net*350),
			mk(21, 2, h, net*20),
			mk(31, 3, h, net*120),
		)
	}
	return readings
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := Run(fixtureReadings(), types.Mapping{}, Config{
		Resolution: time.Hour,
		Grouping:   types.GroupStation,
		Workers:    2,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 3 stations x 4 buckets.
	if len(res.TimeSeries) != 12 {
		t.Fatalf("time-series rows = %d, want 12", len(res.TimeSeries))
	}
	if len(res.Summary) != 3 {
		t.Fatalf("summary rows = %d, want 3", len(res.Summary))
	}

	for _, row := range res.TimeSeries {
		if row.Priority < 0 || row.Priority > 1 {
			t.Errorf("entity %d bucket %v: priority %v outside [0,1]", row.Entity, row.Bucket, row.Priority)
		}
		if row.Coverage != 3 {
			t.Errorf("entity %d bucket %v: coverage = %d, want 3", row.Entity, row.Bucket, row.Coverage)
		}
	}

	// Station 1 dominates both axes, so it must top the summary ranking.
	var top types.SummaryRow
	for _, row := range res.Summary {
		if row.Priority == 1 {
			top = row
		}
	}
	if top.Entity != 1 {
		t.Errorf("top-ranked entity = %d, want 1", top.Entity)
	}

	if res.Stats.ReadingsIn != 20 || res.Stats.DevicesSeen != 4 {
		t.Errorf("stats = %+v, want 20 readings over 4 devices", res.Stats)
	}
	if res.Stats.RateIntervals != 16 {
		t.Errorf("rate intervals = %d, want 16", res.Stats.RateIntervals)
	}
}

func TestRun_ProducesDailyShares(t *testing.T) {
	res, err := Run(fixtureReadings(), types.Mapping{}, Config{
		Resolution: time.Hour,
		Grouping:   types.GroupStation,
		Workers:    1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// All fixture readings fall on one day, one row per station.
	if len(res.Daily) != 3 {
		t.Fatalf("daily rows = %d, want 3", len(res.Daily))
	}
	if res.Stats.DailyShareRows != 3 {
		t.Errorf("stats daily rows = %d, want 3", res.Stats.DailyShareRows)
	}

	var total float64
	for _, s := range res.Daily {
		total += s.Share
	}
	if !almostEqual(total, 1, 1e-9) {
		t.Errorf("shares sum to %v, want 1", total)
	}

	// Sorted by descending share within the day, busiest station first.
	if res.Daily[0].Station != 1 {
		t.Errorf("top daily station = %d, want 1", res.Daily[0].Station)
	}
	want := 7500.0 / 8900.0
	if !almostEqual(res.Daily[0].Share, want, 1e-9) {
		t.Errorf("top daily share = %v, want %v", res.Daily[0].Share, want)
	}
}

func TestRun_SummaryEqualsBucketSums(t *testing.T) {
	res, err := Run(fixtureReadings(), types.Mapping{}, Config{
		Resolution: time.Hour,
		Grouping:   types.GroupStation,
		Workers:    1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sumTraffic := map[types.EntityID]float64{}
	sumDensity := map[types.EntityID]float64{}
	for _, row := range res.TimeSeries {
		sumTraffic[row.Entity] += row.Traffic
		sumDensity[row.Entity] += row.Density
	}
	for _, row := range res.Summary {
		if !almostEqual(row.SumTraffic, sumTraffic[row.Entity], 1e-9) {
			t.Errorf("entity %d summary traffic = %v, want %v", row.Entity, row.SumTraffic, sumTraffic[row.Entity])
		}
		if !almostEqual(row.SumDensity, sumDensity[row.Entity], 1e-9) {
			t.Errorf("entity %d summary density = %v, want %v", row.Entity, row.SumDensity, sumDensity[row.Entity])
		}
		if !almostEqual(row.MeanTraffic, row.SumTraffic/float64(row.Buckets), 1e-9) {
			t.Errorf("entity %d mean traffic = %v, inconsistent with sum/%d", row.Entity, row.MeanTraffic, row.Buckets)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := Config{Resolution: time.Hour, Grouping: types.GroupStation, Workers: 3}
	a, err := Run(fixtureReadings(), types.Mapping{}, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := Run(fixtureReadings(), types.Mapping{}, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(a.TimeSeries) != len(b.TimeSeries) {
		t.Fatalf("row counts differ: %d vs %d", len(a.TimeSeries), len(b.TimeSeries))
	}
	for i := range a.TimeSeries {
		if a.TimeSeries[i] != b.TimeSeries[i] {
			t.Errorf("row %d differs across runs: %+v vs %+v", i, a.TimeSeries[i], b.TimeSeries[i])
		}
	}
}

func TestRun_DegenerateBatchFailsRun(t *testing.T) {
	// Two identical stations produce identical raw priorities.
	mk := func(device, station, hour int, net float64) types.Reading {
		return types.Reading{
			Device:       types.DeviceID(device),
			Station:      types.StationID(station),
			Timestamp:    baseTime.Add(time.Duration(hour) * time.Hour),
			NetIncrement: net,
		}
	}
	readings := []types.Reading{
		mk(11, 1, 0, 0), mk(11, 1, 1, 100),
		mk(21, 2, 0, 0), mk(21, 2, 1, 100),
	}

	res, err := Run(readings, types.Mapping{}, Config{
		Resolution: time.Hour,
		Grouping:   types.GroupStation,
	})
	var degErr *DegenerateBatchError
	if !errors.As(err, &degErr) {
		t.Fatalf("err = %v, want *DegenerateBatchError", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil on degenerate batch", res)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	res, err := Run(nil, types.Mapping{}, Config{
		Resolution: time.Hour,
		Grouping:   types.GroupStation,
	})
	if err != nil {
		t.Fatalf("Run on empty input: %v", err)
	}
	if len(res.TimeSeries) != 0 || len(res.Summary) != 0 {
		t.Errorf("empty input produced rows: %+v", res)
	}
}
