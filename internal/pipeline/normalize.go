package pipeline

import (
	"sort"
	"strconv"
	"sync"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// Normalize converts cleaned readings into hourly-normalized rate records.
//
// Readings are grouped per device and sorted by timestamp; each consecutive
// pair yields rate = NetIncrement / elapsed hours, attributed at the later
// reading's timestamp. The first reading of a device anchors its time base
// and produces no rate. Zero-length intervals (duplicate timestamps) and
// negative increments are dropped and recorded in rep. Long gaps pass
// through unmodified — the caller receives the true average rate over the
// observed gap, with no interpolation.
//
// workers > 1 shards the per-device work; devices never share state and each
// worker keeps a local warning report, so the only synchronization is the
// final merge.
func Normalize(readings []types.Reading, workers int, rep *Report) []types.RateRecord {
	byDevice := groupByDevice(readings)
	if len(byDevice) == 0 {
		return nil
	}

	devices := make([]types.DeviceID, 0, len(byDevice))
	for d := range byDevice {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	if workers < 1 {
		workers = 1
	}
	if workers > len(devices) {
		workers = len(devices)
	}

	shards := make([][]types.RateRecord, workers)
	reports := make([]*Report, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		reports[w] = NewReport()
		go func(w int) {
			defer wg.Done()
			var out []types.RateRecord
			for i := w; i < len(devices); i += workers {
				out = append(out, normalizeDevice(byDevice[devices[i]], reports[w])...)
			}
			shards[w] = out
		}(w)
	}
	wg.Wait()

	var merged []types.RateRecord
	for w, s := range shards {
		merged = append(merged, s...)
		rep.Merge(reports[w])
	}
	// Deterministic output regardless of worker count.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Device != merged[j].Device {
			return merged[i].Device < merged[j].Device
		}
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// normalizeDevice produces the rate records for one device's readings.
func normalizeDevice(readings []types.Reading, rep *Report) []types.RateRecord {
	if len(readings) < 2 {
		if len(readings) == 1 {
			rep.Add(WarnInsufficientData, deviceExample(readings[0].Device))
		}
		return nil
	}

	sorted := make([]types.Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]types.RateRecord, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]

		deltaHours := cur.Timestamp.Sub(prev.Timestamp).Hours()
		if deltaHours == 0 {
			rep.Add(WarnZeroDelta, deviceExample(cur.Device))
			continue
		}
		if cur.NetIncrement < 0 {
			rep.Add(WarnMalformedReading, deviceExample(cur.Device))
			continue
		}

		out = append(out, types.RateRecord{
			Device:    cur.Device,
			Station:   cur.Station,
			Timestamp: cur.Timestamp,
			Rate:      cur.NetIncrement / deltaHours,
		})
	}

	if len(out) == 0 {
		rep.Add(WarnInsufficientData, deviceExample(sorted[0].Device))
	}
	return out
}

// DropZeroRates removes records whose rate is exactly zero. Optional policy;
// by default zero rates are retained as real observations.
func DropZeroRates(records []types.RateRecord) []types.RateRecord {
	out := make([]types.RateRecord, 0, len(records))
	for _, r := range records {
		if r.Rate != 0 {
			out = append(out, r)
		}
	}
	return out
}

func groupByDevice(readings []types.Reading) map[types.DeviceID][]types.Reading {
	byDevice := make(map[types.DeviceID][]types.Reading)
	for _, r := range readings {
		byDevice[r.Device] = append(byDevice[r.Device], r)
	}
	return byDevice
}

func deviceExample(d types.DeviceID) string {
	return "device:" + strconv.Itoa(int(d))
}
