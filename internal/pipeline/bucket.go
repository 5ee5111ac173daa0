package pipeline

import (
	"sort"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// Bucket snaps each rate record onto a uniform time grid at the given
// resolution and returns a new collection sorted by (device, bucket).
//
// Snapping uses round-half-up at the resolution granularity: a record exactly
// halfway between two grid points lands on the later one. Rates are preserved
// under snapping because a rate is already an hourly-normalized quantity
// independent of the exact original timestamp. Multiple records landing in
// the same (device, bucket) pair are summed; correct upstream cleaning makes
// that case rare but not impossible.
func Bucket(records []types.RateRecord, resolution time.Duration) []types.RateRecord {
	if resolution <= 0 || len(records) == 0 {
		return records
	}

	type key struct {
		device types.DeviceID
		bucket time.Time
	}
	merged := make(map[key]types.RateRecord, len(records))
	for _, r := range records {
		b := Snap(r.Timestamp, resolution)
		k := key{r.Device, b}
		if prev, ok := merged[k]; ok {
			prev.Rate += r.Rate
			merged[k] = prev
			continue
		}
		merged[k] = types.RateRecord{
			Device:    r.Device,
			Station:   r.Station,
			Timestamp: b,
			Rate:      r.Rate,
		}
	}

	out := make([]types.RateRecord, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Snap rounds t to the nearest multiple of resolution, half up, in UTC.
func Snap(t time.Time, resolution time.Duration) time.Time {
	res := resolution.Nanoseconds()
	ns := t.UnixNano()

	rem := ns % res
	if rem < 0 {
		rem += res
	}
	base := ns - rem
	if rem*2 >= res {
		base += res
	}
	return time.Unix(0, base).UTC()
}
