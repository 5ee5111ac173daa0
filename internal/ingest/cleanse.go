package ingest

import (
	"sort"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// DefaultMaxFieldDelta is the largest plausible per-interval count for one
// counter field. More than one event every two seconds over a four-hour
// reporting window points at a glitching counter, not riders.
const DefaultMaxFieldDelta int64 = 7200

// Cleanse converts cumulative counter observations into cleaned readings
// with per-interval net increments.
//
// Per device, in timestamp order, each observation's net entries and net
// exits are the deltas from the previous observation. An observation is
// dropped when either delta is negative (counter reset or a counter running
// backwards) or exceeds maxFieldDelta. The surviving observation's
// NetIncrement is net entries + net exits — total traffic through the
// device. The first observation of each device is kept with NetIncrement 0;
// it anchors the device's time base for the normalizer.
//
// maxFieldDelta <= 0 selects DefaultMaxFieldDelta.
func Cleanse(records []RawRecord, maxFieldDelta int64) []types.Reading {
	if maxFieldDelta <= 0 {
		maxFieldDelta = DefaultMaxFieldDelta
	}

	byDevice := make(map[types.DeviceID][]RawRecord)
	for _, r := range records {
		byDevice[r.Device] = append(byDevice[r.Device], r)
	}

	devices := make([]types.DeviceID, 0, len(byDevice))
	for d := range byDevice {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	var out []types.Reading
	for _, d := range devices {
		rows := byDevice[d]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

		out = append(out, types.Reading{
			Device:    rows[0].Device,
			Station:   rows[0].Station,
			Timestamp: rows[0].Timestamp,
		})
		for i := 1; i < len(rows); i++ {
			netEntries := rows[i].Entries - rows[i-1].Entries
			netExits := rows[i].Exits - rows[i-1].Exits
			if netEntries < 0 || netExits < 0 ||
				netEntries > maxFieldDelta || netExits > maxFieldDelta {
				continue
			}
			out = append(out, types.Reading{
				Device:       rows[i].Device,
				Station:      rows[i].Station,
				Timestamp:    rows[i].Timestamp,
				NetIncrement: float64(netEntries + netExits),
			})
		}
	}
	return out
}
