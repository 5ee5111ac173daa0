package pipeline

import (
	"sort"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// DailyShare is one station's portion of system-wide traffic for one day.
type DailyShare struct {
	Station  types.StationID
	Date     time.Time // midnight UTC
	Entries  float64   // station's net increments summed over the day
	DayTotal float64   // all stations' net increments for the day
	Share    float64   // Entries / DayTotal
}

// DailyShares computes each station's share of total daily entries from raw
// readings. Days with zero system-wide traffic produce no rows. Output is
// sorted by date, then descending share.
func DailyShares(readings []types.Reading) []DailyShare {
	type cell struct {
		station types.StationID
		date    time.Time
	}
	perStation := make(map[cell]float64)
	perDay := make(map[time.Time]float64)

	for _, r := range readings {
		d := r.Timestamp.UTC().Truncate(24 * time.Hour)
		perStation[cell{r.Station, d}] += r.NetIncrement
		perDay[d] += r.NetIncrement
	}

	out := make([]DailyShare, 0, len(perStation))
	for c, entries := range perStation {
		total := perDay[c.date]
		if total == 0 {
			continue
		}
		out = append(out, DailyShare{
			Station:  c.station,
			Date:     c.date,
			Entries:  entries,
			DayTotal: total,
			Share:    entries / total,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Share != out[j].Share {
			return out[i].Share > out[j].Share
		}
		return out[i].Station < out[j].Station
	})
	return out
}

// TopShareCurve returns the cumulative share of total traffic carried by the
// top N stations, averaged across the days in shares. Index i holds the
// combined mean share of the i+1 highest-share stations, so curve[9] answers
// "what portion of all entries do the busiest ten stations see".
func TopShareCurve(shares []DailyShare) []float64 {
	// Mean share per station across observed days.
	sums := make(map[types.StationID]float64)
	days := make(map[types.StationID]int)
	for _, s := range shares {
		sums[s.Station] += s.Share
		days[s.Station]++
	}

	means := make([]float64, 0, len(sums))
	for station, sum := range sums {
		means = append(means, sum/float64(days[station]))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(means)))

	curve := make([]float64, len(means))
	var cum float64
	for i, m := range means {
		cum += m
		curve[i] = cum
	}
	return curve
}
