package pipeline

import (
	"sort"
	"strconv"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// Aggregate sums bucketed per-device rates into per-entity, per-bucket
// records under the given grouping key.
//
// For every (entity, bucket):
//
//	TotalTraffic = Σ rate over the entity's devices in the bucket
//	Density      = TotalTraffic / device count
//
// The device count is the number of distinct devices ever observed for the
// entity across the whole run, not per bucket, so density stays comparable
// when an individual turnstile misses a reporting window. An entity with no
// observed devices is excluded rather than reported with density zero.
//
// Under GroupComplex, stations absent from mapping.StationComplex are
// dropped and recorded in rep; they remain available at station level.
// Coverage on each record is the number of distinct entities observed in
// that record's bucket, so callers can filter sparse windows.
func Aggregate(records []types.RateRecord, mapping types.Mapping, key types.GroupKey, rep *Report) []types.AggregateRecord {
	type cell struct {
		entity types.EntityID
		bucket time.Time
	}

	traffic := make(map[cell]float64)
	devices := make(map[types.EntityID]map[types.DeviceID]struct{})
	coverage := make(map[time.Time]map[types.EntityID]struct{})

	for _, r := range records {
		entity, ok := resolveEntity(r.Station, mapping, key, rep)
		if !ok {
			continue
		}

		traffic[cell{entity, r.Timestamp}] += r.Rate

		if devices[entity] == nil {
			devices[entity] = make(map[types.DeviceID]struct{})
		}
		devices[entity][r.Device] = struct{}{}

		if coverage[r.Timestamp] == nil {
			coverage[r.Timestamp] = make(map[types.EntityID]struct{})
		}
		coverage[r.Timestamp][entity] = struct{}{}
	}

	out := make([]types.AggregateRecord, 0, len(traffic))
	for c, total := range traffic {
		count := len(devices[c.entity])
		if count == 0 {
			continue
		}
		out = append(out, types.AggregateRecord{
			Entity:       c.entity,
			Bucket:       c.bucket,
			TotalTraffic: total,
			Density:      total / float64(count),
			Coverage:     len(coverage[c.bucket]),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out
}

// resolveEntity maps a station to the aggregation entity for the grouping key.
func resolveEntity(station types.StationID, mapping types.Mapping, key types.GroupKey, rep *Report) (types.EntityID, bool) {
	switch key {
	case types.GroupComplex:
		complexID, ok := mapping.StationComplex[station]
		if !ok {
			rep.Add(WarnUnmappedStation, "station:"+strconv.Itoa(int(station)))
			return 0, false
		}
		return types.EntityID(complexID), true
	default:
		return types.EntityID(station), true
	}
}

// FilterCoverage drops per-bucket records observed from fewer than
// minCoverage distinct entities. minCoverage <= 0 keeps everything.
func FilterCoverage(records []types.AggregateRecord, minCoverage int, rep *Report) []types.AggregateRecord {
	if minCoverage <= 0 {
		return records
	}
	out := make([]types.AggregateRecord, 0, len(records))
	for _, r := range records {
		if r.Coverage < minCoverage {
			rep.Add(WarnLowCoverage, r.Bucket.UTC().Format(time.RFC3339))
			continue
		}
		out = append(out, r)
	}
	return out
}

// Summarize collapses all buckets per entity into a single record: traffic
// and density are summed over the observed range, and Coverage carries the
// number of buckets the entity appeared in. Summary records have a zero
// Bucket and feed the whole-period ranking view.
func Summarize(records []types.AggregateRecord) []types.AggregateRecord {
	type sums struct {
		traffic float64
		density float64
		buckets int
	}
	byEntity := make(map[types.EntityID]*sums)
	for _, r := range records {
		s := byEntity[r.Entity]
		if s == nil {
			s = &sums{}
			byEntity[r.Entity] = s
		}
		s.traffic += r.TotalTraffic
		s.density += r.Density
		s.buckets++
	}

	out := make([]types.AggregateRecord, 0, len(byEntity))
	for entity, s := range byEntity {
		out = append(out, types.AggregateRecord{
			Entity:       entity,
			TotalTraffic: s.traffic,
			Density:      s.density,
			Coverage:     s.buckets,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}
