package types

import (
	"fmt"
	"time"
)

// Surrogate identifiers assigned during ingest. A device is one physical
// turnstile, factorized from its (control area, unit, subunit, station)
// composite key. A station is factorized from its (label, line group) pair.
type (
	DeviceID  int
	StationID int
	ComplexID int
)

// EntityID identifies the aggregation entity of a record. Whether it holds a
// StationID or a ComplexID is determined by the batch's GroupKey — a batch is
// always homogeneous.
type EntityID int

// GroupKey selects the aggregation entity for a pipeline run.
type GroupKey int

const (
	// GroupStation aggregates device rates per station.
	GroupStation GroupKey = iota
	// GroupComplex aggregates device rates per complex. Stations without a
	// complex mapping are dropped from complex-level output.
	GroupComplex
)

// String returns the config-file spelling of the group key.
func (k GroupKey) String() string {
	switch k {
	case GroupStation:
		return "station"
	case GroupComplex:
		return "complex"
	default:
		return fmt.Sprintf("GroupKey(%d)", int(k))
	}
}

// ParseGroupKey converts a config-file spelling into a GroupKey.
func ParseGroupKey(s string) (GroupKey, error) {
	switch s {
	case "station":
		return GroupStation, nil
	case "complex":
		return GroupComplex, nil
	default:
		return 0, fmt.Errorf("unknown grouping %q (want station or complex)", s)
	}
}

// Reading is one cleaned observation for one device: the net event count
// attributed to the interval ending at Timestamp. NetIncrement is always
// non-negative; counter resets and rollbacks are resolved upstream.
// The first reading of a device carries NetIncrement 0 — it anchors the
// device's time base and produces no rate of its own.
type Reading struct {
	Device       DeviceID
	Station      StationID
	Timestamp    time.Time // UTC, second precision
	NetIncrement float64
}

// RateRecord is one hourly-normalized rate for one device, produced by the
// interval normalizer and (after snapping) keyed to a time bucket.
type RateRecord struct {
	Device    DeviceID
	Station   StationID
	Timestamp time.Time
	Rate      float64 // events per hour
}

// AggregateRecord is one aggregated observation for one entity. For
// per-bucket records, Bucket is the start of the half-open window and
// Coverage is the number of distinct entities observed in that bucket.
// For summary records (whole-period collapse), Bucket is the zero time,
// TotalTraffic and Density are sums across buckets, and Coverage is the
// number of buckets the entity was observed in.
type AggregateRecord struct {
	Entity       EntityID
	Bucket       time.Time
	TotalTraffic float64 // events per hour, summed over the entity's devices
	Density      float64 // TotalTraffic / device count
	Coverage     int
}

// IsSummary reports whether the record is a whole-period summary row.
func (r AggregateRecord) IsSummary() bool { return r.Bucket.IsZero() }

// Mapping is the static entity topology handed to the aggregator: which
// station each device belongs to, and which complex (if any) each station
// belongs to. A station absent from StationComplex is unmapped.
type Mapping struct {
	DeviceStation  map[DeviceID]StationID
	StationComplex map[StationID]ComplexID
}

// TimeSeriesRow is one caller-facing output row of the per-entity,
// per-bucket table.
type TimeSeriesRow struct {
	Grouping GroupKey
	Entity   EntityID
	Bucket   time.Time
	Traffic  float64
	Density  float64
	Coverage int
	Priority float64
}

// SummaryRow is one caller-facing output row of the whole-period ranking
// table. Means are taken over the buckets the entity was observed in.
type SummaryRow struct {
	Grouping    GroupKey
	Entity      EntityID
	Buckets     int
	SumTraffic  float64
	MeanTraffic float64
	SumDensity  float64
	MeanDensity float64
	Priority    float64
}
