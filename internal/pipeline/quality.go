package pipeline

import (
	"log/slog"
	"sync"
)

// Warning kind constants. Each names one non-fatal data-quality condition
// detected during a run.
const (
	// WarnZeroDelta: two readings for one device share a timestamp; no rate
	// can be attributed to a zero-length interval.
	WarnZeroDelta = "zero_delta_interval"

	// WarnMalformedReading: a reading carries a negative net increment,
	// which the upstream cleaner should have removed.
	WarnMalformedReading = "malformed_reading"

	// WarnUnmappedStation: a station has no complex mapping while
	// complex-level aggregation was requested.
	WarnUnmappedStation = "unmapped_station"

	// WarnInsufficientData: a device yielded zero valid intervals.
	WarnInsufficientData = "insufficient_data"

	// WarnLowCoverage: a bucket was observed from fewer distinct entities
	// than the configured minimum and was filtered out.
	WarnLowCoverage = "low_coverage_bucket"
)

// maxExamples caps how many example IDs are retained per warning kind.
const maxExamples = 3

// warningInfo holds the aggregated state for one warning kind.
type warningInfo struct {
	count    int
	examples []string
}

// Report collects data-quality warnings across a run and logs one
// consolidated line per kind. It is safe for concurrent use; sharded stages
// keep per-worker reports and fold them in with Merge.
type Report struct {
	mu       sync.Mutex
	warnings map[string]*warningInfo
}

// NewReport returns an empty Report.
func NewReport() *Report {
	return &Report{warnings: make(map[string]*warningInfo)}
}

// Add records one occurrence of kind, keeping exampleID if fewer than
// maxExamples are stored.
func (r *Report) Add(kind, exampleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.warnings[kind]
	if info == nil {
		info = &warningInfo{examples: make([]string, 0, maxExamples)}
		r.warnings[kind] = info
	}
	info.count++
	if len(info.examples) < maxExamples {
		info.examples = append(info.examples, exampleID)
	}
}

// Count returns how many occurrences of kind were recorded.
func (r *Report) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info := r.warnings[kind]; info != nil {
		return info.count
	}
	return 0
}

// Merge folds other's warnings into r. Used when shards keep local reports.
func (r *Report) Merge(other *Report) {
	other.mu.Lock()
	defer other.mu.Unlock()
	for kind, info := range other.warnings {
		r.mu.Lock()
		dst := r.warnings[kind]
		if dst == nil {
			dst = &warningInfo{examples: make([]string, 0, maxExamples)}
			r.warnings[kind] = dst
		}
		dst.count += info.count
		for _, ex := range info.examples {
			if len(dst.examples) < maxExamples {
				dst.examples = append(dst.examples, ex)
			}
		}
		r.mu.Unlock()
	}
}

// LogAll emits one consolidated slog line per recorded warning kind.
func (r *Report) LogAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, info := range r.warnings {
		slog.Warn("data quality: "+describe(kind),
			"kind", kind,
			"count", info.count,
			"examples", info.examples,
		)
	}
}

// describe maps a warning kind to its human-readable description.
func describe(kind string) string {
	switch kind {
	case WarnZeroDelta:
		return "duplicate timestamps for a device, interval dropped"
	case WarnMalformedReading:
		return "negative net increment from upstream cleaner, interval dropped"
	case WarnUnmappedStation:
		return "station has no complex mapping, dropped from complex output"
	case WarnInsufficientData:
		return "device produced no valid rate interval"
	case WarnLowCoverage:
		return "bucket below minimum entity coverage, filtered"
	default:
		return "unknown condition"
	}
}
