package pipeline

import (
	"fmt"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// DegenerateBatchError reports a scoring batch whose raw priority values are
// all equal. Min-max normalization is undefined for such a batch, so scoring
// fails rather than emitting NaN or Inf.
type DegenerateBatchError struct {
	// Size is the number of records in the batch.
	Size int
	// Raw is the shared raw priority value.
	Raw float64
}

func (e *DegenerateBatchError) Error() string {
	return fmt.Sprintf("degenerate scoring batch: all %d raw priorities equal %g, min-max normalization undefined", e.Size, e.Raw)
}

// Score computes the normalized [0,1] priority for one batch of aggregate
// records. The batch may hold per-bucket records or whole-period summaries;
// the scorer does not distinguish. Priorities are returned index-aligned
// with the batch and are comparable only within it.
//
// For each record:
//
//	trafficScore = TotalTraffic / max(TotalTraffic) + trafficWeight
//	densityScore = Density      / max(Density)      + densityWeight
//	raw          = trafficScore * densityScore
//
// raw is then min-max normalized over the batch, so the lowest record scores
// exactly 0 and the highest exactly 1. The multiplicative combination is
// deliberate: an entity must be high on both axes to rank highly. The
// additive weights (default 0) soften that penalty when a caller wants a
// low component score not to zero out the product.
//
// An empty batch returns nil with no error — there is nothing to rank. A
// batch whose raw values are all equal (including any single-record batch)
// returns a *DegenerateBatchError.
func Score(batch []types.AggregateRecord, trafficWeight, densityWeight float64) ([]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	var maxTraffic, maxDensity float64
	for _, r := range batch {
		if r.TotalTraffic > maxTraffic {
			maxTraffic = r.TotalTraffic
		}
		if r.Density > maxDensity {
			maxDensity = r.Density
		}
	}

	raw := make([]float64, len(batch))
	for i, r := range batch {
		trafficScore := trafficWeight
		if maxTraffic > 0 {
			trafficScore += r.TotalTraffic / maxTraffic
		}
		densityScore := densityWeight
		if maxDensity > 0 {
			densityScore += r.Density / maxDensity
		}
		raw[i] = trafficScore * densityScore
	}

	minRaw, maxRaw := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < minRaw {
			minRaw = v
		}
		if v > maxRaw {
			maxRaw = v
		}
	}

	if maxRaw == minRaw {
		return nil, &DegenerateBatchError{Size: len(batch), Raw: maxRaw}
	}

	priorities := make([]float64, len(raw))
	span := maxRaw - minRaw
	for i, v := range raw {
		priorities[i] = (v - minRaw) / span
	}
	return priorities, nil
}
