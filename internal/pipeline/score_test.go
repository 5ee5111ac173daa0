package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// agg builds a summary-shaped record with the given traffic and density.
func agg(entity int, traffic, density float64) types.AggregateRecord {
	return types.AggregateRecord{
		Entity:       types.EntityID(entity),
		TotalTraffic: traffic,
		Density:      density,
	}
}

func TestScore_MinMaxEndpoints(t *testing.T) {
	// Constant density isolates the traffic axis: component scores are
	// 0.25, 0.625, 1.0 → raws 0.25, 0.625, 1.0 → normalized 0, 0.5, 1.
	batch := []types.AggregateRecord{
		agg(1, 20, 10),
		agg(2, 50, 10),
		agg(3, 80, 10),
	}
	got, err := Score(batch, 0, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := []float64{0, 0.5, 1}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("priority[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScore_BoundedWithDistinctRaws(t *testing.T) {
	batch := []types.AggregateRecord{
		agg(1, 120, 40),
		agg(2, 300, 15),
		agg(3, 80, 80),
		agg(4, 500, 125),
		agg(5, 10, 5),
	}
	got, err := Score(batch, 0, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	var sawZero, sawOne bool
	for i, p := range got {
		if p < 0 || p > 1 {
			t.Errorf("priority[%d] = %v, outside [0,1]", i, p)
		}
		if p == 0 {
			sawZero = true
		}
		if p == 1 {
			sawOne = true
		}
	}
	if !sawZero || !sawOne {
		t.Errorf("endpoints not attained: sawZero=%v sawOne=%v", sawZero, sawOne)
	}
}

func TestScore_MultiplicativePenalty(t *testing.T) {
	// High-traffic/low-density and low-traffic/high-density must both rank
	// below an entity that is high on both axes.
	batch := []types.AggregateRecord{
		agg(1, 100, 2),   // large open station
		agg(2, 10, 100),  // small crowded station
		agg(3, 90, 90),   // high on both
		agg(4, 5, 5),     // low on both
	}
	got, err := Score(batch, 0, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got[2] != 1 {
		t.Errorf("both-axes entity priority = %v, want 1", got[2])
	}
	if got[0] >= got[2] || got[1] >= got[2] {
		t.Errorf("single-axis entities (%v, %v) should rank below %v", got[0], got[1], got[2])
	}
}

func TestScore_AdditiveWeightsSoftenPenalty(t *testing.T) {
	batch := []types.AggregateRecord{
		agg(1, 100, 0), // density score 0 under pure multiplication
		agg(2, 50, 50),
		agg(3, 100, 100),
	}

	pure, err := Score(batch, 0, 0)
	if err != nil {
		t.Fatalf("Score pure: %v", err)
	}
	weighted, err := Score(batch, 0, 0.5)
	if err != nil {
		t.Fatalf("Score weighted: %v", err)
	}

	// With zero density the pure product is 0 regardless of traffic.
	if pure[0] != 0 {
		t.Errorf("pure priority for zero-density entity = %v, want 0", pure[0])
	}
	// The density weight lets the raw score reflect traffic again; entity 1
	// now beats the mid entity on the raw axis only if the offset helps it —
	// at minimum its raw is no longer forced to the batch minimum by density
	// alone. Entity 2 had raw 0.25 pure; entity 1 had raw 0.
	// Weighted: e1 raw = 1.0 * 0.5 = 0.5, e2 raw = 0.5 * 1.0 = 0.5.
	if !almostEqual(weighted[0], weighted[1], 1e-9) {
		t.Errorf("weighted priorities: e1 = %v, e2 = %v, want equal", weighted[0], weighted[1])
	}
}

func TestScore_DegenerateBatch(t *testing.T) {
	tests := []struct {
		name  string
		batch []types.AggregateRecord
	}{
		{
			name: "all raws equal",
			batch: []types.AggregateRecord{
				agg(1, 40, 40),
				agg(2, 40, 40),
				agg(3, 40, 40),
			},
		},
		{
			name:  "single record",
			batch: []types.AggregateRecord{agg(1, 100, 50)},
		},
		{
			name: "all zero",
			batch: []types.AggregateRecord{
				agg(1, 0, 0),
				agg(2, 0, 0),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.batch, 0, 0)
			if got != nil {
				t.Errorf("got %d priorities, want none", len(got))
			}
			var degErr *DegenerateBatchError
			if !errors.As(err, &degErr) {
				t.Fatalf("err = %v, want *DegenerateBatchError", err)
			}
			if degErr.Size != len(tt.batch) {
				t.Errorf("Size = %d, want %d", degErr.Size, len(tt.batch))
			}
		})
	}
}

func TestScore_EmptyBatch(t *testing.T) {
	got, err := Score(nil, 0, 0)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if got != nil {
		t.Errorf("empty batch priorities = %v, want nil", got)
	}
}

func TestScore_NeverNaN(t *testing.T) {
	batch := []types.AggregateRecord{
		agg(1, 0, 10),
		agg(2, 100, 0),
		agg(3, 100, 10),
	}
	got, err := Score(batch, 0, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for i, p := range got {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Errorf("priority[%d] = %v", i, p)
		}
	}
}
