package pipeline

import (
	"testing"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

func rate(d int, ts time.Time, r float64) types.RateRecord {
	return types.RateRecord{
		Device:    types.DeviceID(d),
		Station:   types.StationID(d / 10),
		Timestamp: ts,
		Rate:      r,
	}
}

func TestSnap_RoundHalfUp(t *testing.T) {
	tests := []struct {
		name       string
		offset     time.Duration
		resolution time.Duration
		want       time.Duration
	}{
		{"already aligned", 0, time.Hour, 0},
		{"just past boundary", time.Minute, time.Hour, 0},
		{"just before half", 29 * time.Minute, time.Hour, 0},
		{"exactly half rounds up", 30 * time.Minute, time.Hour, time.Hour},
		{"past half", 31 * time.Minute, time.Hour, time.Hour},
		{"two hour grid", 59 * time.Minute, 2 * time.Hour, 0},
		{"two hour grid half", time.Hour, 2 * time.Hour, 2 * time.Hour},
		{"minute grid", 29 * time.Second, time.Minute, 0},
		{"minute grid half", 30 * time.Second, time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Snap(baseTime.Add(tt.offset), tt.resolution)
			want := baseTime.Add(tt.want)
			if !got.Equal(want) {
				t.Errorf("Snap(base+%v, %v) = %v, want %v", tt.offset, tt.resolution, got, want)
			}
		})
	}
}

func TestBucket_CollapsesUnalignedTimestamps(t *testing.T) {
	// Two devices report near the same hour at provider-skewed offsets;
	// both land in the same bucket with rates untouched.
	records := []types.RateRecord{
		rate(1, baseTime.Add(4*time.Minute), 50),
		rate(2, baseTime.Add(-7*time.Minute), 30),
	}
	got := Bucket(records, time.Hour)

	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	for _, r := range got {
		if !r.Timestamp.Equal(baseTime) {
			t.Errorf("device %d bucket = %v, want %v", r.Device, r.Timestamp, baseTime)
		}
	}
	if got[0].Rate != 50 || got[1].Rate != 30 {
		t.Errorf("rates = %v, %v — snapping must not change rates", got[0].Rate, got[1].Rate)
	}
}

func TestBucket_SameDeviceSameBucketSummed(t *testing.T) {
	records := []types.RateRecord{
		rate(1, baseTime.Add(5*time.Minute), 20),
		rate(1, baseTime.Add(20*time.Minute), 10),
	}
	got := Bucket(records, time.Hour)

	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if !almostEqual(got[0].Rate, 30, 1e-9) {
		t.Errorf("summed rate = %v, want 30", got[0].Rate)
	}
}

func TestBucket_SortedByDeviceThenBucket(t *testing.T) {
	records := []types.RateRecord{
		rate(2, baseTime.Add(time.Hour), 1),
		rate(1, baseTime.Add(2*time.Hour), 2),
		rate(1, baseTime, 3),
	}
	got := Bucket(records, time.Hour)

	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	if got[0].Device != 1 || got[1].Device != 1 || got[2].Device != 2 {
		t.Errorf("device order = %d,%d,%d, want 1,1,2", got[0].Device, got[1].Device, got[2].Device)
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Errorf("buckets for device 1 not ascending")
	}
}
