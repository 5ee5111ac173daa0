package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// Filter is one parsed output-selection condition of the form
// "field operator value", for example "priority >= 0.8" or "density > 120".
//
// Supported fields: traffic, density, priority, coverage.
// Supported operators: > >= < <= ==
type Filter struct {
	field     string
	op        string
	threshold float64
}

// ParseFilter parses a condition expression into a Filter.
func ParseFilter(expr string) (Filter, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return Filter{}, fmt.Errorf("filter %q: want \"field op value\"", expr)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "traffic", "density", "priority", "coverage":
	default:
		return Filter{}, fmt.Errorf("filter %q: unknown field %q", expr, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return Filter{}, fmt.Errorf("filter %q: unknown operator %q", expr, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return Filter{}, fmt.Errorf("filter %q: value: %w", expr, err)
	}
	return Filter{field: field, op: op, threshold: threshold}, nil
}

// ParseFilters parses a list of expressions, failing on the first bad one.
func ParseFilters(exprs []string) ([]Filter, error) {
	filters := make([]Filter, 0, len(exprs))
	for _, e := range exprs {
		f, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// MatchTimeSeries reports whether the row satisfies the condition.
func (f Filter) MatchTimeSeries(row types.TimeSeriesRow) bool {
	var v float64
	switch f.field {
	case "traffic":
		v = row.Traffic
	case "density":
		v = row.Density
	case "priority":
		v = row.Priority
	case "coverage":
		v = float64(row.Coverage)
	}
	return compare(v, f.op, f.threshold)
}

// MatchSummary reports whether the summary row satisfies the condition.
// traffic and density compare against the whole-period sums; coverage
// compares against the bucket count.
func (f Filter) MatchSummary(row types.SummaryRow) bool {
	var v float64
	switch f.field {
	case "traffic":
		v = row.SumTraffic
	case "density":
		v = row.SumDensity
	case "priority":
		v = row.Priority
	case "coverage":
		v = float64(row.Buckets)
	}
	return compare(v, f.op, f.threshold)
}

// SelectTimeSeries returns the rows satisfying every filter.
func SelectTimeSeries(rows []types.TimeSeriesRow, filters []Filter) []types.TimeSeriesRow {
	if len(filters) == 0 {
		return rows
	}
	out := make([]types.TimeSeriesRow, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, f := range filters {
			if !f.MatchTimeSeries(row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// SelectSummary returns the summary rows satisfying every filter.
func SelectSummary(rows []types.SummaryRow, filters []Filter) []types.SummaryRow {
	if len(filters) == 0 {
		return rows
	}
	out := make([]types.SummaryRow, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, f := range filters {
			if !f.MatchSummary(row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// compare applies a comparison operator to two float64 values.
func compare(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
