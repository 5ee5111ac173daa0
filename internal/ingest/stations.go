package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// complexKey identifies a row of the complex lookup table: the provider keys
// its remote/booth pairs to complex IDs.
type complexKey struct {
	remote string // provider UNIT
	booth  string // provider C/A
}

// ComplexLookup maps provider (unit, control area) pairs to complex IDs.
type ComplexLookup map[complexKey]types.ComplexID

// LoadComplexLookup reads the remote/booth → complex CSV. The file must
// carry remote, booth, and complex_id columns; extra columns are ignored.
func LoadComplexLookup(path string) (ComplexLookup, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open complex lookup %s: %w", path, err)
	}
	defer fh.Close()

	lookup, err := ParseComplexLookup(fh)
	if err != nil {
		return nil, fmt.Errorf("ingest: complex lookup %s: %w", path, err)
	}
	return lookup, nil
}

// ParseComplexLookup reads the lookup table from r.
func ParseComplexLookup(r io.Reader) (ComplexLookup, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range []string{"remote", "booth", "complex_id"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}

	lookup := make(ComplexLookup)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[cols["complex_id"]]))
		if err != nil {
			continue
		}
		key := complexKey{
			remote: strings.TrimSpace(row[cols["remote"]]),
			booth:  strings.TrimSpace(row[cols["booth"]]),
		}
		lookup[key] = types.ComplexID(id)
	}
	return lookup, nil
}

// BuildMapping derives the static entity topology for one run: each device's
// station, and each station's complex where the lookup covers one of the
// station's remote/booth pairs. Stations with no covered pair stay unmapped
// and are later dropped from complex-level aggregates only.
func BuildMapping(records []RawRecord, lookup ComplexLookup) types.Mapping {
	m := types.Mapping{
		DeviceStation:  make(map[types.DeviceID]types.StationID),
		StationComplex: make(map[types.StationID]types.ComplexID),
	}
	for _, r := range records {
		m.DeviceStation[r.Device] = r.Station
		if _, done := m.StationComplex[r.Station]; done {
			continue
		}
		if id, ok := lookup[complexKey{remote: r.Unit, booth: r.ControlArea}]; ok {
			m.StationComplex[r.Station] = id
		}
	}
	return m
}
