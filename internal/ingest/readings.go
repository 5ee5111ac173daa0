package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stationpulse/stationpulse/pkg/types"
)

// RawRecord is one parsed provider row: a cumulative counter observation for
// one device, before cleaning.
type RawRecord struct {
	ControlArea  string
	Unit         string
	Subunit      string
	StationLabel string
	LineGroup    string
	Timestamp    time.Time
	Entries      int64 // cumulative
	Exits        int64 // cumulative

	Device  types.DeviceID
	Station types.StationID
}

// Columns the provider files must carry, by canonical name.
var requiredColumns = []string{"C/A", "UNIT", "SCP", "STATION", "LINENAME", "DATE", "TIME", "ENTRIES", "EXITS"}

// Factorizer assigns compact surrogate IDs to devices and stations in order
// of first appearance, mirroring the provider's composite keys: a device is
// (control area, unit, subunit, station label), a station is
// (station label, line group).
type Factorizer struct {
	devices  map[string]types.DeviceID
	stations map[string]types.StationID
}

// NewFactorizer returns an empty Factorizer.
func NewFactorizer() *Factorizer {
	return &Factorizer{
		devices:  make(map[string]types.DeviceID),
		stations: make(map[string]types.StationID),
	}
}

// Device returns the surrogate ID for the composite device key, assigning
// the next free ID on first sight.
func (f *Factorizer) Device(controlArea, unit, subunit, station string) types.DeviceID {
	key := controlArea + "\x00" + unit + "\x00" + subunit + "\x00" + station
	if id, ok := f.devices[key]; ok {
		return id
	}
	id := types.DeviceID(len(f.devices))
	f.devices[key] = id
	return id
}

// Station returns the surrogate ID for the (label, line group) pair.
func (f *Factorizer) Station(label, lineGroup string) types.StationID {
	key := label + "\x00" + lineGroup
	if id, ok := f.stations[key]; ok {
		return id
	}
	id := types.StationID(len(f.stations))
	f.stations[key] = id
	return id
}

// DeviceCount returns how many distinct devices have been seen.
func (f *Factorizer) DeviceCount() int { return len(f.devices) }

// StationCount returns how many distinct stations have been seen.
func (f *Factorizer) StationCount() int { return len(f.stations) }

// ParseFile reads one provider file and appends its rows. The Factorizer is
// shared across files so surrogate IDs stay stable for a whole run.
func ParseFile(path string, f *Factorizer) ([]RawRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer fh.Close()

	records, err := Parse(fh, f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return records, nil
}

// Parse reads provider rows from r. Header column names are matched after
// trimming the provider's stray padding. Rows with unparseable timestamps or
// counters are skipped, not fatal: one bad row must not discard a week.
func Parse(r io.Reader, f *Factorizer) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}

	var out []RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		field := func(name string) string { return strings.TrimSpace(row[cols[name]]) }

		ts, err := time.Parse("01/02/2006 15:04:05", field("DATE")+" "+field("TIME"))
		if err != nil {
			continue
		}
		entries, err := strconv.ParseInt(field("ENTRIES"), 10, 64)
		if err != nil {
			continue
		}
		exits, err := strconv.ParseInt(field("EXITS"), 10, 64)
		if err != nil {
			continue
		}

		rec := RawRecord{
			ControlArea:  field("C/A"),
			Unit:         field("UNIT"),
			Subunit:      field("SCP"),
			StationLabel: field("STATION"),
			LineGroup:    field("LINENAME"),
			Timestamp:    ts.UTC(),
			Entries:      entries,
			Exits:        exits,
		}
		rec.Device = f.Device(rec.ControlArea, rec.Unit, rec.Subunit, rec.StationLabel)
		rec.Station = f.Station(rec.StationLabel, rec.LineGroup)
		out = append(out, rec)
	}

	return out, nil
}

// ParseGlob parses every file matching pattern into one record set, sorted
// by (station, device, timestamp) so downstream grouping sees each device's
// rows chronologically.
func ParseGlob(pattern string) ([]RawRecord, *Factorizer, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("ingest: no files match %q", pattern)
	}

	f := NewFactorizer()
	var all []RawRecord
	for _, p := range paths {
		records, err := ParseFile(p, f)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, records...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Station != all[j].Station {
			return all[i].Station < all[j].Station
		}
		if all[i].Device != all[j].Device {
			return all[i].Device < all[j].Device
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, f, nil
}
