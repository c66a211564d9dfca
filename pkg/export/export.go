// Package export writes the canonical set in third-party import formats.
package export

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/record"
)

// KmToMiles converts kilometres to statute miles.
const KmToMiles = 1 / 1.6094

//go:embed formats/*.yaml
var formatFiles embed.FS

// ErrUnknownFormat is returned for a format with no column map.
var ErrUnknownFormat = errors.New("unrecognized export format")

// Column maps one output column to a named leg field.
type Column struct {
	Name  string `yaml:"name"`
	Field string `yaml:"field"`
}

// Format is an output layout.
type Format struct {
	Name    string   `yaml:"format"`
	Columns []Column `yaml:"columns"`
}

// Lookups from flight log vocabulary to each format's codes. Unknown values
// pass through unchanged.
var (
	classOpenFlights  = map[string]string{"First": "F", "Business": "C", "EconomyPlus": "P", "Economy": "Y"}
	seatOpenFlights   = map[string]string{"Window": "W", "Middle": "M", "Aisle": "A"}
	reasonOpenFlights = map[string]string{"Business": "B", "Personal": "L", "Crew": "C", "Other": "O"}

	classMyFlightPath  = map[string]string{"Economy": "Y", "EconomyPlus": "W", "Business": "J", "First": "F", "Premium First": "R", "Private": "X"}
	reasonMyFlightPath = map[string]string{"Business": "business", "Personal": "leisure", "Crew": "crew", "Other": ""}
)

var fields = map[string]func(l record.FlightLeg) string{
	"blank":           func(record.FlightLeg) string { return "" },
	"public":          func(record.FlightLeg) string { return "Y" },
	"date":            openFlightsDate,
	"day":             func(l record.FlightLeg) string { return l.When.Day.Format("2006-01-02") },
	"airport_dep":     func(l record.FlightLeg) string { return airportCode(l.Dep) },
	"airport_arr":     func(l record.FlightLeg) string { return airportCode(l.Arr) },
	"time_dep":        func(l record.FlightLeg) string { return clock(l.When.Departure) },
	"time_arr":        func(l record.FlightLeg) string { return clock(l.When.Arrival) },
	"flightnum":       func(l record.FlightLeg) string { return l.FlightNum },
	"airline":         func(l record.FlightLeg) string { return l.Airline },
	"airline_oid":     func(l record.FlightLeg) string { return l.AirlineOID },
	"distance_miles":  func(l record.FlightLeg) string { return fmt.Sprintf("%d", int64(l.Distance*KmToMiles)) },
	"duration_hms":    func(l record.FlightLeg) string { return hms(l.Duration) },
	"duration_hm":     func(l record.FlightLeg) string { return dateinfo.FormatDuration(l.Duration) },
	"seat":            func(l record.FlightLeg) string { return l.Seat },
	"seat_type_code":  func(l record.FlightLeg) string { return lookup(seatOpenFlights, l.Position) },
	"seat_type_lower": func(l record.FlightLeg) string { return strings.ToLower(l.Position) },
	"class_code":      func(l record.FlightLeg) string { return lookup(classOpenFlights, l.Class) },
	"class_mfp":       func(l record.FlightLeg) string { return lookup(classMyFlightPath, l.Class) },
	"reason_code":     func(l record.FlightLeg) string { return lookup(reasonOpenFlights, l.Reason) },
	"reason_mfp":      func(l record.FlightLeg) string { return lookup(reasonMyFlightPath, l.Reason) },
	"airplane_type":   func(l record.FlightLeg) string { return l.AircraftType },
	"airplane_reg":    func(l record.FlightLeg) string { return l.Registration },
	"comment":         func(l record.FlightLeg) string { return l.Comment },
}

// Formats lists the available format names.
func Formats() []string {
	entries, _ := formatFiles.ReadDir("formats")
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(out)
	return out
}

// Load returns the named format.
func Load(name string) (*Format, error) {
	b, err := formatFiles.ReadFile("formats/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
	var f Format
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parsing format %s: %w", name, err)
	}
	for _, c := range f.Columns {
		if _, ok := fields[c.Field]; !ok {
			return nil, fmt.Errorf("format %s: column %s uses unknown field %q", name, c.Name, c.Field)
		}
	}
	return &f, nil
}

// Write renders legs as CSV with a header row.
func (f *Format) Write(w io.Writer, legs []record.FlightLeg) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(f.Columns))
	for _, l := range legs {
		for i, c := range f.Columns {
			row[i] = fields[c.Field](l)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write renders legs in the named format.
func Write(w io.Writer, name string, legs []record.FlightLeg) error {
	f, err := Load(name)
	if err != nil {
		return err
	}
	return f.Write(w, legs)
}

func openFlightsDate(l record.FlightLeg) string {
	if l.When.Tag == dateinfo.YMDT && !l.When.Departure.IsZero() {
		return l.When.Departure.Format("2006-01-02 15:04")
	}
	return l.When.Format()
}

// airportCode prefers IATA and falls back to ICAO.
func airportCode(e record.Endpoint) string {
	if e.IATA != "" {
		return e.IATA
	}
	return e.ICAO
}

func clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04")
}

func hms(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int64(math.Round(d.Seconds()))
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func lookup(m map[string]string, v string) string {
	if code, ok := m[v]; ok {
		return code
	}
	return v
}
