// Package reference loads the read-only airport, airline and aircraft
// tables the pipeline resolves legs against.
package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Airport is one OurAirports row.
type Airport struct {
	ID           string
	ICAO         string // "ident"
	Name         string
	Lat          float64
	Lon          float64
	Country      string
	Municipality string
	IATA         string
	Keywords     string
}

// Airline is one OpenFlights airlines.dat row.
type Airline struct {
	OID      string
	Name     string
	Alias    string
	IATA     string
	ICAO     string
	Callsign string
	Country  string
	Active   string
}

// Aircraft is one aircraft type designator row.
type Aircraft struct {
	ICAOType  string
	IATAType  string
	ModelName string
}

// Tables holds every reference table for one run. Nothing writes to it
// after LoadDir returns.
type Tables struct {
	Airports []Airport
	Airlines []Airline
	Aircraft []Aircraft

	airportByIATA map[string]int
}

// Relative locations of the snapshots inside the data directory.
const (
	AirportsFile         = "ourairports/airports.csv"
	AirlinesFile         = "openflights/airlines.dat"
	AircraftFile         = "wiki/aircraft.csv"
	AircraftSupplemental = "wiki/aircraft_supplemental.csv"
)

// NewTables indexes already loaded rows.
func NewTables(airports []Airport, airlines []Airline, aircraft []Aircraft) *Tables {
	t := &Tables{Airports: airports, Airlines: airlines, Aircraft: aircraft, airportByIATA: map[string]int{}}
	for i, a := range airports {
		if a.IATA == "" {
			continue
		}
		if _, dup := t.airportByIATA[a.IATA]; !dup {
			t.airportByIATA[a.IATA] = i
		}
	}
	return t
}

// AirportByIATA returns the first airport with the given IATA code.
func (t *Tables) AirportByIATA(iata string) (Airport, bool) {
	i, ok := t.airportByIATA[strings.TrimSpace(iata)]
	if !ok {
		return Airport{}, false
	}
	return t.Airports[i], true
}

// LoadDir reads the three tables from dir concurrently. Both aircraft files
// are optional; without them aircraft types stay unresolved.
func LoadDir(ctx context.Context, dir string) (*Tables, error) {
	var (
		airports []Airport
		airlines []Airline
		aircraft []Aircraft
		extra    []Aircraft
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		airports, err = loadFile(filepath.Join(dir, AirportsFile), ReadAirports)
		return err
	})
	g.Go(func() (err error) {
		airlines, err = loadFile(filepath.Join(dir, AirlinesFile), ReadAirlines)
		return err
	})
	g.Go(func() (err error) {
		aircraft, err = loadFile(filepath.Join(dir, AircraftFile), ReadAircraft)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	})
	g.Go(func() (err error) {
		extra, err = loadFile(filepath.Join(dir, AircraftSupplemental), ReadAircraft)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewTables(airports, airlines, dedupeAircraft(append(aircraft, extra...))), nil
}

func loadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadAirports parses the OurAirports airports.csv layout by header name.
func ReadAirports(r io.Reader) ([]Airport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"id", "ident", "name", "latitude_deg", "longitude_deg", "iso_country", "municipality", "iata_code", "keywords"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	get := func(rec []string, col string) string {
		if i := idx[col]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []Airport
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(get(rec, "latitude_deg"), 64)
		if err != nil {
			return nil, fmt.Errorf("airport %s latitude: %w", get(rec, "ident"), err)
		}
		lon, err := strconv.ParseFloat(get(rec, "longitude_deg"), 64)
		if err != nil {
			return nil, fmt.Errorf("airport %s longitude: %w", get(rec, "ident"), err)
		}
		out = append(out, Airport{
			ID:           get(rec, "id"),
			ICAO:         get(rec, "ident"),
			Name:         get(rec, "name"),
			Lat:          lat,
			Lon:          lon,
			Country:      get(rec, "iso_country"),
			Municipality: get(rec, "municipality"),
			IATA:         get(rec, "iata_code"),
			Keywords:     get(rec, "keywords"),
		})
	}
	return out, nil
}

// ReadAirlines parses the header-less OpenFlights airlines.dat layout.
func ReadAirlines(r io.Reader) ([]Airline, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out []Airline
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 8 {
			return nil, fmt.Errorf("airline row has %d fields, want 8", len(rec))
		}
		out = append(out, Airline{
			OID:      nullable(rec[0]),
			Name:     nullable(rec[1]),
			Alias:    nullable(rec[2]),
			IATA:     nullable(rec[3]),
			ICAO:     nullable(rec[4]),
			Callsign: nullable(rec[5]),
			Country:  nullable(rec[6]),
			Active:   nullable(rec[7]),
		})
	}
	return out, nil
}

// ReadAircraft parses icao_type,iata_type,model_name rows.
func ReadAircraft(r io.Reader) ([]Aircraft, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	pos := map[string]int{"icao_type": -1, "iata_type": -1, "model_name": -1}
	for i, h := range header {
		if _, ok := pos[strings.TrimSpace(h)]; ok {
			pos[strings.TrimSpace(h)] = i
		}
	}
	for col, i := range pos {
		if i < 0 {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var out []Aircraft
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cell := func(col string) string {
			if i := pos[col]; i < len(rec) {
				return nullable(rec[i])
			}
			return ""
		}
		out = append(out, Aircraft{ICAOType: cell("icao_type"), IATAType: cell("iata_type"), ModelName: cell("model_name")})
	}
	return out, nil
}

// nullable maps the snapshots' null markers to "".
func nullable(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case `\N`, "-", "—":
		return ""
	}
	return s
}

func dedupeAircraft(in []Aircraft) []Aircraft {
	seen := map[Aircraft]bool{}
	out := in[:0]
	for _, a := range in {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
