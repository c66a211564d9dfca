package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/record"
)

// column maps one flight_legs column to a FlightLeg field.
type column struct {
	name string
	typ  string
	get  func(l *record.FlightLeg) interface{}
	set  func(l *record.FlightLeg, v interface{}) error
}

func textCol(name string, field func(l *record.FlightLeg) *string) column {
	return column{
		name: name,
		typ:  "TEXT",
		get:  func(l *record.FlightLeg) interface{} { return nullIfEmpty(*field(l)) },
		set: func(l *record.FlightLeg, v interface{}) error {
			*field(l) = asString(v)
			return nil
		},
	}
}

func realCol(name string, field func(l *record.FlightLeg) *sql.NullFloat64) column {
	return column{
		name: name,
		typ:  "REAL",
		get:  func(l *record.FlightLeg) interface{} { return nullFloat(*field(l)) },
		set: func(l *record.FlightLeg, v interface{}) error {
			f, err := asFloat(v)
			*field(l) = f
			return err
		},
	}
}

func timeCol(name string, field func(l *record.FlightLeg) *time.Time) column {
	return column{
		name: name,
		typ:  "TEXT",
		get:  func(l *record.FlightLeg) interface{} { return nullIfZero(*field(l)) },
		set: func(l *record.FlightLeg, v interface{}) error {
			t, err := parseTime(sql.NullString{String: asString(v), Valid: v != nil})
			*field(l) = t
			return err
		},
	}
}

func intCol(name string, get func(l *record.FlightLeg) int64, set func(l *record.FlightLeg, n int64)) column {
	return column{
		name: name,
		typ:  "INTEGER",
		get:  func(l *record.FlightLeg) interface{} { return get(l) },
		set: func(l *record.FlightLeg, v interface{}) error {
			f, err := asFloat(v)
			set(l, int64(f.Float64))
			return err
		},
	}
}

func endpointCols(leg record.Leg) []column {
	end := func(l *record.FlightLeg) *record.Endpoint { return l.End(leg) }
	cols := leg.Columns()
	sfx := "_" + leg.String()
	return []column{
		textCol("iata"+sfx, func(l *record.FlightLeg) *string { return &end(l).IATA }),
		textCol("city_county_name"+sfx, func(l *record.FlightLeg) *string { return &end(l).Place }),
		textCol("ourairports_id"+sfx, func(l *record.FlightLeg) *string { return &end(l).OurAirportsID }),
		textCol("icao"+sfx, func(l *record.FlightLeg) *string { return &end(l).ICAO }),
		textCol("name"+sfx, func(l *record.FlightLeg) *string { return &end(l).Name }),
		realCol(cols.Lat, func(l *record.FlightLeg) *sql.NullFloat64 { return &end(l).Lat }),
		realCol(cols.Lon, func(l *record.FlightLeg) *sql.NullFloat64 { return &end(l).Lon }),
		textCol("iso_country"+sfx, func(l *record.FlightLeg) *string { return &end(l).Country }),
		textCol("municipality"+sfx, func(l *record.FlightLeg) *string { return &end(l).Municipality }),
		textCol(cols.Date, func(l *record.FlightLeg) *string { return &end(l).Date }),
		textCol(cols.TZID, func(l *record.FlightLeg) *string { return &end(l).TZID }),
		realCol(cols.GMTOffset, func(l *record.FlightLeg) *sql.NullFloat64 { return &end(l).GMTOffset }),
	}
}

var legColumns = buildColumns()

func buildColumns() []column {
	cols := []column{
		intCol("flight_index",
			func(l *record.FlightLeg) int64 { return int64(l.Index) },
			func(l *record.FlightLeg, n int64) { l.Index = int(n) }),
		{
			name: "dt_info",
			typ:  "TEXT NOT NULL",
			get:  func(l *record.FlightLeg) interface{} { return string(l.When.Tag) },
			set: func(l *record.FlightLeg, v interface{}) error {
				l.When.Tag = dateinfo.Tag(asString(v))
				return nil
			},
		},
		textCol("date", func(l *record.FlightLeg) *string { return &l.When.Date }),
		timeCol("time_dep", func(l *record.FlightLeg) *time.Time { return &l.When.Departure }),
		timeCol("time_arr", func(l *record.FlightLeg) *time.Time { return &l.When.Arrival }),
		intCol("date_offset",
			func(l *record.FlightLeg) int64 { return int64(l.When.Offset) },
			func(l *record.FlightLeg, n int64) { l.When.Offset = int(n) }),
	}
	for _, leg := range record.Legs {
		cols = append(cols, endpointCols(leg)...)
	}
	cols = append(cols,
		column{
			name: "dist",
			typ:  "REAL",
			get:  func(l *record.FlightLeg) interface{} { return l.Distance },
			set: func(l *record.FlightLeg, v interface{}) error {
				f, err := asFloat(v)
				l.Distance = f.Float64
				return err
			},
		},
		textCol("dist_units", func(l *record.FlightLeg) *string { return &l.DistanceUnit }),
		intCol("duration_min",
			func(l *record.FlightLeg) int64 { return int64(l.Duration / time.Minute) },
			func(l *record.FlightLeg, n int64) { l.Duration = time.Duration(n) * time.Minute }),
		textCol("seat", func(l *record.FlightLeg) *string { return &l.Seat }),
		textCol("position", func(l *record.FlightLeg) *string { return &l.Position }),
		textCol("class", func(l *record.FlightLeg) *string { return &l.Class }),
		textCol("role", func(l *record.FlightLeg) *string { return &l.Role }),
		textCol("reason", func(l *record.FlightLeg) *string { return &l.Reason }),
		textCol("airline", func(l *record.FlightLeg) *string { return &l.Airline }),
		textCol("flightnum", func(l *record.FlightLeg) *string { return &l.FlightNum }),
		textCol("iata_airline", func(l *record.FlightLeg) *string { return &l.IATAAirline }),
		textCol("airline_oid", func(l *record.FlightLeg) *string { return &l.AirlineOID }),
		textCol("airplane_type", func(l *record.FlightLeg) *string { return &l.AircraftType }),
		textCol("airplane_reg", func(l *record.FlightLeg) *string { return &l.Registration }),
		textCol("airplane_name", func(l *record.FlightLeg) *string { return &l.AircraftName }),
		textCol("icao_type", func(l *record.FlightLeg) *string { return &l.ICAOType }),
		intCol("has_comment",
			func(l *record.FlightLeg) int64 { return boolToInt(l.HasComment) },
			func(l *record.FlightLeg, n int64) { l.HasComment = n == 1 }),
		textCol("comment", func(l *record.FlightLeg) *string { return &l.Comment }),
		textCol("detail_url", func(l *record.FlightLeg) *string { return &l.DetailURL }),
		timeCol("ts", func(l *record.FlightLeg) *time.Time { return &l.TS }),
	)
	return cols
}

// fingerprintColumns are compared to tell an updated leg from an unchanged
// one. Everything else is part of the merge key.
var fingerprintColumns = func() []string {
	cols := []string{"flight_index", "comment"}
	for _, leg := range record.Legs {
		c := leg.Columns()
		cols = append(cols, c.Date, c.TZID, c.GMTOffset)
	}
	return cols
}()

func fingerprint(l record.FlightLeg) string {
	byName := make(map[string]column, len(legColumns))
	for _, c := range legColumns {
		byName[c.name] = c
	}
	parts := make([]string, len(fingerprintColumns))
	for i, name := range fingerprintColumns {
		parts[i] = asString(byName[name].get(&l))
	}
	return strings.Join(parts, "|")
}

func columnNames() []string {
	out := make([]string, len(legColumns))
	for i, c := range legColumns {
		out[i] = c.name
	}
	return out
}

func columnDefs() []string {
	out := make([]string, len(legColumns))
	for i, c := range legColumns {
		out[i] = c.name + " " + c.typ
	}
	return out
}

func legValues(l record.FlightLeg) []interface{} {
	out := make([]interface{}, len(legColumns))
	for i, c := range legColumns {
		out[i] = c.get(&l)
	}
	return out
}

func scanLeg(rows *sql.Rows) (record.FlightLeg, error) {
	raw := make([]interface{}, len(legColumns))
	dest := make([]interface{}, len(legColumns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return record.FlightLeg{}, err
	}
	var l record.FlightLeg
	for i, c := range legColumns {
		if err := c.set(&l, raw[i]); err != nil {
			return record.FlightLeg{}, fmt.Errorf("column %s: %w", c.name, err)
		}
	}
	if err := rebuildDay(&l.When); err != nil {
		return record.FlightLeg{}, err
	}
	return l, nil
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func asFloat(v interface{}) (sql.NullFloat64, error) {
	switch x := v.(type) {
	case nil:
		return sql.NullFloat64{}, nil
	case float64:
		return record.Float(x), nil
	case int64:
		return record.Float(float64(x)), nil
	}
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return record.Float(f), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
