// Package record holds the flight leg model shared by the pipeline stages.
package record

import (
	"database/sql"
	"time"

	"github.com/flightlog/fmsave/pkg/dateinfo"
)

// Leg selects one end of a flight.
type Leg int

const (
	Departure Leg = iota
	Arrival
)

// Legs lists both ends in processing order.
var Legs = []Leg{Departure, Arrival}

func (l Leg) String() string {
	if l == Arrival {
		return "arr"
	}
	return "dep"
}

// LegColumns names the per-endpoint columns used for timezone enrichment.
type LegColumns struct {
	Date      string
	Lat       string
	Lon       string
	TZID      string
	GMTOffset string
}

var legColumns = map[Leg]LegColumns{
	Departure: {Date: "date_dep", Lat: "lat_dep", Lon: "lon_dep", TZID: "tzid_dep", GMTOffset: "gmtoffset_dep"},
	Arrival:   {Date: "date_arr", Lat: "lat_arr", Lon: "lon_arr", TZID: "tzid_arr", GMTOffset: "gmtoffset_arr"},
}

// Columns returns the column names for this end of the leg.
func (l Leg) Columns() LegColumns {
	return legColumns[l]
}

// Endpoint is everything known about one end of a leg.
type Endpoint struct {
	IATA  string
	Place string // free-text "city / country / name" from the log

	// Resolved from the airport reference table.
	OurAirportsID string
	ICAO          string
	Name          string
	Lat           sql.NullFloat64
	Lon           sql.NullFloat64
	Country       string
	Municipality  string

	// Timezone enrichment.
	Date      string // YYYY-MM-DD used for the timezone lookup
	TZID      string
	GMTOffset sql.NullFloat64
}

// HasPosition reports whether both coordinates are known.
func (e Endpoint) HasPosition() bool {
	return e.Lat.Valid && e.Lon.Valid
}

// HasTimezone reports whether both timezone fields are populated.
func (e Endpoint) HasTimezone() bool {
	return e.TZID != "" && e.GMTOffset.Valid
}

// FlightLeg is one directional flight segment.
type FlightLeg struct {
	// Index is a display position, re-derived on every merge.
	Index int

	When dateinfo.DateInfo

	Dep Endpoint
	Arr Endpoint

	Distance     float64
	DistanceUnit string
	Duration     time.Duration

	Seat     string
	Position string
	Class    string
	Role     string
	Reason   string

	Airline     string
	FlightNum   string
	IATAAirline string
	AirlineOID  string

	AircraftType string
	Registration string
	AircraftName string
	ICAOType     string

	HasComment bool
	Comment    string
	DetailURL  string

	// TS is when the leg was first recorded.
	TS time.Time
}

// End returns a pointer to the requested endpoint.
func (f *FlightLeg) End(l Leg) *Endpoint {
	if l == Arrival {
		return &f.Arr
	}
	return &f.Dep
}

// Float wraps v as a valid sql.NullFloat64.
func Float(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
