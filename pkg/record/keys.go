package record

import (
	"strconv"
	"strings"
	"time"
)

// MergeKey identifies the same real-world leg across two record sets. The
// display index, creation timestamp and timezone enrichment are left out.
func MergeKey(f FlightLeg) string {
	parts := []string{
		string(f.When.Tag),
		f.When.Date,
		timeKey(f.When.Departure),
		timeKey(f.When.Arrival),
		strconv.FormatFloat(f.Distance, 'f', -1, 64),
		f.DistanceUnit,
		f.Duration.String(),
		f.Seat, f.Position, f.Class, f.Role, f.Reason,
		f.Airline, f.FlightNum, f.IATAAirline,
		f.AircraftType, f.Registration, f.AircraftName, f.ICAOType,
	}
	for _, l := range Legs {
		e := f.End(l)
		parts = append(parts,
			e.IATA, e.Place, e.OurAirportsID, e.ICAO, e.Name,
			FloatKey(e.Lat.Float64, e.Lat.Valid), FloatKey(e.Lon.Float64, e.Lon.Valid),
			e.Country, e.Municipality,
		)
	}
	return strings.Join(parts, "|")
}

// FloatKey renders an optional number as a join-safe string, blank when missing.
func FloatKey(v float64, valid bool) string {
	if !valid {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func timeKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
