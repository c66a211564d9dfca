package flightmemory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/record"
)

// Decode turns scraped rows into flight legs. The first row that breaks the
// layout or carries an unknown date shape stops decoding.
func Decode(s *Schema, rows []RawRow, now time.Time) ([]record.FlightLeg, error) {
	legs := make([]record.FlightLeg, 0, len(rows))
	for i, row := range rows {
		leg, err := decodeRow(s, i+1, row)
		if err != nil {
			return nil, err
		}
		leg.TS = now
		legs = append(legs, leg)
	}
	return legs, nil
}

func decodeRow(s *Schema, n int, row RawRow) (record.FlightLeg, error) {
	if err := s.Validate(n, row.Cells); err != nil {
		return record.FlightLeg{}, err
	}
	field := func(name string) string { return strings.TrimSpace(s.Field(row.Cells, name)) }

	when, err := dateinfo.Classify(field("date_dept_arr_offset"))
	if err != nil {
		return record.FlightLeg{}, fmt.Errorf("row %d: %w", n, err)
	}
	dist, err := dateinfo.ParseDistance(field("dist_duration"))
	if err != nil {
		return record.FlightLeg{}, fmt.Errorf("row %d: %w", n, err)
	}

	seat := SplitSeat(field("seat_class_place"))
	airline := SplitAirline(field("airline_flightnum"))
	plane := SplitAircraft(field("airplane_reg_name"))

	leg := record.FlightLeg{
		Index:        parseIndex(field("flight_index")),
		When:         when,
		Dep:          record.Endpoint{IATA: field("iata_dep"), Place: field("city_county_name_dep")},
		Arr:          record.Endpoint{IATA: field("iata_arr"), Place: field("city_county_name_arr")},
		Distance:     dist.Distance,
		DistanceUnit: dist.DistanceUnit,
		Duration:     dist.Duration,
		Seat:         seat.Seat,
		Position:     seat.Position,
		Class:        seat.Class,
		Role:         seat.Role,
		Reason:       seat.Reason,
		Airline:      airline.Name,
		FlightNum:    airline.FlightNum,
		IATAAirline:  airline.IATA,
		AircraftType: plane.Type,
		Registration: plane.Registration,
		AircraftName: plane.Name,
		HasComment:   HasNote(field("comments_detail_url")),
		DetailURL:    row.DetailURL,
	}
	return leg, nil
}

func parseIndex(s string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(s, "."))
	if err != nil {
		return 0
	}
	return n
}
