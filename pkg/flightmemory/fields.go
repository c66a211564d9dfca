package flightmemory

import (
	"regexp"
	"strings"
)

// Vocabulary used by the flight log's seat column.
var (
	SeatPositions = []string{"Window", "Aisle", "Middle"}
	Classes       = []string{"Economy", "EconomyPlus", "Business", "First"}
	Roles         = []string{"Passenger", "Crew", "Cockpit"}
	Reasons       = []string{"Personal", "Business", "virtuell"}
)

// Seat is the split "seat/position class role reason" cell.
type Seat struct {
	Seat     string
	Position string
	Class    string
	Role     string
	Reason   string
}

// SplitSeat splits the seat cell on spaces. When no class was logged the
// role lands in the class slot; it is shifted back into place. A missing
// seat is detected by the first word being a class or role.
func SplitSeat(raw string) Seat {
	raw = strings.TrimSpace(raw)
	if first, _, _ := strings.Cut(raw, " "); contains(Classes, first) || contains(Roles, first) {
		raw = " " + raw
	}
	parts := splitPadded(raw, " ", 4)
	s := Seat{Class: parts[1], Role: parts[2], Reason: parts[3]}
	s.Seat, s.Position, _ = strings.Cut(parts[0], "/")

	if contains(Roles, s.Class) {
		s.Reason = s.Role
		s.Role = s.Class
		s.Class = ""
	}
	return s
}

// Airline is the split "Airline Name XX1234" cell.
type Airline struct {
	Name      string
	FlightNum string
	IATA      string
}

var (
	flightNumRe   = regexp.MustCompile(`(\w{2}\d{1,4})$`)
	airlineNameRe = regexp.MustCompile(`(.+) (\w{2}\d{1,4})$`)
)

// SplitAirline pulls the trailing flight number off the airline cell. The
// first two characters of the flight number are the airline's IATA code.
func SplitAirline(raw string) Airline {
	raw = strings.TrimSpace(raw)
	a := Airline{Name: airlineNameRe.ReplaceAllString(raw, "$1")}
	if m := flightNumRe.FindStringSubmatch(raw); m != nil {
		a.FlightNum = m[1]
		a.IATA = m[1][:2]
	}
	return a
}

// Aircraft is the split "type registration name" cell.
type Aircraft struct {
	Type         string
	Registration string
	Name         string
}

// registrationRe matches the national registration prefixes seen in logs.
var registrationRe = regexp.MustCompile(`(?:\s|^)(` +
	`N\w{3,5}` +
	`|(?:HI|HL|JA|JR|UK|UR|YV)\w{2,5}` +
	`|(?:2|B|C|D|F|G|I|M|P|U|Z)-\w{2,5}` +
	`|[3-9][A-Z]-\w{2,5}` +
	`|(?:C|D|E|H|J|L|O|P|R|S|T|U|V|X|Y|Z)\w-\w{2,5}` +
	`|A[P2-8]-\w{2,5}` +
	`)(?:\s|$)`)

// SplitAircraft splits the aircraft cell around the first registration.
// Without a registration the whole cell is the type.
func SplitAircraft(raw string) Aircraft {
	raw = strings.TrimSpace(raw)
	loc := registrationRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Aircraft{Type: raw}
	}
	return Aircraft{
		Type:         strings.TrimSpace(raw[:loc[0]]),
		Registration: raw[loc[2]:loc[3]],
		Name:         strings.TrimSpace(raw[loc[1]:]),
	}
}

// HasNote reports whether the comments cell flags a note on the detail page.
func HasNote(raw string) bool {
	return strings.Contains(raw, "Note ")
}

func splitPadded(s, sep string, n int) []string {
	parts := strings.SplitN(s, sep, n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
