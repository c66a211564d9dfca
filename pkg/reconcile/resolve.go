package reconcile

import (
	"errors"
	"sort"
	"strconv"

	"github.com/flightlog/fmsave/pkg/fuzzy"
	"github.com/flightlog/fmsave/pkg/record"
	"github.com/flightlog/fmsave/pkg/reference"
)

// Matching limits and thresholds.
const (
	keywordSuffixLen   = 4
	interactiveLimit   = 10
	airlineThreshold   = 90
	aircraftThreshold  = 95
	airlineIATANameSep = "_"
)

var (
	airportColumns = []fuzzy.Column{
		{Name: "iata", Width: 4},
		{Name: "icao", Width: 7},
		{Name: "name", Width: 30},
		{Name: "iso_country", Width: 11},
		{Name: "municipality", Width: 15},
		{Name: "keywords", Width: 30},
	}
	aircraftColumns = []fuzzy.Column{
		{Name: "icao_type", Width: 9},
		{Name: "iata_type", Width: 9},
		{Name: "model_name", Width: 50},
	}
)

// ResolveAirports fills both endpoints of every leg from the airport table.
// Exact IATA matches come first, then the keyword fallback. Legs inside w
// that still lack a position are offered to the chooser by place name.
func (e *Engine) ResolveAirports(legs []record.FlightLeg, w Window) error {
	airports := e.tables.Airports
	var keywords, names []fuzzy.Candidate
	for i, a := range airports {
		key := strconv.Itoa(i)
		keywords = append(keywords, fuzzy.Candidate{Key: key, Value: a.Keywords})
		names = append(names, fuzzy.Candidate{Key: key, Value: a.Name})
	}
	byKey := func(key string) reference.Airport {
		i, _ := strconv.Atoi(key)
		return airports[i]
	}

	var exact, keyword int
	for i := range legs {
		for _, leg := range record.Legs {
			end := legs[i].End(leg)
			if a, ok := e.tables.AirportByIATA(end.IATA); ok {
				fillAirport(end, a, true)
				exact++
				continue
			}
			if c, ok := fuzzy.KeywordMatch(end.IATA, keywordSuffixLen, keywords); ok {
				fillAirport(end, byKey(c.Key), false)
				keyword++
			}
		}
	}
	e.log.Debugf("Airports matched: %d by IATA, %d by keyword", exact, keyword)

	chosen := map[string]int{}
	for i := range legs {
		if !w.Contains(legs[i].When) {
			continue
		}
		for _, leg := range record.Legs {
			end := legs[i].End(leg)
			if end.Lat.Valid || end.Place == "" {
				continue
			}
			idx, seen := chosen[end.Place]
			if !seen {
				m, ok, err := e.choose(end.Place, names, airportColumns, func(m fuzzy.Match) []string {
					a := byKey(m.Key)
					return []string{a.IATA, a.ICAO, a.Name, a.Country, a.Municipality, a.Keywords}
				})
				if err != nil {
					return err
				}
				idx = -1
				if ok {
					idx = m.Pos
				}
				chosen[end.Place] = idx
			}
			if idx >= 0 {
				fillAirport(end, airports[idx], true)
				end.IATA = airports[idx].IATA
			}
		}
	}
	return nil
}

func fillAirport(end *record.Endpoint, a reference.Airport, withIDs bool) {
	if withIDs {
		end.OurAirportsID = a.ID
		end.ICAO = a.ICAO
	}
	end.Name = a.Name
	end.Lat = record.Float(a.Lat)
	end.Lon = record.Float(a.Lon)
	end.Country = a.Country
	end.Municipality = a.Municipality
}

// ResolveAirlines sets AirlineOID from the airline table: an exact IATA and
// name match, then a fuzzy name match among airlines sharing the IATA code,
// then a fuzzy match on the name alone.
func (e *Engine) ResolveAirlines(legs []record.FlightLeg) {
	exact := map[string]string{}
	byIATA := map[string][]fuzzy.Candidate{}
	var names []fuzzy.Candidate
	seenName := map[string]bool{}
	for _, a := range e.tables.Airlines {
		key := a.IATA + airlineIATANameSep + a.Name
		if _, ok := exact[key]; !ok {
			exact[key] = a.OID
		}
		if a.IATA != "" {
			byIATA[a.IATA] = append(byIATA[a.IATA], fuzzy.Candidate{Key: a.OID, Value: a.Name})
		}
		if a.Name != "" && !seenName[a.Name] {
			seenName[a.Name] = true
			names = append(names, fuzzy.Candidate{Key: a.OID, Value: a.Name})
		}
	}

	memo := map[string]string{}
	resolved := 0
	for i := range legs {
		l := &legs[i]
		if l.AirlineOID != "" || (l.Airline == "" && l.IATAAirline == "") {
			continue
		}
		key := l.IATAAirline + airlineIATANameSep + l.Airline
		oid, ok := memo[key]
		if !ok {
			oid = e.matchAirline(l.IATAAirline, l.Airline, exact[key], byIATA, names)
			memo[key] = oid
		}
		if oid != "" {
			l.AirlineOID = oid
			resolved++
		}
	}
	e.log.Debugf("Airlines resolved for %d legs", resolved)
}

func (e *Engine) matchAirline(iata, name, exact string, byIATA map[string][]fuzzy.Candidate, names []fuzzy.Candidate) string {
	if exact != "" {
		return exact
	}
	if name == "" {
		return ""
	}
	if iata != "" {
		if m := fuzzy.Accepted(name, byIATA[iata], 1, airlineThreshold); len(m) > 0 {
			return m[0].Key
		}
	}
	if m := fuzzy.Accepted(name, names, 1, airlineThreshold); len(m) > 0 {
		return m[0].Key
	}
	return ""
}

// ResolveAircraft sets ICAOType by fuzzy matching the logged aircraft type
// against model names. Types with no confident match are offered to the
// chooser once each.
func (e *Engine) ResolveAircraft(legs []record.FlightLeg) error {
	models := make([]fuzzy.Candidate, len(e.tables.Aircraft))
	for i, a := range e.tables.Aircraft {
		models[i] = fuzzy.Candidate{Key: a.ICAOType, Value: a.ModelName}
	}

	icao := map[string]string{}
	var unmatched []string
	for _, l := range legs {
		t := l.AircraftType
		if t == "" || l.ICAOType != "" {
			continue
		}
		if _, done := icao[t]; done {
			continue
		}
		icao[t] = ""
		if m := fuzzy.Accepted(t, models, 1, aircraftThreshold); len(m) > 0 {
			icao[t] = m[0].Key
			continue
		}
		unmatched = append(unmatched, t)
	}

	sort.Strings(unmatched)
	for _, t := range unmatched {
		m, ok, err := e.choose(t, models, aircraftColumns, func(m fuzzy.Match) []string {
			a := e.tables.Aircraft[m.Pos]
			return []string{a.ICAOType, a.IATAType, a.ModelName}
		})
		if err != nil {
			return err
		}
		if ok {
			icao[t] = m.Key
		}
	}

	for i := range legs {
		if legs[i].ICAOType == "" {
			legs[i].ICAOType = icao[legs[i].AircraftType]
		}
	}
	return nil
}

// choose asks the chooser. When its input runs out it stops prompting for
// the rest of the batch and leaves the remaining rows unresolved.
func (e *Engine) choose(query string, cands []fuzzy.Candidate, cols []fuzzy.Column, row func(fuzzy.Match) []string) (fuzzy.Match, bool, error) {
	if e.chooser == nil {
		return fuzzy.Match{}, false, nil
	}
	m, ok, err := fuzzy.Select(e.chooser, query, cands, interactiveLimit, cols, row)
	if errors.Is(err, fuzzy.ErrNoInput) {
		e.log.Warnf("No more answers, leaving '%s' and the following matches unresolved", query)
		e.chooser = nil
		return fuzzy.Match{}, false, nil
	}
	return m, ok, err
}
