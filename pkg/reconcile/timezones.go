package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/flightlog/fmsave/internal/utils"
	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/geonames"
	"github.com/flightlog/fmsave/pkg/record"
)

const dayLayout = "2006-01-02"

var validDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// TimezoneOptions selects which legs AddTimezones touches.
type TimezoneOptions struct {
	// UpdateBlanksOnly restricts the pass to YMDT and YMD legs with at least
	// one blank timezone field. When false every leg is looked up again.
	UpdateBlanksOnly bool
	// NumFlights caps the number of legs looked up; 0 means no cap.
	NumFlights int
}

// TimezoneReport summarizes one enrichment pass.
type TimezoneReport struct {
	Candidates int // legs selected for lookup
	Updated    int // legs processed before the pass ended
	Resolved   int // endpoints that received a complete result
	Empty      int // endpoints left blank by a negative or skipped lookup
	Failed     int // endpoints left blank by a row-local client error
	Aborted    bool
}

// ErrNoTimezoneClient is returned when enrichment runs without a client.
var ErrNoTimezoneClient = errors.New("no timezone client configured")

// AddTimezones fills the per-endpoint dates and looks up timezones in place.
// An authentication or credit limit error stops the pass before the next
// call; legs already updated keep their values and the error is returned
// together with the report.
func (e *Engine) AddTimezones(ctx context.Context, legs []record.FlightLeg, opts TimezoneOptions) (TimezoneReport, error) {
	var rep TimezoneReport
	fillLegDates(legs)

	var rows []int
	for i := range legs {
		if !opts.UpdateBlanksOnly || needsTimezone(legs[i]) {
			rows = append(rows, i)
		}
	}
	rep.Candidates = len(rows)

	total := len(rows)
	if opts.NumFlights > 0 && opts.NumFlights < total {
		total = opts.NumFlights
	}
	if total == 0 {
		e.log.Infof("No flights need time zones")
		return rep, nil
	}
	if e.tz == nil {
		return rep, ErrNoTimezoneClient
	}

	e.log.Infof("Adding time zones for %d flights", total)
	for _, i := range rows {
		if rep.Updated >= total {
			break
		}
		if err := ctx.Err(); err != nil {
			rep.Aborted = true
			return rep, err
		}

		leg := &legs[i]
		if !validDateRe.MatchString(leg.Dep.Date) || !validDateRe.MatchString(leg.Arr.Date) {
			e.log.Debugf("Skipping flight %d: no usable dates (%q, %q)", leg.Index, leg.Dep.Date, leg.Arr.Date)
			continue
		}

		var (
			results [2]geonames.TimezoneResult
			failed  [2]bool
		)
		for j, l := range record.Legs {
			res, err := e.lookup(ctx, leg.End(l))
			if err != nil {
				if geonames.IsFatal(err) {
					rep.Aborted = true
					e.log.Errorf("Stopping time zone lookups: %v", err)
					return rep, fmt.Errorf("flight %d %s: %w", leg.Index, l, err)
				}
				e.log.Warnf("Time zone lookup for flight %d %s failed: %v", leg.Index, l, err)
				rep.Failed++
				failed[j] = true
			}
			results[j] = res
		}

		for j, l := range record.Legs {
			end := leg.End(l)
			if !results[j].Complete() {
				if !failed[j] && end.TZID == "" {
					rep.Empty++
				}
				continue
			}
			end.TZID = results[j].TZID
			end.GMTOffset = record.Float(results[j].GMTOffset)
			rep.Resolved++
		}

		rep.Updated++
		e.log.Infof("Updated %d of %d flights (%.0f%%)", rep.Updated, total, utils.Percent(rep.Updated, total))
	}
	return rep, nil
}

// lookup returns an Empty result without error for endpoints that cannot be
// looked up and for dates the service rejects.
func (e *Engine) lookup(ctx context.Context, end *record.Endpoint) (geonames.TimezoneResult, error) {
	if !end.HasPosition() || !validDateRe.MatchString(end.Date) {
		return geonames.Empty(end.Lat.Float64, end.Lon.Float64, end.Date), nil
	}
	res, err := e.tz.FindTimezone(ctx, end.Lat.Float64, end.Lon.Float64, end.Date, e.timeout, e.maxRetries)
	if err == nil {
		return res, nil
	}
	if kind, ok := geonames.KindOf(err); ok && kind == geonames.InvalidDate {
		e.log.Debugf("Service has no time zone for %s on %s", end.IATA, end.Date)
		return geonames.Empty(end.Lat.Float64, end.Lon.Float64, end.Date), nil
	}
	return geonames.Empty(end.Lat.Float64, end.Lon.Float64, end.Date), err
}

func needsTimezone(l record.FlightLeg) bool {
	if l.When.Tag != dateinfo.YMDT && l.When.Tag != dateinfo.YMD {
		return false
	}
	return !l.Dep.HasTimezone() || !l.Arr.HasTimezone()
}

// fillLegDates sets blank endpoint dates from the leg's timestamps (YMDT)
// or its date (YMD).
func fillLegDates(legs []record.FlightLeg) {
	for i := range legs {
		l := &legs[i]
		switch l.When.Tag {
		case dateinfo.YMDT:
			if l.Dep.Date == "" && !l.When.Departure.IsZero() {
				l.Dep.Date = l.When.Departure.Format(dayLayout)
			}
			if l.Arr.Date == "" && !l.When.Arrival.IsZero() {
				l.Arr.Date = l.When.Arrival.Format(dayLayout)
			}
		case dateinfo.YMD:
			if l.Dep.Date == "" {
				l.Dep.Date = l.When.Date
			}
			if l.Arr.Date == "" {
				l.Arr.Date = l.When.Date
			}
		}
	}
}
