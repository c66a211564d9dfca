package reconcile

import (
	"time"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/record"
)

// Default window bounds used when After or Before is zero.
var (
	DefaultAfter  = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultBefore = time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Window is an inclusive date range over a leg's date. A partial date
// (Y or YM) is inside when any day of its period is. The zero value covers
// everything.
type Window struct {
	After  time.Time
	Before time.Time
}

func (w Window) bounds() (time.Time, time.Time) {
	after, before := w.After, w.Before
	if after.IsZero() {
		after = DefaultAfter
	}
	if before.IsZero() {
		before = DefaultBefore
	}
	return after, before
}

// Contains reports whether the leg's date falls inside the window.
func (w Window) Contains(d dateinfo.DateInfo) bool {
	after, before := w.bounds()
	first, last := d.Period()
	return !last.Before(after) && !first.After(before)
}

// KeepRowsByDate returns the legs inside w, in order.
func KeepRowsByDate(legs []record.FlightLeg, w Window) []record.FlightLeg {
	out := make([]record.FlightLeg, 0, len(legs))
	for _, l := range legs {
		if w.Contains(l.When) {
			out = append(out, l)
		}
	}
	return out
}

// RemoveRowsByDate returns the legs outside w, in order.
func RemoveRowsByDate(legs []record.FlightLeg, w Window) []record.FlightLeg {
	out := make([]record.FlightLeg, 0, len(legs))
	for _, l := range legs {
		if !w.Contains(l.When) {
			out = append(out, l)
		}
	}
	return out
}
