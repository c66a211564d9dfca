package reconcile

import (
	"math"
	"time"

	"github.com/golang/geo/s2"

	"github.com/flightlog/fmsave/pkg/record"
)

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371.0088

// Check compares a leg's logged distance and duration with the values
// implied by its coordinates and timezones.
type Check struct {
	Index int
	Key   string

	DistValidated float64 // km
	DistPctErr    float64
	HasDist       bool

	DurationValidated time.Duration
	DurPctErr         float64
	HasDur            bool
}

// Exceeds reports whether either error is above pct percent.
func (c Check) Exceeds(pct float64) bool {
	return (c.HasDist && c.DistPctErr > pct) || (c.HasDur && c.DurPctErr > pct)
}

// Validate checks every leg. Distance needs both positions and a logged
// distance; duration needs both times and both GMT offsets.
func Validate(legs []record.FlightLeg) []Check {
	out := make([]Check, len(legs))
	for i, l := range legs {
		c := Check{Index: l.Index, Key: record.MergeKey(l)}
		if l.Dep.HasPosition() && l.Arr.HasPosition() {
			c.DistValidated = GreatCircleKm(l.Dep.Lat.Float64, l.Dep.Lon.Float64, l.Arr.Lat.Float64, l.Arr.Lon.Float64)
			if l.Distance > 0 {
				c.DistPctErr = math.Abs(l.Distance-c.DistValidated) / l.Distance * 100
				c.HasDist = true
			}
		}
		if d, ok := FlightDuration(l); ok {
			c.DurationValidated = d
			if l.Duration > 0 {
				c.DurPctErr = math.Abs(float64(l.Duration-d)) / float64(l.Duration) * 100
				c.HasDur = true
			}
		}
		out[i] = c
	}
	return out
}

// GreatCircleKm is the great-circle distance between two points.
func GreatCircleKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusKm
}

// FlightDuration is arrival minus departure corrected by the two GMT
// offsets. The logged times are local to each airport.
func FlightDuration(l record.FlightLeg) (time.Duration, bool) {
	if l.When.Departure.IsZero() || l.When.Arrival.IsZero() {
		return 0, false
	}
	if !l.Dep.GMTOffset.Valid || !l.Arr.GMTOffset.Valid {
		return 0, false
	}
	shift := hours(l.Dep.GMTOffset.Float64) - hours(l.Arr.GMTOffset.Float64)
	return l.When.Arrival.Sub(l.When.Departure) + shift, true
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
