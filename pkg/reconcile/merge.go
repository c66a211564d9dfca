package reconcile

import (
	"sort"
	"time"

	"github.com/flightlog/fmsave/pkg/record"
)

// Merge folds updates into existing. Only updates inside w are considered.
// Legs are matched on record.MergeKey; a matched leg keeps the existing
// values, takes timezone and comment fields the existing leg lacks, and
// keeps the earlier non-zero TS. Duplicate keys within one side collapse to
// their first occurrence. The result is sorted by date and times and
// re-indexed from 1.
func Merge(existing, updates []record.FlightLeg, w Window) []record.FlightLeg {
	updates = KeepRowsByDate(updates, w)

	byKey := make(map[string]int, len(updates))
	var upd []record.FlightLeg
	for _, u := range updates {
		k := record.MergeKey(u)
		if _, dup := byKey[k]; dup {
			continue
		}
		byKey[k] = len(upd)
		upd = append(upd, u)
	}

	type keyed struct {
		key string
		leg record.FlightLeg
	}
	out := make([]keyed, 0, len(existing)+len(upd))
	seen := make(map[string]bool, len(existing))
	matched := make([]bool, len(upd))
	for _, x := range existing {
		k := record.MergeKey(x)
		if seen[k] {
			continue
		}
		seen[k] = true
		if i, ok := byKey[k]; ok {
			x = combine(x, upd[i])
			matched[i] = true
		}
		out = append(out, keyed{k, x})
	}
	for i, u := range upd {
		if !matched[i] {
			out = append(out, keyed{record.MergeKey(u), u})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].leg.When, out[j].leg.When
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if c := compareTime(a.Departure, b.Departure); c != 0 {
			return c < 0
		}
		if c := compareTime(a.Arrival, b.Arrival); c != 0 {
			return c < 0
		}
		return out[i].key < out[j].key
	})

	legs := make([]record.FlightLeg, len(out))
	for i, k := range out {
		legs[i] = k.leg
		legs[i].Index = i + 1
	}
	return legs
}

// InsertUpdatedRows merges updates into existing without a date window.
func InsertUpdatedRows(existing, updates []record.FlightLeg) []record.FlightLeg {
	return Merge(existing, updates, Window{})
}

func combine(x, u record.FlightLeg) record.FlightLeg {
	switch {
	case x.TS.IsZero():
		x.TS = u.TS
	case !u.TS.IsZero() && u.TS.Before(x.TS):
		x.TS = u.TS
	}
	for _, l := range record.Legs {
		xe, ue := x.End(l), u.End(l)
		if xe.Date == "" {
			xe.Date = ue.Date
		}
		if xe.TZID == "" {
			xe.TZID = ue.TZID
		}
		if !xe.GMTOffset.Valid {
			xe.GMTOffset = ue.GMTOffset
		}
	}
	if x.Comment == "" {
		x.Comment = u.Comment
	}
	if x.DetailURL == "" {
		x.DetailURL = u.DetailURL
	}
	x.HasComment = x.HasComment || u.HasComment
	return x
}

// compareTime orders known times before unknown ones.
func compareTime(a, b time.Time) int {
	switch {
	case a.Equal(b):
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.Before(b):
		return -1
	}
	return 1
}
