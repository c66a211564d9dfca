package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/flightlog/fmsave/pkg/geonames"
	"github.com/flightlog/fmsave/pkg/record"
	"github.com/flightlog/fmsave/pkg/storage"
)

// Stage is how far a batch got through the pipeline.
type Stage int

const (
	Classified Stage = iota
	AirportResolved
	AirlineResolved // airlines and aircraft types
	TimezoneEnriched
	Merged
	Persisted
)

var stageNames = [...]string{"classified", "airport_resolved", "airline_resolved", "timezone_enriched", "merged", "persisted"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Store persists the canonical set. *storage.DB satisfies it.
type Store interface {
	ReplaceLegs(ctx context.Context, legs []record.FlightLeg) ([]storage.Change, error)
}

// Batch is one update run's input.
type Batch struct {
	// Existing is the canonical set before the run.
	Existing []record.FlightLeg
	// Updates are freshly decoded legs.
	Updates []record.FlightLeg

	Window Window
	// ReplaceWindow drops existing legs inside Window before merging so the
	// update becomes authoritative for that range.
	ReplaceWindow bool

	SkipTimezones bool
	Timezones     TimezoneOptions

	// PersistPartial merges and stores the batch even when timezone
	// enrichment was stopped by a fatal client error.
	PersistPartial bool
}

// Result is the outcome of Run. Legs holds the most advanced record set
// reached, so a stopped batch still returns its progress. A partially
// enriched batch that was persisted anyway has Timezones.Aborted set.
type Result struct {
	Stage     Stage
	Legs      []record.FlightLeg
	Timezones TimezoneReport
	Changes   []storage.Change
}

// Run drives a batch from Classified to Persisted. store may be nil, in
// which case the batch stops at Merged.
func (e *Engine) Run(ctx context.Context, b Batch, store Store) (*Result, error) {
	updates := KeepRowsByDate(b.Updates, b.Window)
	res := &Result{Stage: Classified, Legs: updates}
	e.log.Infof("Processing %d of %d scraped flights inside the date window", len(updates), len(b.Updates))

	if err := e.ResolveAirports(updates, b.Window); err != nil {
		return res, fmt.Errorf("resolving airports: %w", err)
	}
	res.Stage = AirportResolved

	e.ResolveAirlines(updates)
	if err := e.ResolveAircraft(updates); err != nil {
		return res, fmt.Errorf("resolving aircraft: %w", err)
	}
	res.Stage = AirlineResolved

	var tzErr error
	if !b.SkipTimezones {
		rep, err := e.AddTimezones(ctx, updates, b.Timezones)
		res.Timezones = rep
		switch {
		case err == nil:
			res.Stage = TimezoneEnriched
		case errors.Is(err, ErrNoTimezoneClient):
			e.log.Warnf("Skipping time zones: %v", err)
		case geonames.IsFatal(err) && b.PersistPartial:
			e.log.Warnf("Keeping %d flights updated before the stop", rep.Updated)
			tzErr = err
		default:
			return res, fmt.Errorf("adding time zones: %w", err)
		}
	}

	existing := b.Existing
	if b.ReplaceWindow {
		existing = RemoveRowsByDate(existing, b.Window)
		e.log.Infof("Replacing %d existing flights inside the date window", len(b.Existing)-len(existing))
	}
	res.Legs = Merge(existing, updates, b.Window)
	res.Stage = Merged
	e.log.Infof("Merged set has %d flights (was %d)", len(res.Legs), len(b.Existing))

	if store == nil {
		return res, tzErr
	}
	changes, err := store.ReplaceLegs(ctx, res.Legs)
	if err != nil {
		return res, fmt.Errorf("persisting: %w", err)
	}
	res.Changes = changes
	res.Stage = Persisted
	return res, tzErr
}
