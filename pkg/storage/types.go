package storage

import "time"

// Change captures a single change to the canonical set for auditing or
// printing.
type Change struct {
	OccurredAt time.Time
	RunID      string

	// Leg info
	MergeKey  string
	Date      string
	Route     string // "DEP-ARR"
	FlightNum string

	ChangeType string // added | updated | removed
}

// YearStats summarizes the stored legs of one year.
type YearStats struct {
	Year         string
	Flights      int
	DistanceKm   float64
	WithTimezone int // legs with both endpoints enriched
}
