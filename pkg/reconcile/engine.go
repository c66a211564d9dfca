// Package reconcile enriches freshly scraped flight legs and folds them into
// the canonical set.
package reconcile

import (
	"context"
	"time"

	"github.com/flightlog/fmsave/pkg/fuzzy"
	"github.com/flightlog/fmsave/pkg/geonames"
	"github.com/flightlog/fmsave/pkg/reference"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// TimezoneFinder looks up the timezone of a coordinate on a date.
// *geonames.Client satisfies it.
type TimezoneFinder interface {
	FindTimezone(ctx context.Context, lat, lon float64, date string, timeout time.Duration, maxRetries int) (geonames.TimezoneResult, error)
}

// Config holds the engine's collaborators and tunables.
type Config struct {
	Tables   *reference.Tables
	Timezone TimezoneFinder // optional; nil skips timezone enrichment
	Chooser  fuzzy.Chooser  // optional; nil never prompts
	Log      Logger         // optional; nil = no logging

	// Per-lookup timeout and retry budget handed to the TimezoneFinder.
	Timeout    time.Duration // defaults to 3s
	MaxRetries int           // defaults to 5
}

// Engine runs the resolution, enrichment and merge stages over one batch.
// It reads the reference tables but never writes to them.
type Engine struct {
	tables     *reference.Tables
	tz         TimezoneFinder
	chooser    fuzzy.Chooser
	log        Logger
	timeout    time.Duration
	maxRetries int
}

// New builds an Engine, filling in defaults.
func New(cfg Config) *Engine {
	e := &Engine{
		tables:     cfg.Tables,
		tz:         cfg.Timezone,
		chooser:    cfg.Chooser,
		log:        cfg.Log,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
	}
	if e.tables == nil {
		e.tables = reference.NewTables(nil, nil, nil)
	}
	if e.log == nil {
		e.log = nopLogger{}
	}
	if e.timeout <= 0 {
		e.timeout = 3 * time.Second
	}
	if e.maxRetries <= 0 {
		e.maxRetries = 5
	}
	return e
}
