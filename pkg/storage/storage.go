// Package storage keeps the canonical flight set in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/record"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

var schema = `
CREATE TABLE IF NOT EXISTS flight_legs (
  id           INTEGER PRIMARY KEY,
  merge_key    TEXT NOT NULL UNIQUE,
  run_id       TEXT NOT NULL,
  ` + strings.Join(columnDefs(), ",\n  ") + `
);
CREATE INDEX IF NOT EXISTS idx_legs_date ON flight_legs(date);
CREATE TABLE IF NOT EXISTS leg_changes (
  id           INTEGER PRIMARY KEY,
  occurred_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  run_id       TEXT NOT NULL,
  merge_key    TEXT NOT NULL,
  date         TEXT,
  route        TEXT,
  flightnum    TEXT,
  change_type  TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON leg_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_run ON leg_changes(run_id);
`

// LoadLegs returns the canonical set ordered by display index.
func (d *DB) LoadLegs(ctx context.Context) ([]record.FlightLeg, error) {
	q := "SELECT " + strings.Join(columnNames(), ", ") + " FROM flight_legs ORDER BY flight_index, id"
	rows, err := d.sql.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.FlightLeg
	for rows.Next() {
		l, err := scanLeg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceLegs overwrites the canonical set with legs in one transaction and
// logs what changed against the previous set. Legs are identified by their
// merge key; a leg whose enrichment or display index moved is "updated".
func (d *DB) ReplaceLegs(ctx context.Context, legs []record.FlightLeg) ([]Change, error) {
	now := time.Now().UTC()
	runID := uuid.NewString()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT merge_key, date, iata_dep, iata_arr, flightnum, "+strings.Join(fingerprintColumns, ", ")+" FROM flight_legs")
	if err != nil {
		return nil, err
	}
	existingMap, err := scanExisting(rows)
	if err != nil {
		return nil, fmt.Errorf("reading stored legs: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM flight_legs"); err != nil {
		return nil, err
	}

	cols := columnNames()
	insert := "INSERT INTO flight_legs(merge_key, run_id, " + strings.Join(cols, ", ") + ") VALUES(?, ?" + strings.Repeat(", ?", len(cols)) + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var changes []Change
	written := make(map[string]bool, len(legs))
	for _, l := range legs {
		key := record.MergeKey(l)
		if written[key] {
			continue
		}
		written[key] = true

		vals := legValues(l)
		if _, err = stmt.ExecContext(ctx, append([]interface{}{key, runID}, vals...)...); err != nil {
			return nil, err
		}

		c := Change{OccurredAt: now, RunID: runID, MergeKey: key, Date: l.When.Date, Route: l.Dep.IATA + "-" + l.Arr.IATA, FlightNum: l.FlightNum}
		ex, existed := existingMap[key]
		switch {
		case !existed:
			c.ChangeType = "added"
		case ex.fingerprint != fingerprint(l):
			c.ChangeType = "updated"
		default:
			continue
		}
		changes = append(changes, c)
	}

	removed := make([]string, 0, len(existingMap))
	for key := range existingMap {
		if !written[key] {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	for _, key := range removed {
		ex := existingMap[key]
		changes = append(changes, Change{OccurredAt: now, RunID: runID, MergeKey: key, Date: ex.date, Route: ex.route, FlightNum: ex.flightNum, ChangeType: "removed"})
	}

	for _, c := range changes {
		_, err = tx.ExecContext(ctx, `INSERT INTO leg_changes(occurred_at, run_id, merge_key, date, route, flightnum, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?)`, c.RunID, c.MergeKey, nullIfEmpty(c.Date), nullIfEmpty(c.Route), nullIfEmpty(c.FlightNum), c.ChangeType)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// storedLeg is what ReplaceLegs needs to know about a leg already stored.
type storedLeg struct {
	date, route, flightNum, fingerprint string
}

// resultRows is the part of *sql.Rows the existing-set scan uses.
type resultRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// scanExisting reads merge_key, date, iata_dep, iata_arr, flightnum and the
// fingerprint columns, closing rows. An iteration error fails the whole scan
// so a truncated set is never diffed.
func scanExisting(rows resultRows) (map[string]storedLeg, error) {
	defer rows.Close()
	out := make(map[string]storedLeg)
	for rows.Next() {
		raw := make([]interface{}, 5+len(fingerprintColumns))
		dest := make([]interface{}, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		parts := make([]string, len(fingerprintColumns))
		for i, v := range raw[5:] {
			parts[i] = asString(v)
		}
		out[asString(raw[0])] = storedLeg{
			date:        asString(raw[1]),
			route:       asString(raw[2]) + "-" + asString(raw[3]),
			flightNum:   asString(raw[4]),
			fingerprint: strings.Join(parts, "|"),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, rows.Close()
}

// ListRecentChanges returns the most recent N changes.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, run_id, merge_key, date, route, flightnum, change_type FROM leg_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAtStr string
		var date, route, fn sql.NullString
		if err := rows.Scan(&occurredAtStr, &c.RunID, &c.MergeKey, &date, &route, &fn, &c.ChangeType); err != nil {
			return nil, err
		}
		// SQLite CURRENT_TIMESTAMP, or RFC3339 depending on the driver.
		if t, perr := time.Parse("2006-01-02 15:04:05", occurredAtStr); perr == nil {
			c.OccurredAt = t
		} else if t2, perr2 := time.Parse(time.RFC3339, occurredAtStr); perr2 == nil {
			c.OccurredAt = t2
		}
		c.Date, c.Route, c.FlightNum = date.String, route.String, fn.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (d *DB) GetStats(ctx context.Context) ([]YearStats, error) {
	query := `
		SELECT
			substr(date, 1, 4),
			COUNT(*),
			COALESCE(SUM(dist), 0),
			SUM(CASE WHEN tzid_dep IS NOT NULL AND tzid_arr IS NOT NULL
			          AND gmtoffset_dep IS NOT NULL AND gmtoffset_arr IS NOT NULL THEN 1 ELSE 0 END)
		FROM
			flight_legs
		GROUP BY
			substr(date, 1, 4)
		ORDER BY
			substr(date, 1, 4);
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []YearStats
	for rows.Next() {
		var s YearStats
		if err := rows.Scan(&s.Year, &s.Flights, &s.DistanceKm, &s.WithTimezone); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullFloat(v sql.NullFloat64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.String)
}

func rebuildDay(info *dateinfo.DateInfo) error {
	if info.Date == "" {
		return nil
	}
	if !info.Tag.Valid() {
		return fmt.Errorf("unknown dt_info %q", info.Tag)
	}
	day, err := time.Parse(info.Tag.Layout(), info.Date)
	if err != nil {
		return err
	}
	info.Day = day
	return nil
}
