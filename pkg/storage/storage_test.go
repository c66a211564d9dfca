package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/record"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "flights.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLeg(t *testing.T, index int, raw, dep, arr string) record.FlightLeg {
	t.Helper()
	when, err := dateinfo.Classify(raw)
	require.NoError(t, err)
	return record.FlightLeg{
		Index:        index,
		When:         when,
		Dep:          record.Endpoint{IATA: dep, Lat: record.Float(40.64), Lon: record.Float(-73.78)},
		Arr:          record.Endpoint{IATA: arr, Lat: record.Float(51.47), Lon: record.Float(-0.45)},
		Distance:     5539,
		DistanceUnit: "km",
		Duration:     7*time.Hour + 20*time.Minute,
		FlightNum:    "BA178",
		HasComment:   true,
		TS:           time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestReplaceAndLoadLegs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	in := []record.FlightLeg{
		testLeg(t, 1, "24.12.2023 23:50 06:10 +1", "JFK", "LHR"),
		testLeg(t, 2, "03.2001", "LHR", "CDG"),
	}
	in[0].Dep.TZID = "America/New_York"
	in[0].Dep.GMTOffset = record.Float(-5)

	changes, err := db.ReplaceLegs(ctx, in)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, "added", c.ChangeType)
		assert.NotEmpty(t, c.RunID)
	}

	out, err := db.LoadLegs(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	got := out[0]
	assert.Equal(t, record.MergeKey(in[0]), record.MergeKey(got))
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, dateinfo.YMDT, got.When.Tag)
	assert.True(t, in[0].When.Arrival.Equal(got.When.Arrival))
	assert.True(t, in[0].When.Day.Equal(got.When.Day))
	assert.True(t, in[0].TS.Equal(got.TS))
	assert.Equal(t, "America/New_York", got.Dep.TZID)
	assert.Equal(t, -5.0, got.Dep.GMTOffset.Float64)
	assert.False(t, got.Arr.GMTOffset.Valid)
	assert.Equal(t, 7*time.Hour+20*time.Minute, got.Duration)
	assert.True(t, got.HasComment)

	assert.Equal(t, dateinfo.YM, out[1].When.Tag)
	assert.True(t, out[1].When.Departure.IsZero())
}

func TestReplaceLegsLogsChanges(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	a := testLeg(t, 1, "01.02.2020", "JFK", "LHR")
	b := testLeg(t, 2, "02.02.2020", "LHR", "JFK")

	_, err := db.ReplaceLegs(ctx, []record.FlightLeg{a, b})
	require.NoError(t, err)

	changes, err := db.ReplaceLegs(ctx, []record.FlightLeg{a, b})
	require.NoError(t, err)
	assert.Empty(t, changes, "same set should not log changes")

	a.Dep.TZID = "America/New_York"
	changes, err = db.ReplaceLegs(ctx, []record.FlightLeg{a})
	require.NoError(t, err)
	require.Len(t, changes, 2)

	types := map[string]string{}
	for _, c := range changes {
		types[c.Route] = c.ChangeType
	}
	assert.Equal(t, "updated", types["JFK-LHR"])
	assert.Equal(t, "removed", types["LHR-JFK"])

	recent, err := db.ListRecentChanges(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}

func TestReplaceLegsCollapsesDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	a := testLeg(t, 1, "01.02.2020", "JFK", "LHR")
	dup := a
	dup.Index = 2

	_, err := db.ReplaceLegs(ctx, []record.FlightLeg{a, dup})
	require.NoError(t, err)

	out, err := db.LoadLegs(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	a := testLeg(t, 1, "01.02.2020", "JFK", "LHR")
	a.Dep.TZID, a.Dep.GMTOffset = "America/New_York", record.Float(-5)
	a.Arr.TZID, a.Arr.GMTOffset = "Europe/London", record.Float(0)
	b := testLeg(t, 2, "02.02.2020", "LHR", "JFK")
	c := testLeg(t, 3, "2019", "LHR", "CDG")

	_, err := db.ReplaceLegs(ctx, []record.FlightLeg{a, b, c})
	require.NoError(t, err)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, YearStats{Year: "2019", Flights: 1, DistanceKm: 5539}, stats[0])
	assert.Equal(t, YearStats{Year: "2020", Flights: 2, DistanceKm: 11078, WithTimezone: 1}, stats[1])
}

// failingRows yields n rows and then reports an iteration error.
type failingRows struct {
	n, closed int
}

func (r *failingRows) Next() bool {
	if r.n == 0 {
		return false
	}
	r.n--
	return true
}

func (r *failingRows) Scan(dest ...interface{}) error {
	for i, d := range dest {
		*(d.(*interface{})) = fmt.Sprintf("v%d-%d", r.n, i)
	}
	return nil
}

func (r *failingRows) Err() error   { return errors.New("connection reset") }
func (r *failingRows) Close() error { r.closed++; return nil }

func TestScanExistingFailsOnIterationError(t *testing.T) {
	rows := &failingRows{n: 2}
	got, err := scanExisting(rows)
	require.EqualError(t, err, "connection reset")
	assert.Nil(t, got, "a partial set must not be diffed")
	assert.Positive(t, rows.closed)
}
