package dateinfo

import (
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		tag    Tag
		date   string
		offset int
		dep    string
		arr    string
	}{
		{name: "year only", raw: "2019", tag: Y, date: "2019"},
		{name: "month and year", raw: "07.2019", tag: YM, date: "2019-07"},
		{name: "full date", raw: "03.07.2019", tag: YMD, date: "2019-07-03"},
		{name: "date with offset", raw: "03.07.2019 +1", tag: YMDO, date: "2019-07-03", offset: 1},
		{name: "date with negative offset collapses spaces", raw: "03.07.2019\n   -1", tag: YMDO, date: "2019-07-03", offset: -1},
		{name: "date and times", raw: "03.07.2019 10:15 12:45", tag: YMDT, date: "2019-07-03",
			dep: "2019-07-03 10:15", arr: "2019-07-03 12:45"},
		{name: "departure only", raw: "03.07.2019 10:15", tag: YMDT, date: "2019-07-03", dep: "2019-07-03 10:15"},
		{name: "times with offset", raw: "03.07.2019 23:50 06:10 +1", tag: YMDT, date: "2019-07-03", offset: 1,
			dep: "2019-07-03 23:50", arr: "2019-07-04 06:10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.raw)
			if err != nil {
				t.Fatalf("Classify(%q) error: %v", tt.raw, err)
			}
			if got.Tag != tt.tag {
				t.Fatalf("tag = %s, want %s", got.Tag, tt.tag)
			}
			if got.Date != tt.date {
				t.Fatalf("date = %s, want %s", got.Date, tt.date)
			}
			if got.Offset != tt.offset {
				t.Fatalf("offset = %d, want %d", got.Offset, tt.offset)
			}
			if s := formatTS(got.Departure); s != tt.dep {
				t.Fatalf("departure = %q, want %q", s, tt.dep)
			}
			if s := formatTS(got.Arrival); s != tt.arr {
				t.Fatalf("arrival = %q, want %q", s, tt.arr)
			}
			// The normalized date survives a round trip at the tag's precision.
			if got.Format() != got.Date {
				t.Fatalf("Format() = %s, want %s", got.Format(), got.Date)
			}
		})
	}
}

func TestClassifyOffsetOnlyMovesArrival(t *testing.T) {
	withOffset, err := Classify("31.12.2022 23:50 00:40 +1")
	if err != nil {
		t.Fatal(err)
	}
	literal := time.Date(2022, 12, 31, 0, 40, 0, 0, time.UTC)
	if !withOffset.Arrival.Equal(literal.AddDate(0, 0, 1)) {
		t.Fatalf("arrival = %v, want the day after the literal date", withOffset.Arrival)
	}
	if !withOffset.Departure.Equal(time.Date(2022, 12, 31, 23, 50, 0, 0, time.UTC)) {
		t.Fatalf("departure moved: %v", withOffset.Departure)
	}

	noOffset, err := Classify("31.12.2022 23:50 00:40 0")
	if err != nil {
		t.Fatal(err)
	}
	if !noOffset.Arrival.Equal(literal) {
		t.Fatalf("zero offset arrival = %v, want %v", noOffset.Arrival, literal)
	}
}

func TestClassifyYMDOHasNoTimes(t *testing.T) {
	got, err := Classify("03.07.2019 +2")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Departure.IsZero() || !got.Arrival.IsZero() {
		t.Fatalf("YMDO row kept times: %+v", got)
	}
}

func TestClassifyRejectsUnknownShapes(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "3.7.19", "abc 10:00", "2023abc", "07.2019x", "03.07.2019x 10:15", "03.07.2019x +1"} {
		_, err := Classify(raw)
		var ce *ContractError
		if !errors.As(err, &ce) {
			t.Fatalf("Classify(%q) error = %v, want *ContractError", raw, err)
		}
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		raw         string
		first, last string
	}{
		{"2024", "2024-01-01", "2024-12-31"},
		{"02.2024", "2024-02-01", "2024-02-29"},
		{"12.2023", "2023-12-01", "2023-12-31"},
		{"15.06.2023", "2023-06-15", "2023-06-15"},
		{"15.06.2023 10:00 12:00", "2023-06-15", "2023-06-15"},
	}
	for _, tt := range tests {
		d, err := Classify(tt.raw)
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", tt.raw, err)
		}
		first, last := d.Period()
		if got := first.Format("2006-01-02"); got != tt.first {
			t.Errorf("%q first = %s, want %s", tt.raw, got, tt.first)
		}
		if got := last.Format("2006-01-02"); got != tt.last {
			t.Errorf("%q last = %s, want %s", tt.raw, got, tt.last)
		}
	}
}

func TestParseDistance(t *testing.T) {
	got, err := ParseDistance("1,234||km||02:15||h")
	if err != nil {
		t.Fatal(err)
	}
	if got.Distance != 1234.0 {
		t.Fatalf("distance = %v, want 1234", got.Distance)
	}
	if got.Duration != 2*time.Hour+15*time.Minute {
		t.Fatalf("duration = %v, want 2h15m", got.Duration)
	}
	if got.DistanceUnit != "km" || got.DurationUnit != "h" {
		t.Fatalf("units = %q %q", got.DistanceUnit, got.DurationUnit)
	}

	if _, err := ParseDistance("far||km||02:15||h"); err == nil {
		t.Fatalf("expected error for non-numeric distance")
	}

	partial, err := ParseDistance("850||km")
	if err != nil {
		t.Fatal(err)
	}
	if partial.Distance != 850 || partial.Duration != 0 {
		t.Fatalf("partial = %+v", partial)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(11*time.Hour + 5*time.Minute); got != "11:05" {
		t.Fatalf("FormatDuration = %s", got)
	}
}

func formatTS(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(timestampLayout)
}
