// Package dateinfo turns the date, time and distance text scraped from a
// flight log into typed values.
package dateinfo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tag records how much of a leg's date and time could be recovered.
type Tag string

const (
	// Y is year only.
	Y Tag = "Y"
	// YM is year and month.
	YM Tag = "YM"
	// YMD is a full calendar date.
	YMD Tag = "YMD"
	// YMDO is a full date with a day offset but no times.
	YMDO Tag = "YMDO"
	// YMDT is a full date with departure and arrival times.
	YMDT Tag = "YMDT"
)

// Valid reports whether t is one of the five known tags.
func (t Tag) Valid() bool {
	switch t {
	case Y, YM, YMD, YMDO, YMDT:
		return true
	}
	return false
}

// Layout is the time layout of the normalized date for this tag.
func (t Tag) Layout() string {
	switch t {
	case Y:
		return "2006"
	case YM:
		return "2006-01"
	default:
		return "2006-01-02"
	}
}

// HasDay reports whether the tag carries a calendar day.
func (t Tag) HasDay() bool {
	return t == YMD || t == YMDO || t == YMDT
}

// DateInfo is the classified form of a "date [time_dep time_arr] [offset]" blob.
type DateInfo struct {
	Tag Tag
	// Date is the normalized date: YYYY, YYYY-MM or YYYY-MM-DD depending on Tag.
	Date string
	// Day is Date parsed as a time, missing parts set to the first month/day.
	Day time.Time
	// Departure and Arrival are set only for YMDT rows. Arrival already
	// includes Offset. A zero value means the time is unknown.
	Departure time.Time
	Arrival   time.Time
	// Offset is the signed arrival day offset.
	Offset int
}

// Format renders Day with the precision of Tag.
func (d DateInfo) Format() string {
	if d.Day.IsZero() {
		return ""
	}
	return d.Day.Format(d.Tag.Layout())
}

// Period returns the first and last calendar day the date can stand for.
// Y spans its year and YM its month; day-level tags span a single day.
func (d DateInfo) Period() (first, last time.Time) {
	switch {
	case d.Tag.HasDay():
		return d.Day, d.Day
	case d.Tag == YM:
		return d.Day, d.Day.AddDate(0, 1, -1)
	case d.Tag == Y:
		return d.Day, d.Day.AddDate(1, 0, -1)
	}
	return d.Day, d.Day
}

// ContractError is returned for rows that match none of the known shapes.
type ContractError struct {
	Raw    string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("date blob %q: %s", e.Raw, e.Reason)
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	dateOffsetRe  = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4})\s+([+-]\d)`)
	dayMonthYear  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	monthYear     = regexp.MustCompile(`^(\d{2})\.(\d{4})$`)
	yearOnly      = regexp.MustCompile(`^(\d{4})$`)
	clockRe       = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	offsetTokenRe = regexp.MustCompile(`^[+-]?\d+$`)
)

const timestampLayout = "2006-01-02 15:04"

// Classify parses a raw date blob. Every blob either classifies into exactly
// one Tag or returns a *ContractError.
func Classify(raw string) (DateInfo, error) {
	blob := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	// "DD.MM.YYYY +1" has no times; pad so the split still yields the
	// offset as the fourth token.
	blob = dateOffsetRe.ReplaceAllString(blob, "$1   $2")

	tokens := strings.SplitN(blob, " ", 4)
	for len(tokens) < 4 {
		tokens = append(tokens, "")
	}
	date, timeDep, timeArr, offset := tokens[0], tokens[1], tokens[2], strings.TrimSpace(tokens[3])

	var info DateInfo
	switch {
	case timeDep != "":
		info.Tag = YMDT
	case offset != "":
		info.Tag = YMDO
		timeDep, timeArr = "", ""
	case dayMonthYear.MatchString(date):
		info.Tag = YMD
	case monthYear.MatchString(date):
		info.Tag = YM
	case yearOnly.MatchString(date):
		info.Tag = Y
	default:
		return DateInfo{}, &ContractError{Raw: raw, Reason: "no recognised date shape"}
	}

	if offset == "" {
		offset = "0"
	}
	if !offsetTokenRe.MatchString(offset) {
		return DateInfo{}, &ContractError{Raw: raw, Reason: fmt.Sprintf("bad day offset %q", offset)}
	}
	days, err := strconv.Atoi(offset)
	if err != nil {
		return DateInfo{}, &ContractError{Raw: raw, Reason: err.Error()}
	}
	info.Offset = days

	switch info.Tag {
	case YM:
		m := monthYear.FindStringSubmatch(date)
		info.Date = m[2] + "-" + m[1]
	case Y:
		info.Date = yearOnly.FindStringSubmatch(date)[1]
	default:
		m := dayMonthYear.FindStringSubmatch(date)
		if m == nil {
			return DateInfo{}, &ContractError{Raw: raw, Reason: fmt.Sprintf("%s row without a full date", info.Tag)}
		}
		info.Date = m[3] + "-" + m[2] + "-" + m[1]
	}

	info.Day, err = time.Parse(info.Tag.Layout(), info.Date)
	if err != nil {
		return DateInfo{}, &ContractError{Raw: raw, Reason: err.Error()}
	}

	if info.Tag == YMDT {
		if info.Departure, err = parseClock(info.Date, timeDep); err != nil {
			return DateInfo{}, &ContractError{Raw: raw, Reason: err.Error()}
		}
		if timeArr != "" {
			if info.Arrival, err = parseClock(info.Date, timeArr); err != nil {
				return DateInfo{}, &ContractError{Raw: raw, Reason: err.Error()}
			}
			// The offset moves the arrival only.
			info.Arrival = info.Arrival.AddDate(0, 0, info.Offset)
		}
	}
	return info, nil
}

func parseClock(date, clock string) (time.Time, error) {
	if !clockRe.MatchString(clock) {
		return time.Time{}, fmt.Errorf("bad time %q", clock)
	}
	if len(clock) == 4 {
		clock = "0" + clock
	}
	return time.Parse(timestampLayout, date+" "+clock)
}
