package dateinfo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DistanceDuration is the parsed "distance||unit||H:MM||unit" blob.
type DistanceDuration struct {
	Distance     float64
	DistanceUnit string
	Duration     time.Duration
	DurationUnit string
}

// ParseDistance splits the distance/duration blob on "||". Commas are
// thousands separators. Missing trailing parts are left zero.
func ParseDistance(raw string) (DistanceDuration, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "||", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	out := DistanceDuration{DistanceUnit: parts[1], DurationUnit: parts[3]}
	if d := strings.ReplaceAll(parts[0], ",", ""); d != "" {
		v, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return DistanceDuration{}, fmt.Errorf("distance %q: %w", parts[0], err)
		}
		out.Distance = v
	}
	if parts[2] != "" {
		dur, err := ParseDuration(parts[2])
		if err != nil {
			return DistanceDuration{}, err
		}
		out.Duration = dur
	}
	return out, nil
}

// ParseDuration parses "H:MM" into a time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("duration %q: want H:MM", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	mins, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute, nil
}

// FormatDuration renders d as zero-padded "HH:MM".
func FormatDuration(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
