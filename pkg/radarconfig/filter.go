package radarconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	iso8601 "github.com/senseyeio/duration"

	"github.com/travigo/transit-radar/pkg/radar"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// Default filter values.
const (
	DefaultDurationMinutes = 30
	MinDurationMinutes     = 1
	MaxDurationMinutes     = 90
	DefaultTransferCapSeconds = 600
)

// modeTokens maps the query-string mode names to the domain Mode enum.
var modeTokens = map[string]timetable.Mode{
	"sbahn": timetable.ModeSuburbanRail,
	"ubahn": timetable.ModeSubwayMetro,
	"tram":  timetable.ModeTram,
	"bus":   timetable.ModeBus,
	"regio": timetable.ModeRegionalRail,
	"boat":  timetable.ModeFerry,
}

// ParseModes parses a comma-separated subset of {sbahn,ubahn,tram,bus,regio,
// boat}. An empty string means every mode.
func ParseModes(raw string) (timetable.ModeFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return timetable.AllModes(), nil
	}

	var filter timetable.ModeFilter
	for _, token := range strings.Split(raw, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		mode, ok := modeTokens[token]
		if !ok {
			return 0, fmt.Errorf("%w: unrecognised mode %q", radar.ErrMalformedRequest, token)
		}
		filter = filter.With(mode)
	}
	return filter, nil
}

// ParseDurationMinutes parses duration_minutes: either a plain integer in
// [1, 90], or an ISO-8601 duration literal such as "PT30M", converted to
// whole minutes. An empty string yields DefaultDurationMinutes.
func ParseDurationMinutes(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDurationMinutes, nil
	}

	var minutes int
	if strings.HasPrefix(raw, "P") {
		seconds, err := iso8601Seconds(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid duration %q: %v", radar.ErrMalformedRequest, raw, err)
		}
		minutes = seconds / 60
	} else {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid duration_minutes %q", radar.ErrMalformedRequest, raw)
		}
		minutes = parsed
	}

	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return 0, fmt.Errorf("%w: duration_minutes %d out of range [%d, %d]", radar.ErrMalformedRequest, minutes, MinDurationMinutes, MaxDurationMinutes)
	}
	return minutes, nil
}

// ParseTransferCapSeconds parses transfer_cap_seconds, accepting
// the same ISO-8601 literal extension as ParseDurationMinutes. An empty
// string yields DefaultTransferCapSeconds.
func ParseTransferCapSeconds(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTransferCapSeconds, nil
	}

	if strings.HasPrefix(raw, "P") {
		seconds, err := iso8601Seconds(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid transfer_cap_seconds %q: %v", radar.ErrMalformedRequest, raw, err)
		}
		return seconds, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid transfer_cap_seconds %q", radar.ErrMalformedRequest, raw)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%w: transfer_cap_seconds must be positive, got %d", radar.ErrMalformedRequest, seconds)
	}
	return seconds, nil
}

// ParseTime parses the time query parameter: an RFC3339/ISO-8601
// timestamp, or "now" (the default) for the current instant.
func ParseTime(raw string, now func() time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "now") {
		return now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid time %q: %v", radar.ErrMalformedRequest, raw, err)
	}
	return t, nil
}

// iso8601Seconds converts an ISO-8601 duration literal to a whole number of
// seconds, by shifting a fixed reference instant and measuring the
// difference (github.com/senseyeio/duration.Duration exposes no direct
// seconds accessor, only Shift).
func iso8601Seconds(literal string) (int, error) {
	d, err := iso8601.ParseISO8601(literal)
	if err != nil {
		return 0, err
	}
	reference := time.Unix(0, 0).UTC()
	return int(d.Shift(reference).Sub(reference).Seconds()), nil
}
