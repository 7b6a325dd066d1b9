// Package radar implements the time-expanded multi-source earliest-arrival
// search: from an origin station and a wall-clock query instant, within a
// duration budget, find the earliest arrival at every reachable stop and
// station, and the edge (trip boarding or transfer) that produced it.
package radar

import (
	"errors"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// ErrUnknownOrigin is returned when Config.Origin is not a station known to
// the index.
var ErrUnknownOrigin = errors.New("radar: unknown origin station")

// ErrMalformedRequest is returned for a request the core can identify as
// invalid on its face: a negative duration, an empty mode filter, or a
// transfer cap of zero or less.
var ErrMalformedRequest = errors.New("radar: malformed request")

// Config is one query's inputs: origin, instant, budget, and filters.
type Config struct {
	Origin radarid.StationID

	// Day is the service day the query instant was normalised to
	// (gtfstime.Normalise), carrying the weekday used for trip filtering.
	Day gtfstime.ServiceDay
	// QueryTime is the query instant expressed as seconds from Day's
	// origin (may be produced by gtfstime.Normalise alongside Day).
	QueryTime gtfstime.Seconds

	// Duration is the time budget, in seconds (already converted from
	// whatever unit the caller received it in).
	Duration int

	// Modes restricts which routes' trips may be boarded.
	Modes timetable.ModeFilter

	// TransferCap is the maximum single transfer walk considered, in
	// seconds.
	TransferCap int

	// Deadline, if non-zero, is a soft wall-clock budget: a close or send on
	// this channel may ask Search to stop early and return a partial,
	// Truncated tree. A nil or never-firing channel means no deadline.
	Deadline <-chan struct{}
}

// PredecessorKind discriminates the three ways a stop can first be reached.
type PredecessorKind uint8

const (
	// PredecessorOrigin marks one of the origin station's own platforms.
	PredecessorOrigin PredecessorKind = iota
	// PredecessorTripLeg marks a stop reached by riding a trip from a
	// boarding stop to an alighting stop.
	PredecessorTripLeg
	// PredecessorTransfer marks a stop reached by walking a transfer edge
	// (including the implicit zero-duration self-edge).
	PredecessorTransfer
)

// Predecessor is the edge that produced a stop's earliest-known arrival: a
// TripLeg, a Transfer, or Origin.
type Predecessor struct {
	Kind PredecessorKind

	// Valid when Kind == PredecessorTripLeg.
	Trip           radarid.TripID
	BoardPosition  int
	AlightPosition int

	// Offset is the day-overlay shift (0 or 86400 seconds) applied to the
	// trip's own stop-times to place this leg on the query's absolute
	// timeline. Valid when Kind == PredecessorTripLeg.
	Offset gtfstime.Seconds

	// Valid when Kind == PredecessorTransfer.
	TransferFrom    radarid.StopID
	TransferSeconds int
}

// Tree is the output of Search: for every reached stop, its earliest
// arrival and how it was first reached; for every reached station, its
// earliest arrival across all its stops.
type Tree struct {
	Origin    radarid.StationID
	QueryTime gtfstime.Seconds
	Duration  int

	EarliestAtStop    map[radarid.StopID]gtfstime.Seconds
	EarliestAtStation map[radarid.StationID]gtfstime.Seconds
	Predecessor       map[radarid.StopID]Predecessor

	// Truncated is set when the search stopped early because of
	// Config.Deadline rather than because it ran out of events or
	// exhausted the time budget.
	Truncated bool
}

// Budget returns the latest arrival second this tree could have emitted.
func (t *Tree) Budget() gtfstime.Seconds {
	return t.QueryTime.Add(t.Duration)
}
