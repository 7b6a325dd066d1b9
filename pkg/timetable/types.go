package timetable

import (
	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
)

// Coordinates is a geographic location, decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Stop is a physical platform or boarding point.
type Stop struct {
	ID        radarid.StopID
	Name      string
	Location  Coordinates
	Station   radarid.StationID
	Mode      Mode
	Transfers []TransferEdge
}

// Station is a parent grouping of platforms sharing a name and location.
// A stop with no siblings still has a Station of its own with a single
// child.
type Station struct {
	ID       radarid.StationID
	Name     string
	Location Coordinates
	Stops    []radarid.StopID
}

// TransferEdge is a directed, timed walking connection between two stops.
type TransferEdge struct {
	From    radarid.StopID
	To      radarid.StopID
	Seconds int
}

// Route is a named service line.
type Route struct {
	ID        radarid.RouteID
	ShortName string
	LongName  string
	Mode      Mode
	Colour    string
	Dash      string // display stroke style, e.g. "solid" or "2,4"
}

// StopTime is one call of one trip at one stop.
type StopTime struct {
	Stop      radarid.StopID
	Position  int
	Arrival   gtfstime.Seconds
	Departure gtfstime.Seconds
}

// Trip is one operated run of a route on a given service day pattern.
type Trip struct {
	ID        radarid.TripID
	Route     radarid.RouteID
	Weekdays  gtfstime.WeekdaySet
	StopTimes []StopTime
}

// TripStopRef refers to a specific stop-time of a specific trip by its
// position within the trip's stop-time sequence.
type TripStopRef struct {
	Trip     radarid.TripID
	Position int
}
