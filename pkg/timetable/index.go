package timetable

import (
	"sort"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
)

// departure is one entry of departures_by_stop:
// a trip's departure from the stop the slice is indexed by.
type departure struct {
	Seconds  gtfstime.Seconds
	Trip     radarid.TripID
	Position int
}

// Index is the immutable, shareable timetable snapshot. It is built once by
// Builder.Build and never mutated afterwards; concurrent searches hold it
// by pointer and require no synchronisation.
type Index struct {
	stops      []Stop
	stations   []Station
	routes     []Route
	trips      []Trip
	departures [][]departure // indexed by StopID, ascending by Seconds

	stationByExternal map[string]radarid.StationID
	stopByExternal    map[string]radarid.StopID
}

// StationByExternalID resolves the feed's string identifier for a station
// (e.g. a GTFS stop_id of location_type=1) to its dense handle, for an
// external caller (pkg/radarserver) translating a request's origin
// parameter into a radar.Config.Origin.
func (idx *Index) StationByExternalID(extID string) (radarid.StationID, bool) {
	id, ok := idx.stationByExternal[extID]
	return id, ok
}

// StopByExternalID resolves the feed's string identifier for a stop to its
// dense handle.
func (idx *Index) StopByExternalID(extID string) (radarid.StopID, bool) {
	id, ok := idx.stopByExternal[extID]
	return id, ok
}

// Stop returns the stop registered under id.
func (idx *Index) Stop(id radarid.StopID) Stop {
	return idx.stops[int(id)]
}

// Station returns the station registered under id.
func (idx *Index) Station(id radarid.StationID) Station {
	return idx.stations[int(id)]
}

// Route returns the route registered under id.
func (idx *Index) Route(id radarid.RouteID) Route {
	return idx.routes[int(id)]
}

// Trip returns the trip registered under id.
func (idx *Index) Trip(id radarid.TripID) *Trip {
	return &idx.trips[int(id)]
}

// StopCount returns the number of distinct stops in the index.
func (idx *Index) StopCount() int { return len(idx.stops) }

// StationCount returns the number of distinct stations in the index.
func (idx *Index) StationCount() int { return len(idx.stations) }

// StopsOfStation returns the stop ids belonging to station.
func (idx *Index) StopsOfStation(station radarid.StationID) []radarid.StopID {
	return idx.stations[int(station)].Stops
}

// Departure is one candidate boarding returned by NextDepartures: the
// trip and the 0-based position within its stop-time sequence of the
// stop-time that departs.
type Departure struct {
	Trip     radarid.TripID
	Position int
}

// NextDepartures returns, in ascending departure order, every stop-time at
// stop whose departure falls in [from, until], whose trip's route passes
// modes and whose trip runs on weekday.
// Implemented by binary-searching the ascending departures_by_stop[stop]
// table for the lower bound of from and iterating while the seconds value
// stays at or below until.
func (idx *Index) NextDepartures(stop radarid.StopID, from, until gtfstime.Seconds, modes ModeFilter, weekday gtfstime.Weekday) []Departure {
	table := idx.departures[int(stop)]
	lower := sort.Search(len(table), func(i int) bool { return table[i].Seconds >= from })

	var out []Departure
	for _, d := range table[lower:] {
		if d.Seconds > until {
			break
		}
		trip := &idx.trips[int(d.Trip)]
		if !trip.Weekdays.Contains(weekday) {
			continue
		}
		route := idx.routes[int(trip.Route)]
		if !modes.Allows(route.Mode) {
			continue
		}
		out = append(out, Departure{Trip: d.Trip, Position: d.Position})
	}
	return out
}

// TransfersFrom returns every transfer edge leaving stop, including the
// implicit self-edge (from == to, duration 0, meaning "stay at this stop").
// A declared transfer edge whose destination stop belongs to a
// multi-platform station additionally fans out, at the same cost, to every
// other platform of that station except stop itself.
func (idx *Index) TransfersFrom(stop radarid.StopID) []TransferEdge {
	edges := []TransferEdge{{From: stop, To: stop, Seconds: 0}}

	declared := idx.stops[int(stop)].Transfers
	edges = append(edges, declared...)

	for _, e := range declared {
		siblings := idx.stations[int(idx.stops[int(e.To)].Station)].Stops
		if len(siblings) <= 1 {
			continue
		}
		for _, sibling := range siblings {
			if sibling == e.To || sibling == stop {
				continue
			}
			edges = append(edges, TransferEdge{From: stop, To: sibling, Seconds: e.Seconds})
		}
	}
	return edges
}
