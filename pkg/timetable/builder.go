package timetable

import (
	"fmt"
	"sort"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
)

// Builder assembles an Index from the data an external loader (pkg/gtfsload)
// supplies, assigning dense handles as each external id is first seen.
// Create one with NewBuilder; the zero value's maps are nil.
type Builder struct {
	stopIDs    radarid.Interner[radarid.StopID]
	stationIDs radarid.Interner[radarid.StationID]
	tripIDs    radarid.Interner[radarid.TripID]
	routeIDs   radarid.Interner[radarid.RouteID]

	stops    map[radarid.StopID]*Stop
	stations map[radarid.StationID]*Station
	routes   map[radarid.RouteID]Route
	trips    map[radarid.TripID]*Trip

	stationOfStop map[radarid.StopID]radarid.StationID
	childrenOf    map[radarid.StationID][]radarid.StopID
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		stops:         map[radarid.StopID]*Stop{},
		stations:      map[radarid.StationID]*Station{},
		routes:        map[radarid.RouteID]Route{},
		trips:         map[radarid.TripID]*Trip{},
		stationOfStop: map[radarid.StopID]radarid.StationID{},
		childrenOf:    map[radarid.StationID][]radarid.StopID{},
	}
}

// AddStation registers a station: a named, located grouping of platforms.
// extID is the feed's string identifier for it.
func (b *Builder) AddStation(extID, name string, loc Coordinates) radarid.StationID {
	id := b.stationIDs.Intern(extID)
	if _, ok := b.stations[id]; !ok {
		b.stations[id] = &Station{ID: id, Name: name, Location: loc}
	}
	return id
}

// AddStop registers a stop. If parentExtID is empty, the stop is standalone
// and is given a station of its own (every stop references exactly one
// station, itself if it is standalone), otherwise it joins the station
// previously or later registered under parentExtID via AddStation.
func (b *Builder) AddStop(extID, name string, loc Coordinates, mode Mode, parentExtID string) radarid.StopID {
	id := b.stopIDs.Intern(extID)

	var station radarid.StationID
	if parentExtID == "" {
		station = b.AddStation(extID, name, loc)
	} else {
		station = b.stationIDs.Intern(parentExtID)
	}

	b.stops[id] = &Stop{ID: id, Name: name, Location: loc, Station: station, Mode: mode}
	b.stationOfStop[id] = station
	b.childrenOf[station] = append(b.childrenOf[station], id)
	return id
}

// AddTransfer registers a directed transfer edge. Both ends must already
// have been registered with AddStop.
func (b *Builder) AddTransfer(fromExtID, toExtID string, seconds int) error {
	from, ok := b.stopIDs.Lookup(fromExtID)
	if !ok {
		return fmt.Errorf("%w: transfer references unknown from_stop %q", ErrInvalidIndex, fromExtID)
	}
	to, ok := b.stopIDs.Lookup(toExtID)
	if !ok {
		return fmt.Errorf("%w: transfer references unknown to_stop %q", ErrInvalidIndex, toExtID)
	}
	stop := b.stops[from]
	stop.Transfers = append(stop.Transfers, TransferEdge{From: from, To: to, Seconds: seconds})
	return nil
}

// AddRoute registers a named service line.
func (b *Builder) AddRoute(extID, shortName, longName string, mode Mode, colour, dash string) radarid.RouteID {
	id := b.routeIDs.Intern(extID)
	b.routes[id] = Route{ID: id, ShortName: shortName, LongName: longName, Mode: mode, Colour: colour, Dash: dash}
	return id
}

// SetRouteColour overrides the display colour/stroke style of every
// already-added route whose short name is shortName, for loaders that
// resolve a route's livery from a separate line-colour file (keyed by
// route_short_name) after routes.txt has been read.
func (b *Builder) SetRouteColour(shortName, colour, dash string) {
	for id, route := range b.routes {
		if route.ShortName != shortName {
			continue
		}
		route.Colour = colour
		route.Dash = dash
		b.routes[id] = route
	}
}

// SetStopMode overrides the mode an already-added stop was registered with,
// for loaders that only learn a stop's served mode once its trips' routes
// have been read (GTFS carries mode on route_type, not on stops.txt).
func (b *Builder) SetStopMode(extID string, mode Mode) {
	id, ok := b.stopIDs.Lookup(extID)
	if !ok {
		return
	}
	b.stops[id].Mode = mode
}

// AddTrip registers one operated run of a route. routeExtID must already
// have been registered with AddRoute.
func (b *Builder) AddTrip(extID, routeExtID string, weekdays gtfstime.WeekdaySet) (radarid.TripID, error) {
	route, ok := b.routeIDs.Lookup(routeExtID)
	if !ok {
		return 0, fmt.Errorf("%w: trip %q references unknown route %q", ErrInvalidIndex, extID, routeExtID)
	}
	id := b.tripIDs.Intern(extID)
	b.trips[id] = &Trip{ID: id, Route: route, Weekdays: weekdays}
	return id, nil
}

// AddStopTime appends one call of a trip at a stop. sequence is the feed's
// stop_sequence (not necessarily 0-based or contiguous); Build sorts each
// trip's stop-times by sequence and renumbers Position 0-based before
// validating it.
func (b *Builder) AddStopTime(tripExtID, stopExtID string, sequence int, arrival, departure gtfstime.Seconds) error {
	trip, ok := b.tripIDs.Lookup(tripExtID)
	if !ok {
		return fmt.Errorf("%w: stop_time references unknown trip %q", ErrInvalidIndex, tripExtID)
	}
	stop, ok := b.stopIDs.Lookup(stopExtID)
	if !ok {
		return fmt.Errorf("%w: stop_time references unknown stop %q", ErrInvalidIndex, stopExtID)
	}
	t := b.trips[trip]
	t.StopTimes = append(t.StopTimes, StopTime{
		Stop:      stop,
		Position:  sequence, // temporary: holds the raw sequence until Build sorts+renumbers
		Arrival:   arrival,
		Departure: departure,
	})
	return nil
}

// Build validates the relationship invariants collected by the Add* calls
// and produces an immutable Index. On any violation it returns
// ErrInvalidIndex wrapped with a description of the offending record; this
// is the core's only fatal error, and no index is produced.
func (b *Builder) Build() (*Index, error) {
	stops := make([]Stop, b.stopIDs.Len())
	for id, stop := range b.stops {
		stops[id] = *stop
	}

	stations := make([]Station, b.stationIDs.Len())
	for id, station := range b.stations {
		st := *station
		children := append([]radarid.StopID(nil), b.childrenOf[id]...)
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
		st.Stops = children
		stations[id] = st
	}

	routes := make([]Route, b.routeIDs.Len())
	for id, route := range b.routes {
		routes[id] = route
	}

	trips := make([]Trip, b.tripIDs.Len())
	for id, trip := range b.trips {
		t := *trip
		sort.SliceStable(t.StopTimes, func(i, j int) bool {
			return t.StopTimes[i].Position < t.StopTimes[j].Position
		})
		for i := range t.StopTimes {
			t.StopTimes[i].Position = i
		}
		trips[id] = t
	}

	if err := validate(stops, trips); err != nil {
		return nil, err
	}

	departures := buildDepartureIndex(stops, trips)

	stationByExternal := make(map[string]radarid.StationID, len(stations))
	for i := range stations {
		id := radarid.StationID(i)
		stationByExternal[b.stationIDs.External(id)] = id
	}
	stopByExternal := make(map[string]radarid.StopID, len(stops))
	for i := range stops {
		id := radarid.StopID(i)
		stopByExternal[b.stopIDs.External(id)] = id
	}

	return &Index{
		stops:             stops,
		stations:          stations,
		routes:            routes,
		trips:             trips,
		departures:        departures,
		stationByExternal: stationByExternal,
		stopByExternal:    stopByExternal,
	}, nil
}

func validate(stops []Stop, trips []Trip) error {
	for _, trip := range trips {
		if len(trip.StopTimes) < 2 {
			return fmt.Errorf("%w: trip %d has fewer than 2 stop-times", ErrInvalidIndex, trip.ID)
		}
		for i, st := range trip.StopTimes {
			if int(st.Stop) >= len(stops) {
				return fmt.Errorf("%w: trip %d stop-time %d references unknown stop %d", ErrInvalidIndex, trip.ID, i, st.Stop)
			}
			if st.Arrival > st.Departure {
				return fmt.Errorf("%w: trip %d stop-time %d has arrival after departure", ErrInvalidIndex, trip.ID, i)
			}
			if i > 0 {
				prev := trip.StopTimes[i-1]
				if st.Arrival < prev.Departure {
					return fmt.Errorf("%w: trip %d stop-time %d is not monotonic with its predecessor", ErrInvalidIndex, trip.ID, i)
				}
			}
		}
	}
	return nil
}

func buildDepartureIndex(stops []Stop, trips []Trip) [][]departure {
	byStop := make([][]departure, len(stops))
	for _, trip := range trips {
		for _, st := range trip.StopTimes {
			byStop[st.Stop] = append(byStop[st.Stop], departure{
				Seconds:  st.Departure,
				Trip:     trip.ID,
				Position: st.Position,
			})
		}
	}
	for i := range byStop {
		sort.Slice(byStop[i], func(a, c int) bool {
			return byStop[i][a].Seconds < byStop[i][c].Seconds
		})
	}
	return byStop
}
