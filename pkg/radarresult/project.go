// Package radarresult reduces a radar.Tree into the client-facing model:
// reached stations with compass bearings, the trip segments and transfers
// that produced them.
package radarresult

import (
	"math"
	"sort"

	"github.com/jinzhu/copier"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radar"
	"github.com/travigo/transit-radar/pkg/radarid"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// StationView is one reached station projected for display.
type StationView struct {
	Station radarid.StationID `json:"-" groups:"internal"`
	Name    string            `json:"name" groups:"basic"`
	Bearing float64           `json:"bearing" groups:"basic"`
	Seconds int               `json:"seconds" groups:"basic"`
}

// SegmentView is one (from_stop, to_stop) hop of a trip segment, with the
// seconds-from-origin at each end.
type SegmentView struct {
	FromStop    radarid.StopID `json:"from_stop" groups:"basic"`
	ToStop      radarid.StopID `json:"to_stop" groups:"basic"`
	FromSeconds int            `json:"from_seconds" groups:"basic"`
	ToSeconds   int            `json:"to_seconds" groups:"basic"`
}

// TripView groups the segments of the tree that ride a single trip.
type TripView struct {
	RouteName string         `json:"route_name" groups:"basic"`
	Mode      timetable.Mode `json:"mode" groups:"basic"`
	Segments  []SegmentView  `json:"segments" groups:"basic"`
}

// ConnectionView is a transfer used as a predecessor in the tree.
type ConnectionView struct {
	FromStop    radarid.StopID `json:"from_stop" groups:"basic"`
	ToStop      radarid.StopID `json:"to_stop" groups:"basic"`
	FromSeconds int            `json:"from_seconds" groups:"basic"`
	ToSeconds   int            `json:"to_seconds" groups:"basic"`
	RouteName   string         `json:"route_name,omitempty" groups:"basic"`
}

// Result is the full projected output of a radar query. The groups:"basic"
// tags let pkg/radarserver marshal it with github.com/liip/sheriff before
// writing a response.
type Result struct {
	DurationMinutes int              `json:"duration_minutes" groups:"basic"`
	DepartureDay    string           `json:"departure_day" groups:"basic"`
	DepartureTime   string           `json:"departure_time" groups:"basic"`
	Stations        []StationView    `json:"stops" groups:"basic"`
	Connections     []ConnectionView `json:"connections" groups:"basic"`
	Trips           []TripView       `json:"trips" groups:"basic"`
}

// Project reduces tree into a Result. idx supplies display names,
// coordinates and route metadata; day is the service day the search ran
// against, used to render departure_day/departure_time.
func Project(idx *timetable.Index, tree *radar.Tree, day gtfstime.ServiceDay) Result {
	originLoc := idx.Station(tree.Origin).Location

	stations := projectStations(idx, tree, originLoc)
	trips := projectTrips(idx, tree)
	connections := projectConnections(idx, tree)

	return Result{
		DurationMinutes: tree.Duration / 60,
		DepartureDay:    day.Weekday.String(),
		DepartureTime:   tree.QueryTime.String(),
		Stations:        stations,
		Connections:     connections,
		Trips:           trips,
	}
}

func projectStations(idx *timetable.Index, tree *radar.Tree, originLoc timetable.Coordinates) []StationView {
	views := make([]StationView, 0, len(tree.EarliestAtStation))
	var visualOriginSet bool

	stationIDs := make([]radarid.StationID, 0, len(tree.EarliestAtStation))
	for id := range tree.EarliestAtStation {
		stationIDs = append(stationIDs, id)
	}
	sort.Slice(stationIDs, func(i, j int) bool { return stationIDs[i] < stationIDs[j] })

	for _, id := range stationIDs {
		arrival := tree.EarliestAtStation[id]
		station := idx.Station(id)

		view := StationView{Station: id}
		_ = copier.CopyWithOption(&view, &station, copier.Option{IgnoreEmpty: true})

		view.Seconds = arrival.Sub(tree.QueryTime)
		view.Bearing = bearing(originLoc, station.Location)

		if view.Seconds == 0 && !visualOriginSet && id == tree.Origin {
			view.Bearing = normaliseDegrees(view.Bearing + 180)
			visualOriginSet = true
		}

		views = append(views, view)
	}
	return views
}

// bearing returns the compass angle in degrees from 'from' to 'to', 0 = east,
// measured counter-clockwise.
func bearing(from, to timetable.Coordinates) float64 {
	dx := to.Lon - from.Lon
	dy := to.Lat - from.Lat
	if dx == 0 && dy == 0 {
		return 0
	}
	return normaliseDegrees(math.Atan2(dy, dx) * 180 / math.Pi)
}

func normaliseDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func projectTrips(idx *timetable.Index, tree *radar.Tree) []TripView {
	positionsByTrip := map[radarid.TripID]map[int]radarid.StopID{}
	boardPositionByTrip := map[radarid.TripID]int{}

	for stop, pred := range tree.Predecessor {
		if pred.Kind != radar.PredecessorTripLeg {
			continue
		}
		if positionsByTrip[pred.Trip] == nil {
			positionsByTrip[pred.Trip] = map[int]radarid.StopID{}
		}
		positionsByTrip[pred.Trip][pred.AlightPosition] = stop
		boardPositionByTrip[pred.Trip] = pred.BoardPosition
	}

	tripIDs := make([]radarid.TripID, 0, len(positionsByTrip))
	for trip := range positionsByTrip {
		tripIDs = append(tripIDs, trip)
	}
	sort.Slice(tripIDs, func(i, j int) bool { return tripIDs[i] < tripIDs[j] })

	views := make([]TripView, 0, len(tripIDs))
	for _, tripID := range tripIDs {
		trip := idx.Trip(tripID)
		route := idx.Route(trip.Route)
		boardPosition := boardPositionByTrip[tripID]

		positions := []int{boardPosition}
		for pos := range positionsByTrip[tripID] {
			positions = append(positions, pos)
		}
		sort.Ints(positions)

		offset := findLegOffset(tree, positionsByTrip[tripID], tripID)

		segments := make([]SegmentView, 0, len(positions)-1)
		for i := 1; i < len(positions); i++ {
			fromPos, toPos := positions[i-1], positions[i]
			from := trip.StopTimes[fromPos]
			to := trip.StopTimes[toPos]
			segments = append(segments, SegmentView{
				FromStop:    from.Stop,
				ToStop:      to.Stop,
				FromSeconds: from.Departure.Add(int(offset)).Sub(tree.QueryTime),
				ToSeconds:   to.Arrival.Add(int(offset)).Sub(tree.QueryTime),
			})
		}

		views = append(views, TripView{
			RouteName: route.ShortName,
			Mode:      route.Mode,
			Segments:  segments,
		})
	}
	return views
}

// findLegOffset recovers the day-overlay offset applied to tripID's leg from
// the stop it produced, since Tree does not carry the offset independently
// of the Predecessor that used it.
func findLegOffset(tree *radar.Tree, alightStops map[int]radarid.StopID, tripID radarid.TripID) gtfstime.Seconds {
	for _, stop := range alightStops {
		if pred, ok := tree.Predecessor[stop]; ok && pred.Trip == tripID {
			return pred.Offset
		}
	}
	return 0
}

func projectConnections(idx *timetable.Index, tree *radar.Tree) []ConnectionView {
	stops := make([]radarid.StopID, 0, len(tree.Predecessor))
	for stop := range tree.Predecessor {
		stops = append(stops, stop)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i] < stops[j] })

	var views []ConnectionView
	for _, stop := range stops {
		pred := tree.Predecessor[stop]
		if pred.Kind != radar.PredecessorTransfer {
			continue
		}

		view := ConnectionView{
			FromStop:    pred.TransferFrom,
			ToStop:      stop,
			FromSeconds: tree.EarliestAtStop[pred.TransferFrom].Sub(tree.QueryTime),
			ToSeconds:   tree.EarliestAtStop[stop].Sub(tree.QueryTime),
		}

		if fromPred, ok := tree.Predecessor[pred.TransferFrom]; ok && fromPred.Kind == radar.PredecessorTripLeg {
			route := idx.Route(idx.Trip(fromPred.Trip).Route)
			view.RouteName = route.ShortName
		}

		views = append(views, view)
	}
	return views
}
