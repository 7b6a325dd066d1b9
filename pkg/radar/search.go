package radar

import (
	"fmt"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// dayLength is the number of seconds in one calendar day; a search window
// reaching past it needs the next service day's overlay.
const dayLength = gtfstime.Seconds(24 * 60 * 60)

// Search runs the time-expanded earliest-arrival search over idx from
// cfg.Origin at cfg.QueryTime, within the cfg.Duration budget.
func Search(idx *timetable.Index, cfg Config) (*Tree, error) {
	if err := validateConfig(idx, cfg); err != nil {
		return nil, err
	}

	tree := &Tree{
		Origin:            cfg.Origin,
		QueryTime:         cfg.QueryTime,
		Duration:          cfg.Duration,
		EarliestAtStop:    map[radarid.StopID]gtfstime.Seconds{},
		EarliestAtStation: map[radarid.StationID]gtfstime.Seconds{},
		Predecessor:       map[radarid.StopID]Predecessor{},
	}
	budget := tree.Budget()

	s := &search{idx: idx, cfg: cfg, tree: tree, budget: budget, boardedAt: map[radarid.TripID]int{}, boardOffset: map[radarid.TripID]gtfstime.Seconds{}}
	s.queue = newEventQueue()

	for _, stop := range idx.StopsOfStation(cfg.Origin) {
		s.queue.push(event{kind: eventArrive, time: cfg.QueryTime, stop: stop, via: Predecessor{Kind: PredecessorOrigin}})
	}

	s.run()
	return tree, nil
}

func validateConfig(idx *timetable.Index, cfg Config) error {
	if int(cfg.Origin) >= idx.StationCount() {
		return fmt.Errorf("%w: station %d", ErrUnknownOrigin, cfg.Origin)
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrMalformedRequest, cfg.Duration)
	}
	if cfg.TransferCap <= 0 {
		return fmt.Errorf("%w: non-positive transfer cap %d", ErrMalformedRequest, cfg.TransferCap)
	}
	if cfg.Modes == 0 {
		return fmt.Errorf("%w: empty mode filter", ErrMalformedRequest)
	}
	return nil
}

// search holds the per-invocation state of one Search call: nothing here is
// shared across queries.
type search struct {
	idx    *timetable.Index
	cfg    Config
	tree   *Tree
	budget gtfstime.Seconds
	queue  *eventQueue

	// boardedAt[trip] is the earliest stop-time position this search has
	// boarded trip from so far. A later Arrive event that reaches an
	// earlier position re-boards the trip and replays its downstream chain;
	// positions already covered by the first boarding are naturally
	// dominated when reprocessed.
	boardedAt map[radarid.TripID]int

	// boardOffset[trip] is the day-overlay offset of the boarding that produced the currently in-flight
	// AlightAtNext chain for trip.
	boardOffset map[radarid.TripID]gtfstime.Seconds
}

func (s *search) run() {
	for {
		select {
		case <-s.cfg.Deadline:
			s.tree.Truncated = true
			return
		default:
		}

		e, ok := s.queue.pop()
		if !ok {
			return
		}
		if e.time > s.budget {
			return // every remaining event is >= e.time, so none are in budget either
		}

		switch e.kind {
		case eventArrive:
			s.handleArrive(e)
		case eventAlight:
			s.handleAlight(e)
		}
	}
}

func (s *search) handleArrive(e event) {
	if existing, ok := s.tree.EarliestAtStop[e.stop]; ok && e.time >= existing {
		return // dominated (spec P1/P2 rely on this being the only write path)
	}

	s.tree.EarliestAtStop[e.stop] = e.time
	s.tree.Predecessor[e.stop] = e.via

	station := s.idx.Stop(e.stop).Station
	if existing, ok := s.tree.EarliestAtStation[station]; !ok || e.time < existing {
		s.tree.EarliestAtStation[station] = e.time
	}

	s.enqueueTransfers(e.stop, e.time)
	s.enqueueBoardings(e.stop, e.time)
}

func (s *search) enqueueTransfers(stop radarid.StopID, departAt gtfstime.Seconds) {
	for _, edge := range s.idx.TransfersFrom(stop) {
		if edge.Seconds > s.cfg.TransferCap {
			continue
		}
		arriveAt := departAt.Add(edge.Seconds)
		if existing, ok := s.tree.EarliestAtStop[edge.To]; ok && arriveAt >= existing {
			continue
		}
		s.queue.push(event{
			kind: eventArrive,
			time: arriveAt,
			stop: edge.To,
			via: Predecessor{
				Kind:            PredecessorTransfer,
				TransferFrom:    stop,
				TransferSeconds: edge.Seconds,
			},
		})
	}
}

func (s *search) enqueueBoardings(stop radarid.StopID, from gtfstime.Seconds) {
	for _, d := range s.departuresInWindow(stop, from) {
		trip := s.idx.Trip(d.trip)
		if d.position == len(trip.StopTimes)-1 {
			continue // last position on the trip, nothing to alight onto
		}

		boarded, ok := s.boardedAt[d.trip]
		if ok && d.position >= boarded {
			continue // downstream of (or equal to) the existing boarding chain
		}
		s.boardedAt[d.trip] = d.position

		next := trip.StopTimes[d.position+1]
		s.queue.push(event{
			kind:          eventAlight,
			time:          next.Arrival.Add(int(d.offset)),
			trip:          d.trip,
			position:      d.position + 1,
			boardPosition: d.position,
		})
		s.boardOffset[d.trip] = d.offset
	}
}

func (s *search) handleAlight(e event) {
	trip := s.idx.Trip(e.trip)
	alight := trip.StopTimes[e.position]
	offset := s.boardOffset[e.trip]

	s.queue.push(event{
		kind: eventArrive,
		time: e.time,
		stop: alight.Stop,
		via: Predecessor{
			Kind:           PredecessorTripLeg,
			Trip:           e.trip,
			BoardPosition:  e.boardPosition,
			AlightPosition: e.position,
			Offset:         offset,
		},
	})

	if e.position+1 < len(trip.StopTimes) {
		next := trip.StopTimes[e.position+1]
		s.queue.push(event{
			kind:          eventAlight,
			time:          next.Arrival.Add(int(offset)),
			trip:          e.trip,
			position:      e.position + 1,
			boardPosition: e.boardPosition,
		})
	}
}

// windowedDeparture is a NextDepartures result annotated with the
// day-overlay offset that must be added to every subsequent stop-time on
// its trip to place it back on the query's absolute timeline.
type windowedDeparture struct {
	trip     radarid.TripID
	position int
	offset   gtfstime.Seconds
}

func (s *search) departuresInWindow(stop radarid.StopID, from gtfstime.Seconds) []windowedDeparture {
	var out []windowedDeparture

	today := s.idx.NextDepartures(stop, from, s.budget, s.cfg.Modes, s.cfg.Day.Weekday)
	for _, d := range today {
		out = append(out, windowedDeparture{trip: d.Trip, position: d.Position, offset: 0})
	}

	if s.budget <= dayLength {
		return out
	}

	tomorrowFrom := from - dayLength
	if tomorrowFrom < 0 {
		tomorrowFrom = 0
	}
	tomorrowUntil := s.budget - dayLength
	tomorrow := s.idx.NextDepartures(stop, tomorrowFrom, tomorrowUntil, s.cfg.Modes, s.cfg.Day.Weekday.Next())
	for _, d := range tomorrow {
		out = append(out, windowedDeparture{trip: d.Trip, position: d.Position, offset: dayLength})
	}
	return out
}
