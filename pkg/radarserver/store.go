// Package radarserver is the HTTP surface of the transit reachability
// engine: it wraps pkg/radar, pkg/radarresult and pkg/stationsearch behind a
// fiber app and a urfave/cli command set.
package radarserver

import (
	"fmt"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/travigo/transit-radar/pkg/gtfsload"
	"github.com/travigo/transit-radar/pkg/stationsearch"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// bundle is one atomically-swappable generation of the loaded feed: the
// timetable index and the station search structure built from it travel
// together so a reader never observes one refreshed without the other.
type bundle struct {
	index    *timetable.Index
	stations *stationsearch.Index
	gtfsDir  string
}

// Store holds the live feed generation behind an atomic pointer: the index
// is swapped, not mutated, at refresh time. Readers call Current and hold
// the returned bundle for the lifetime of one request; an in-flight request
// keeps its bundle reachable even after Refresh installs a newer one, since
// Go's garbage collector only reclaims it once the last reader lets go.
type Store struct {
	current atomic.Pointer[bundle]
}

// NewStore returns an empty Store. Call Refresh at least once before
// serving requests.
func NewStore() *Store {
	return &Store{}
}

// Current returns the most recently installed index and station search
// structure. It is nil, nil until the first successful Refresh.
func (s *Store) Current() (*timetable.Index, *stationsearch.Index) {
	b := s.current.Load()
	if b == nil {
		return nil, nil
	}
	return b.index, b.stations
}

// Refresh loads a fresh feed generation from gtfsDir (and the optional
// lineColoursPath supplement) and installs it atomically, without ever
// disturbing a bundle a request already holds. The feed load runs on a
// conc.WaitGroup so a panic during parsing surfaces as a normal error
// instead of crashing the process.
func (s *Store) Refresh(gtfsDir, lineColoursPath string) error {
	var idx *timetable.Index
	var loadErr error

	var wg conc.WaitGroup
	wg.Go(func() {
		idx, loadErr = gtfsload.Load(gtfsDir, lineColoursPath)
	})
	if recovered := wg.WaitAndRecover(); recovered != nil {
		return fmt.Errorf("radarserver: loading feed from %q panicked: %v", gtfsDir, recovered.Value)
	}

	if loadErr != nil {
		return fmt.Errorf("radarserver: loading feed from %q: %w", gtfsDir, loadErr)
	}

	search := stationsearch.BuildFrom(idx)

	s.current.Store(&bundle{index: idx, stations: search, gtfsDir: gtfsDir})
	return nil
}
