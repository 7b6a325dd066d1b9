// Package radarid maps externally-visible GTFS string identifiers to
// dense, array-indexable numeric handles. Keeping inner-loop
// comparisons and lookups on small integers rather than strings is what
// lets pkg/timetable and pkg/radar hold their tables as plain slices.
package radarid

// StopID is a dense handle for a Stop.
type StopID uint32

// StationID is a dense handle for a Station. Stations have their own
// handle space: a standalone stop still has a distinct, single-child
// Station grouping it.
type StationID uint32

// TripID is a dense handle for a Trip.
type TripID uint32

// RouteID is a dense handle for a Route.
type RouteID uint32

// Interner assigns dense, stable handles to external string identifiers of
// one kind (e.g. all stop ids, or all trip ids). The zero value is ready
// to use.
type Interner[H ~uint32] struct {
	byExternal map[string]H
	external   []string
}

// Intern returns the handle for id, allocating a new one the first time id
// is seen.
func (in *Interner[H]) Intern(id string) H {
	if in.byExternal == nil {
		in.byExternal = make(map[string]H)
	}
	if h, ok := in.byExternal[id]; ok {
		return h
	}
	h := H(len(in.external))
	in.byExternal[id] = h
	in.external = append(in.external, id)
	return h
}

// Lookup returns the handle already assigned to id, if any.
func (in *Interner[H]) Lookup(id string) (H, bool) {
	h, ok := in.byExternal[id]
	return h, ok
}

// External returns the original string identifier a handle was interned
// from.
func (in *Interner[H]) External(h H) string {
	return in.external[h]
}

// Len returns the number of distinct identifiers interned so far.
func (in *Interner[H]) Len() int {
	return len(in.external)
}
