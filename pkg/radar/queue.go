package radar

import (
	"container/heap"

	"github.com/travigo/transit-radar/pkg/gtfstime"
	"github.com/travigo/transit-radar/pkg/radarid"
)

// eventKind discriminates the two event types. Arrive sorts
// before AlightAtNext at equal times, so
// the numeric value doubles as the tie-break order.
type eventKind uint8

const (
	eventArrive eventKind = iota
	eventAlight
)

// event is the tagged union carried by the queue: comparison is by time
// first, then a stable tag order.
type event struct {
	kind eventKind
	time gtfstime.Seconds

	// Arrive fields.
	stop radarid.StopID
	via  Predecessor

	// AlightAtNext fields.
	trip          radarid.TripID
	position      int
	boardPosition int
}

// tieBreakID is the "numeric id" uses as the final tie-break once
// time and kind already agree: the stop for Arrive events, the trip for
// AlightAtNext events.
func (e event) tieBreakID() uint32 {
	if e.kind == eventArrive {
		return uint32(e.stop)
	}
	return uint32(e.trip)
}

// eventQueue is a min-heap over events ordered by (time, kind, tieBreakID)
// ascending, giving two runs over the same index and inputs bit-identical
// processing order (spec P5, §5 "Ordering guarantees").
type eventQueue []event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.time != b.time {
		return a.time < b.time
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.tieBreakID() < b.tieBreakID()
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func newEventQueue() *eventQueue {
	q := make(eventQueue, 0, 64)
	heap.Init(&q)
	return &q
}

func (q *eventQueue) push(e event) { heap.Push(q, e) }

func (q *eventQueue) pop() (event, bool) {
	if q.Len() == 0 {
		return event{}, false
	}
	return heap.Pop(q).(event), true
}
