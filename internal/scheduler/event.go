package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/starchime/starchime/pkg/catalog"
)

// State is the lifecycle state of a transit event.
type State int

const (
	// StatePending means the event is scheduled and waiting in the heap.
	StatePending State = iota
	// StateDue means the wall clock has reached the scheduled instant.
	StateDue
	// StateFired means the event was acted on. Terminal.
	StateFired
	// StateSkipped means the event was disqualified at evaluation. Terminal.
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDue:
		return "due"
	case StateFired:
		return "fired"
	case StateSkipped:
		return "skipped"
	}
	return "unknown"
}

// SkipReason says why a due event was skipped rather than fired.
type SkipReason int

const (
	// SkipStale means the scheduled instant was further in the past than
	// the staleness threshold when the event was evaluated.
	SkipStale SkipReason = iota
	// SkipAntiTransit means the star was nearer its lower culmination than
	// the meridian at evaluation time.
	SkipAntiTransit
)

func (r SkipReason) String() string {
	switch r {
	case SkipStale:
		return "stale"
	case SkipAntiTransit:
		return "anti-transit"
	}
	return "unknown"
}

// Event is one scheduled transit. The scheduler exclusively owns all live
// events; a fired or skipped event is immediately replaced by a fresh
// pending event for the same star.
type Event struct {
	ID    uuid.UUID
	Star  *catalog.Star
	At    time.Time
	State State

	seq   uint64 // tie-break: catalog insertion order, then reschedule order
	index int    // heap bookkeeping
}

// eventHeap is a min-heap ordered by (At, seq). The seq tie-break keeps
// simultaneous transits deterministic.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].At.Equal(h[j].At) {
		return h[i].seq < h[j].seq
	}
	return h[i].At.Before(h[j].At)
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x interface{}) {
	ev := x.(*Event)
	ev.index = len(*h)
	*h = append(*h, ev)
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*h = old[:n-1]
	return ev
}
