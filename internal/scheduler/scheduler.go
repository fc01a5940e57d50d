// Package scheduler owns the set of pending transit events, one per catalog
// star, and drives the wait → fire/skip → reschedule loop.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starchime/starchime/pkg/catalog"
	"github.com/starchime/starchime/pkg/dyad"
	"github.com/starchime/starchime/pkg/transit"
)

// Firing describes one fired transit, handed to the dispatch handler.
type Firing struct {
	EventID  uuid.UUID     `json:"event_id"`
	Star     *catalog.Star `json:"star"`
	At       time.Time     `json:"at"`       // scheduled transit instant
	FiredAt  time.Time     `json:"fired_at"` // evaluation instant
	LSTDeg   float64       `json:"lst_deg"`  // local sidereal time at evaluation
	Dyads    [4]dyad.Dyad  `json:"dyads"`
	Upcoming []Upcoming    `json:"upcoming,omitempty"`
}

// Skip describes one skipped transit.
type Skip struct {
	EventID uuid.UUID     `json:"event_id"`
	Star    *catalog.Star `json:"star"`
	At      time.Time     `json:"at"`
	Reason  SkipReason    `json:"-"`
	NextAt  time.Time     `json:"next_at"`
}

// Upcoming is a short preview entry of the next scheduled transits.
type Upcoming struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// Handler receives fired and skipped events. Implementations must not
// block: dispatch side effects run on their own goroutines with their own
// timeouts so a slow sink cannot delay the next wait computation.
type Handler interface {
	HandleFire(f *Firing)
	HandleSkip(k *Skip)
}

// NopHandler discards all events.
type NopHandler struct{}

func (NopHandler) HandleFire(*Firing) {}
func (NopHandler) HandleSkip(*Skip)   {}

// Config carries the scheduler's collaborators and tunables.
type Config struct {
	Calculator *transit.Calculator
	Handler    Handler       // nil = NopHandler
	Clock      Clock         // nil = host clock
	Bounds     dyad.Bounds   // zero value = dyad.DefaultBounds
	Staleness  time.Duration // 0 = 10 minutes
}

const defaultStaleness = 10 * time.Minute

// Scheduler holds the live event set. All mutation happens on the Run
// goroutine; the mutex only guards read snapshots for the status server.
type Scheduler struct {
	calc      *transit.Calculator
	clock     Clock
	handler   Handler
	bounds    dyad.Bounds
	staleness time.Duration
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	events eventHeap
	seq    uint64
}

// New builds a scheduler with one pending event per catalog star. An empty
// catalog is fatal: the scheduler cannot start with nothing to wait for.
func New(cfg Config, stars []catalog.Star, logger *zap.SugaredLogger) (*Scheduler, error) {
	if cfg.Calculator == nil {
		return nil, fmt.Errorf("scheduler requires a transit calculator")
	}
	if len(stars) == 0 {
		return nil, fmt.Errorf("cannot start scheduler: catalog is empty")
	}
	if cfg.Handler == nil {
		cfg.Handler = NopHandler{}
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Bounds == (dyad.Bounds{}) {
		cfg.Bounds = dyad.DefaultBounds
	}
	if cfg.Staleness == 0 {
		cfg.Staleness = defaultStaleness
	}

	s := &Scheduler{
		calc:      cfg.Calculator,
		clock:     cfg.Clock,
		handler:   cfg.Handler,
		bounds:    cfg.Bounds,
		staleness: cfg.Staleness,
		logger:    logger,
	}

	now := s.clock.Now()
	scheduled := 0
	for i := range stars {
		star := &stars[i]
		vis := s.calc.Classify(star.DecDeg)
		if vis == transit.NeverRises {
			// catalog load should have excluded these already
			s.logger.Warnf("star %s never rises at this latitude, excluding", star.DisplayName())
			continue
		}
		s.push(&Event{
			ID:    uuid.New(),
			Star:  star,
			At:    s.calc.NextTransit(star.RADeg, now),
			State: StatePending,
			seq:   s.nextSeq(),
		})
		scheduled++
	}
	if scheduled == 0 {
		return nil, fmt.Errorf("cannot start scheduler: no star in the catalog ever rises here")
	}
	s.logger.Infof("scheduled %d stars; next transit: %s", scheduled, s.describeNext(now))
	return s, nil
}

// SetHandler replaces the dispatch handler. Call before Run; sinks that
// report scheduler status need the scheduler built first, so the handler is
// bound late.
func (s *Scheduler) SetHandler(h Handler) {
	if h != nil {
		s.handler = h
	}
}

// Run drives the wait/fire/skip loop until ctx is cancelled. It never
// busy-polls: it suspends until the earliest event is due, then re-validates
// the instant against the clock before firing.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		ev := s.peek()
		if ev == nil {
			return fmt.Errorf("scheduler has no remaining events")
		}
		if d := ev.At.Sub(s.clock.Now()); d > 0 {
			timer := s.clock.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C():
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.evaluate()
	}
}

// evaluate pops the earliest event, classifies it as fired or skipped, and
// pushes a fresh pending event for the same star.
func (s *Scheduler) evaluate() {
	s.mu.Lock()
	ev := heap.Pop(&s.events).(*Event)
	s.mu.Unlock()

	ev.State = StateDue
	now := s.clock.Now()
	lst := s.calc.LSTDeg(now)

	switch {
	case now.Sub(ev.At) > s.staleness:
		s.skip(ev, SkipStale, now)
	case transit.OffMeridianDeg(lst, ev.Star.RADeg) > 90:
		s.skip(ev, SkipAntiTransit, now)
	default:
		s.fire(ev, now, lst)
	}
}

func (s *Scheduler) fire(ev *Event, now time.Time, lst float64) {
	ev.State = StateFired
	f := &Firing{
		EventID:  ev.ID,
		Star:     ev.Star,
		At:       ev.At,
		FiredAt:  now,
		LSTDeg:   lst,
		Dyads:    dyad.MapStar(ev.Star, s.bounds),
		Upcoming: s.Peek(3),
	}
	s.logger.Infow("transit", "star", ev.Star.DisplayName(),
		"scheduled", ev.At, "lst_deg", lst)
	s.handler.HandleFire(f)
	s.reschedule(ev, now)
}

func (s *Scheduler) skip(ev *Event, reason SkipReason, now time.Time) {
	ev.State = StateSkipped
	next := s.reschedule(ev, now)
	s.logger.Warnf("skipping %s transit: %s (scheduled %s, evaluated %s); next at %s",
		ev.Star.DisplayName(), reason, ev.At.Format(time.RFC3339),
		now.Format(time.RFC3339), next.Format(time.RFC3339))
	s.handler.HandleSkip(&Skip{
		EventID: ev.ID,
		Star:    ev.Star,
		At:      ev.At,
		Reason:  reason,
		NextAt:  next,
	})
}

// reschedule inserts a fresh pending event for the star on its next
// sidereal cycle. A star is never dropped from rotation here; the only
// removal path is a NeverRises classification.
func (s *Scheduler) reschedule(ev *Event, now time.Time) time.Time {
	if s.calc.Classify(ev.Star.DecDeg) == transit.NeverRises {
		s.logger.Warnf("star %s no longer rises, removing from rotation", ev.Star.DisplayName())
		return time.Time{}
	}
	after := now
	if ev.At.After(after) {
		after = ev.At
	}
	next := s.calc.NextTransitAfterCurrent(ev.Star.RADeg, after)
	s.push(&Event{
		ID:    uuid.New(),
		Star:  ev.Star,
		At:    next,
		State: StatePending,
		seq:   s.nextSeq(),
	})
	return next
}

func (s *Scheduler) push(ev *Event) {
	s.mu.Lock()
	heap.Push(&s.events, ev)
	s.mu.Unlock()
}

func (s *Scheduler) peek() *Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[0]
}

// Peek returns the next n scheduled transits in ascending order without
// disturbing the heap. Safe to call from other goroutines.
func (s *Scheduler) Peek(n int) []Upcoming {
	s.mu.Lock()
	snapshot := make([]*Event, len(s.events))
	copy(snapshot, s.events)
	s.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].At.Equal(snapshot[j].At) {
			return snapshot[i].seq < snapshot[j].seq
		}
		return snapshot[i].At.Before(snapshot[j].At)
	})
	if n > len(snapshot) {
		n = len(snapshot)
	}
	out := make([]Upcoming, 0, n)
	for _, ev := range snapshot[:n] {
		out = append(out, Upcoming{Name: ev.Star.DisplayName(), At: ev.At})
	}
	return out
}

// Len returns the number of live events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Scheduler) describeNext(now time.Time) string {
	if len(s.events) == 0 {
		return "none"
	}
	ev := s.events[0]
	return fmt.Sprintf("%s in %s", ev.Star.DisplayName(), ev.At.Sub(now).Round(time.Second))
}


