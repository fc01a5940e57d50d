// Package sinks fans fired transit events out to the configured output
// backends. Each sink runs on its own goroutine with its own timeout so a
// slow or unreachable backend can never delay the scheduler's next wait.
package sinks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/starchime/starchime/internal/scheduler"
)

// Sink is one dispatch target for fired transits.
type Sink interface {
	Name() string
	HandleTransit(ctx context.Context, f *scheduler.Firing) error
}

// SkipNotifier is implemented by sinks that also want skip notifications.
type SkipNotifier interface {
	HandleSkip(ctx context.Context, k *scheduler.Skip)
}

// DispatchTimeout bounds each sink's handling of a single event.
const DispatchTimeout = 10 * time.Second

// Dispatcher implements scheduler.Handler over a set of sinks.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.SugaredLogger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(sinks []Sink, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		timeout: DispatchTimeout,
		logger:  logger,
	}
}

// HandleFire forwards the firing to every sink and returns immediately.
// Sink errors are diagnostics, never propagated to the scheduler loop.
func (d *Dispatcher) HandleFire(f *scheduler.Firing) {
	for _, s := range d.sinks {
		s := s
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := s.HandleTransit(ctx, f); err != nil {
				d.logger.Warnf("%s sink failed for %s: %v", s.Name(), f.Star.DisplayName(), err)
			}
		}()
	}
}

// HandleSkip notifies sinks that care about skipped events.
func (d *Dispatcher) HandleSkip(k *scheduler.Skip) {
	for _, s := range d.sinks {
		n, ok := s.(SkipNotifier)
		if !ok {
			continue
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			n.HandleSkip(ctx, k)
		}()
	}
}

// Wait blocks until all in-flight dispatches complete. Used at shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
