// Package managers wires configured components together at startup.
package managers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/starchime/starchime/internal/scheduler"
	"github.com/starchime/starchime/internal/sinks"
	"github.com/starchime/starchime/internal/sinks/console"
	"github.com/starchime/starchime/internal/sinks/eventserver"
	"github.com/starchime/starchime/internal/sinks/midisink"
	"github.com/starchime/starchime/internal/sinks/stellarium"
	"github.com/starchime/starchime/pkg/config"
)

// SinkManager builds and starts the dispatch sinks named in the
// configuration. A sink that fails to initialize is logged and omitted; a
// missing output backend is never fatal to the scheduler.
type SinkManager struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	cfg    *config.ConfigData
	logger *zap.SugaredLogger

	sinks []sinks.Sink
	midi  *midisink.Sink
}

// NewSinkManager creates the manager. Sinks needing the scheduler (the
// event server) are attached later via StartSinks.
func NewSinkManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, logger *zap.SugaredLogger) *SinkManager {
	return &SinkManager{
		ctx:    ctx,
		wg:     wg,
		cfg:    cfg,
		logger: logger,
	}
}

// StartSinks instantiates every configured sink and returns the dispatcher
// over them. A sink that fails to initialize is logged and omitted, so the
// scheduler starts regardless of which outputs are reachable.
func (m *SinkManager) StartSinks(sched *scheduler.Scheduler) *sinks.Dispatcher {
	if c := m.cfg.Sinks.Console; c != nil {
		m.sinks = append(m.sinks, console.New(c.Quiet))
		m.logger.Info("console sink enabled")
	}

	if c := m.cfg.Sinks.MIDI; c != nil {
		duration := time.Duration(m.cfg.Instrument.NoteDuration * float64(time.Second))
		sink, err := midisink.New(c.Port, duration)
		if err != nil {
			m.logger.Warnf("MIDI sink disabled: %v", err)
		} else {
			m.sinks = append(m.sinks, sink)
			m.midi = sink
			m.logger.Infof("MIDI sink enabled on port %s", sink.Port())
		}
	}

	if c := m.cfg.Sinks.Stellarium; c != nil {
		sink, err := stellarium.New(c, m.logger)
		if err != nil {
			m.logger.Warnf("stellarium sink disabled: %v", err)
		} else {
			m.sinks = append(m.sinks, sink)
			m.logger.Infof("stellarium sink enabled at %s", c.BaseURL)
		}
	}

	if c := m.cfg.Sinks.EventServer; c != nil {
		sink := eventserver.New(c, m.cfg.Site, sched, m.logger)
		if err := sink.Start(m.ctx, m.wg); err != nil {
			m.logger.Warnf("event server sink disabled: %v", err)
		} else {
			m.sinks = append(m.sinks, sink)
		}
	}

	m.logger.Infof("started %d sinks", len(m.sinks))
	return sinks.NewDispatcher(m.sinks, m.logger)
}

// Close releases sink resources held outside the context lifecycle.
func (m *SinkManager) Close() {
	if m.midi != nil {
		m.midi.Close()
	}
}
