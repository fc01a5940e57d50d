// Package app assembles the configured components and runs them until
// shutdown.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/starchime/starchime/internal/log"
	"github.com/starchime/starchime/internal/managers"
	"github.com/starchime/starchime/internal/scheduler"
	"github.com/starchime/starchime/pkg/catalog"
	"github.com/starchime/starchime/pkg/config"
	"github.com/starchime/starchime/pkg/dyad"
	"github.com/starchime/starchime/pkg/transit"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	stars, err := a.loadCatalog()
	if err != nil {
		return err
	}
	summary := catalog.Summarize(stars)
	log.Infof("loaded %d stars (vmag mean %.2f, p05 %.2f, p95 %.2f)",
		summary.Stars, summary.MagnitudeMean, summary.MagnitudeP05, summary.MagnitudeP95)

	calc, err := transit.NewCalculator(transit.Observer{
		LatitudeDeg:  a.cfg.Site.Latitude,
		LongitudeDeg: a.cfg.Site.Longitude,
	})
	if err != nil {
		return err
	}

	staleness, err := a.cfg.StalenessDuration()
	if err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.Config{
		Calculator: calc,
		Staleness:  staleness,
		Bounds: dyad.Bounds{
			NoteMin:     a.cfg.Instrument.NoteMin,
			NoteMax:     a.cfg.Instrument.NoteMax,
			VelocityMin: a.cfg.Instrument.VelocityMin,
			VelocityMax: a.cfg.Instrument.VelocityMax,
		},
	}, stars, a.logger)
	if err != nil {
		return err
	}

	// Initialize the sink manager and bind the dispatcher
	sm := managers.NewSinkManager(ctx, &wg, a.cfg, a.logger)
	defer sm.Close()
	dispatcher := sm.StartSinks(sched)
	sched.SetHandler(dispatcher)

	wg.Add(1)
	schedErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		schedErr <- sched.Run(ctx)
	}()

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or scheduler exit
	var runErr error
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	case err := <-schedErr:
		if err != nil && err != context.Canceled {
			runErr = fmt.Errorf("scheduler stopped: %w", err)
		}
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	dispatcher.Wait()
	log.Info("shutdown complete")

	return runErr
}

func (a *App) loadCatalog() ([]catalog.Star, error) {
	filter := catalog.Filter{
		LatitudeDeg:  a.cfg.Site.Latitude,
		MaxMagnitude: a.cfg.Catalog.MaxMagnitude,
	}
	switch a.cfg.Catalog.Backend {
	case "sqlite":
		return catalog.LoadSQLite(a.cfg.Catalog.Path, filter)
	default:
		return catalog.LoadJSON(a.cfg.Catalog.Path, filter)
	}
}
