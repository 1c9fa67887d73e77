// Package app wires the health engine together and manages its lifecycle.
//
// Request path:
//
//	HTTP API / CLI / Scheduler → monitor.Service → Prober | Dispatcher →
//	client.Client → SessionPool → device
//
// Observations flow back through monitor.Service into the store in one
// commit per call.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/vpbank/snmp_health/pkg/snmphealth/api"
	"github.com/vpbank/snmp_health/pkg/snmphealth/client"
	"github.com/vpbank/snmp_health/pkg/snmphealth/config"
	"github.com/vpbank/snmp_health/pkg/snmphealth/dispatch"
	"github.com/vpbank/snmp_health/pkg/snmphealth/monitor"
	"github.com/vpbank/snmp_health/pkg/snmphealth/probe"
	"github.com/vpbank/snmp_health/pkg/snmphealth/scheduler"
	"github.com/vpbank/snmp_health/pkg/snmphealth/store"
	"github.com/vpbank/snmp_health/pkg/snmphealth/telemetry"
)

// ─────────────────────────────────────────────────────────────────────────────
// App
// ─────────────────────────────────────────────────────────────────────────────

// App owns every component. Create one with New, build the core with Open,
// and run the long-lived parts with Start / Stop.
type App struct {
	settings config.Settings
	logger   *slog.Logger

	// Core (populated in Open).
	store   *store.Store
	pool    *client.SessionPool
	metrics *telemetry.Metrics
	service *monitor.Service

	// Long-lived (populated in Start).
	sched  *scheduler.Scheduler
	server *api.Server

	runCtx   context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	serveMu  sync.Mutex
	serveErr error
}

// New constructs an App. It does not open anything.
func New(settings config.Settings, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &App{settings: settings, logger: logger}
}

// Open connects the store and builds the monitoring core. It is idempotent.
func (a *App) Open() error {
	if a.service != nil {
		return nil
	}

	db, err := store.Open(a.settings.Database.Path, a.logger)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.store = store.New(db, store.WithValidator(config.Validate))

	a.pool = client.NewSessionPool(client.PoolOptions{
		MaxIdlePerTarget:     a.settings.Pool.MaxIdlePerTarget,
		MaxInFlightPerTarget: a.settings.Pool.MaxInFlightPerTarget,
		IdleTimeout:          time.Duration(a.settings.Pool.IdleTimeoutSeconds) * time.Second,
	}, a.logger)
	prober := probe.New(client.New(a.pool, a.logger), probe.Options{}, a.logger)
	dispatcher := dispatch.New(prober, dispatch.Options{
		MaxConcurrency: a.settings.Dispatch.MaxConcurrency,
	}, a.logger)

	a.metrics = telemetry.New()
	a.service = monitor.New(a.store, prober, dispatcher, monitor.Options{Recorder: a.metrics}, a.logger)

	a.logger.Info("app: core ready",
		"database", a.settings.Database.Path,
		"max_concurrency", a.settings.Dispatch.MaxConcurrency,
	)
	return nil
}

// Service returns the monitoring service. Open must have succeeded.
func (a *App) Service() *monitor.Service { return a.service }

// Store returns the configuration store. Open must have succeeded.
func (a *App) Store() *store.Store { return a.store }

// Start opens the core if needed, then starts the scheduler (when enabled)
// and the HTTP API. It returns once both are running.
func (a *App) Start(ctx context.Context) error {
	if err := a.Open(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.runCtx, a.cancel = runCtx, cancel

	if a.settings.Scheduler.Enabled {
		a.sched = scheduler.New(a.service, scheduler.Options{
			Interval:   time.Duration(a.settings.Scheduler.IntervalSeconds) * time.Second,
			RunOnStart: true,
		}, a.logger)
		if err := a.sched.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("app: %w", err)
		}
	}

	a.server = api.New(a.service, api.Options{
		Listen:  a.settings.HTTP.Listen,
		Metrics: a.metrics.Handler(),
	}, a.logger)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Start(); err != nil {
			a.logger.Error("app: http server stopped", "error", err.Error())
			a.serveMu.Lock()
			a.serveErr = err
			a.serveMu.Unlock()
			cancel()
		}
	}()

	a.logger.Info("app: running",
		"listen", a.settings.HTTP.Listen,
		"scheduler", a.settings.Scheduler.Enabled,
		"interval_seconds", a.settings.Scheduler.IntervalSeconds,
	)
	return nil
}

// Done is closed when the App's run context ends, either because the parent
// was cancelled or because the HTTP listener failed.
func (a *App) Done() <-chan struct{} {
	if a.runCtx == nil {
		return nil
	}
	return a.runCtx.Done()
}

// Err returns the listener error that ended the run, if any.
func (a *App) Err() error {
	a.serveMu.Lock()
	defer a.serveMu.Unlock()
	return a.serveErr
}

// Stop performs a graceful shutdown.
//
// Shutdown order:
//  1. Stop the scheduler (cancels and waits for the running cycle).
//  2. Shut the HTTP server down.
//  3. Close the session pool and the store.
func (a *App) Stop() {
	a.logger.Info("app: shutting down")

	if a.sched != nil {
		a.sched.Stop()
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("app: http shutdown error", "error", err.Error())
		}
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.Close()
	a.logger.Info("app: shutdown complete")
}

// Close releases the core opened by Open.
func (a *App) Close() {
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Error("app: pool close error", "error", err.Error())
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("app: store close error", "error", err.Error())
		}
	}
}

// Import writes every device definition through the service. It returns
// the number saved and every failure joined together.
func (a *App) Import(ctx context.Context, devices config.Devices) (int, error) {
	if err := a.Open(); err != nil {
		return 0, err
	}
	var errs error
	saved := 0
	for _, id := range devices.IDs() {
		if _, err := a.service.Configure(ctx, id, devices[id]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("device %d: %w", id, err))
			continue
		}
		saved++
	}
	return saved, errs
}

// ─────────────────────────────────────────────────────────────────────────────
// Utilities
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
