// Package dispatch fans status checks out across a fleet with a bounded
// number of probes in flight and joins every result before returning.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/vpbank/snmp_health/models"
)

// DefaultMaxConcurrency bounds in-flight probes when Options leaves it unset.
const DefaultMaxConcurrency = 64

// MsgDispatchFailed prefixes the message of a task that did not produce a
// probe result.
const MsgDispatchFailed = "Check failed: "

// Checker is the per-device probe. *probe.Prober satisfies it.
type Checker interface {
	CheckStatus(ctx context.Context, cfg models.MonitoringConfig) models.ProbeResult
}

// Options configures a Dispatcher.
type Options struct {
	// MaxConcurrency is the number of probes allowed in flight at once.
	MaxConcurrency int
}

// Dispatcher runs one Checker call per enabled device.
type Dispatcher struct {
	checker Checker
	max     int
	logger  *slog.Logger
}

// New constructs a Dispatcher.
func New(checker Checker, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Dispatcher{checker: checker, max: opts.MaxConcurrency, logger: logger}
}

// CheckAll probes every enabled config and returns once all probes have
// finished. Disabled configs are not probed and do not appear in the result.
// A task that panics, or that could not start because ctx was done, is
// reported as StatusError for its device only.
func (d *Dispatcher) CheckAll(ctx context.Context, cfgs []models.MonitoringConfig) map[int64]models.ProbeResult {
	var (
		mu      sync.Mutex
		results = make(map[int64]models.ProbeResult, len(cfgs))
	)

	p := pool.New().WithMaxGoroutines(d.max)
	seen := make(map[int64]struct{}, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		if _, dup := seen[cfg.DeviceID]; dup {
			d.logger.Warn("dispatch: duplicate device config ignored", "device_id", cfg.DeviceID)
			continue
		}
		seen[cfg.DeviceID] = struct{}{}

		p.Go(func() {
			res := d.run(ctx, cfg)
			mu.Lock()
			results[cfg.DeviceID] = res
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

func (d *Dispatcher) run(ctx context.Context, cfg models.MonitoringConfig) (res models.ProbeResult) {
	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	recovered := panics.Try(func() {
		res = d.checker.CheckStatus(ctx, cfg)
	})
	if recovered != nil {
		d.logger.Error("dispatch: probe task failed",
			"device_id", cfg.DeviceID,
			"panic", recovered.String(),
		)
		return failed(fmt.Errorf("%v", recovered.Value))
	}
	return res
}

func failed(err error) models.ProbeResult {
	return models.ProbeResult{
		Status:    models.StatusError,
		Message:   MsgDispatchFailed + err.Error(),
		Timestamp: time.Now(),
	}
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
