// Package scheduler runs the fleet-wide monitoring cycle on a fixed
// interval using robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vpbank/snmp_health/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Runner
// ─────────────────────────────────────────────────────────────────────────────

// Runner is the subset of monitor.Service consumed by the scheduler.
type Runner interface {
	CheckAll(ctx context.Context) (models.BatchReport, error)
}

// Options configures a Scheduler.
type Options struct {
	// Interval between cycles (default 300s, minimum 1s).
	Interval time.Duration
	// RunOnStart fires one cycle immediately when Start is called.
	RunOnStart bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheduler
// ─────────────────────────────────────────────────────────────────────────────

// Scheduler fires Runner.CheckAll every Interval. A cycle that is still
// running when the next one is due causes that tick to be skipped.
type Scheduler struct {
	runner Runner
	opts   Options
	logger *slog.Logger
	cron   *cron.Cron

	running atomic.Bool
	cycles  atomic.Int64
	skipped atomic.Int64

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. The scheduler does NOT start automatically; call
// Start to begin dispatching.
func New(runner Runner, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Duration(models.DefaultCheckIntervalSeconds) * time.Second
	}
	if opts.Interval < time.Second {
		opts.Interval = time.Second
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		runner: runner,
		opts:   opts,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers the cycle and starts the cron loop. It returns
// immediately; cycles run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler: already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	spec := fmt.Sprintf("@every %s", s.opts.Interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		s.cancel()
		s.cancel = nil
		return fmt.Errorf("scheduler: add %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler: started", "interval", s.opts.Interval.String())

	if s.opts.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
	return nil
}

// Stop cancels the running cycle, stops the cron loop and waits for the
// in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler: stopped", "cycles", s.cycles.Load(), "skipped", s.skipped.Load())
}

// Cycles returns the number of completed cycles.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

// Skipped returns the number of ticks skipped because a cycle was running.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// tick runs one monitoring cycle unless another is already in progress.
func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("scheduler: previous cycle still running, skipping")
		return
	}
	defer s.running.Store(false)

	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	report, err := s.runner.CheckAll(s.ctx)
	s.cycles.Add(1)
	if err != nil {
		s.logger.Error("scheduler: cycle failed",
			"error", err.Error(),
			"devices", len(report.Results),
			"took", time.Since(start).String(),
		)
		return
	}
	s.logger.Info("scheduler: cycle finished",
		"summary", report.Message,
		"took", time.Since(start).String(),
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// cron.Logger adapter
// ─────────────────────────────────────────────────────────────────────────────

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err.Error()}, keysAndValues...)...)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
