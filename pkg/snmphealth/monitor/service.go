// Package monitor is the calling layer of the health engine. It loads
// configurations from the store, runs the prober or the fleet dispatcher,
// and writes observations back in one explicit step per call.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/store"
)

// ErrNotFound is returned for devices without an SNMP configuration.
var ErrNotFound = errors.New("device has no SNMP configuration")

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// Store is the configuration store. *store.Store satisfies it.
type Store interface {
	GetConfig(ctx context.Context, deviceID int64) (models.MonitoringConfig, error)
	ListEnabled(ctx context.Context) ([]models.MonitoringConfig, error)
	CreateOrUpdate(ctx context.Context, deviceID int64, patch models.ConfigPatch) (models.MonitoringConfig, error)
	ApplyResults(ctx context.Context, results map[int64]models.ProbeResult) (int64, error)
}

// Prober checks a single device. *probe.Prober satisfies it.
type Prober interface {
	CheckStatus(ctx context.Context, cfg models.MonitoringConfig) models.ProbeResult
	ListInterfaces(ctx context.Context, cfg models.MonitoringConfig) models.InterfaceReport
}

// Dispatcher checks a fleet. *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	CheckAll(ctx context.Context, cfgs []models.MonitoringConfig) map[int64]models.ProbeResult
}

// Recorder receives probe and batch telemetry. *telemetry.Metrics
// satisfies it.
type Recorder interface {
	ObserveProbe(res models.ProbeResult)
	ObserveBatch(devices int, took time.Duration)
	CommitFailed()
}

// Options wires optional collaborators.
type Options struct {
	Recorder Recorder
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service runs single-device checks, fleet checks, interface listings and
// configuration updates.
type Service struct {
	store      Store
	prober     Prober
	dispatcher Dispatcher
	recorder   Recorder
	logger     *slog.Logger
}

// New constructs a Service.
func New(store Store, prober Prober, dispatcher Dispatcher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Service{
		store:      store,
		prober:     prober,
		dispatcher: dispatcher,
		recorder:   opts.Recorder,
		logger:     logger,
	}
}

// Config returns the stored configuration of deviceID.
func (s *Service) Config(ctx context.Context, deviceID int64) (models.MonitoringConfig, error) {
	cfg, err := s.store.GetConfig(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.MonitoringConfig{}, fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
		}
		return models.MonitoringConfig{}, err
	}
	return cfg, nil
}

// Configure creates or patches the configuration of deviceID.
func (s *Service) Configure(ctx context.Context, deviceID int64, patch models.ConfigPatch) (models.MonitoringConfig, error) {
	cfg, err := s.store.CreateOrUpdate(ctx, deviceID, patch)
	if err != nil {
		return models.MonitoringConfig{}, err
	}
	s.logger.Info("monitor: config saved",
		"device_id", deviceID,
		"enabled", cfg.Enabled,
		"address", cfg.Address,
		"version", string(cfg.Version),
	)
	return cfg, nil
}

// CheckOne probes a single device and persists the observation.
func (s *Service) CheckOne(ctx context.Context, deviceID int64) (models.ProbeResult, error) {
	cfg, err := s.Config(ctx, deviceID)
	if err != nil {
		return models.ProbeResult{}, err
	}

	res := s.prober.CheckStatus(ctx, cfg)
	s.recorder.ObserveProbe(res)
	s.logger.Info("monitor: device checked",
		"device_id", deviceID,
		"status", string(res.Status),
		"message", res.Message,
	)

	if res.Status.Observed() {
		if _, err := s.store.ApplyResults(ctx, map[int64]models.ProbeResult{deviceID: res}); err != nil {
			s.recorder.CommitFailed()
			return res, fmt.Errorf("persist result: %w", err)
		}
	}
	return res, nil
}

// CheckAll probes every enabled device concurrently and commits all
// observations at once. When the commit fails the report is still returned
// together with the error.
func (s *Service) CheckAll(ctx context.Context) (models.BatchReport, error) {
	start := time.Now()
	s.logger.Info("monitor: starting SNMP monitoring cycle")

	cfgs, err := s.store.ListEnabled(ctx)
	if err != nil {
		return models.BatchReport{}, fmt.Errorf("load enabled configs: %w", err)
	}

	results := s.dispatcher.CheckAll(ctx, cfgs)
	for _, res := range results {
		s.recorder.ObserveProbe(res)
	}
	took := time.Since(start)
	s.recorder.ObserveBatch(len(results), took)

	sum := summarize(results)
	report := models.BatchReport{Message: sum.message(), Results: results}

	updated, err := s.store.ApplyResults(ctx, results)
	if err != nil {
		s.recorder.CommitFailed()
		s.logger.Error("monitor: commit failed", "error", err.Error())
		return report, fmt.Errorf("persist results: %w", err)
	}

	s.logger.Info("monitor: cycle completed",
		"devices", len(results),
		"up", sum.up,
		"down", sum.down,
		"errors", sum.errors,
		"updated", updated,
		"took", took.String(),
	)
	return report, nil
}

// ListInterfaces reads the interface table of a single device. Nothing is
// persisted.
func (s *Service) ListInterfaces(ctx context.Context, deviceID int64) (models.InterfaceReport, error) {
	cfg, err := s.Config(ctx, deviceID)
	if err != nil {
		return models.InterfaceReport{}, err
	}
	return s.prober.ListInterfaces(ctx, cfg), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type summary struct {
	total, up, down, errors int
}

func summarize(results map[int64]models.ProbeResult) summary {
	sum := summary{total: len(results)}
	for _, r := range results {
		switch r.Status {
		case models.StatusUp:
			sum.up++
		case models.StatusDown:
			sum.down++
		case models.StatusError:
			sum.errors++
		}
	}
	return sum
}

func (s summary) message() string {
	if s.total == 0 {
		return "No devices with SNMP monitoring enabled"
	}
	return fmt.Sprintf("Checked %d devices: %d up, %d down, %d errors", s.total, s.up, s.down, s.errors)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProbe(models.ProbeResult) {}
func (nopRecorder) ObserveBatch(int, time.Duration) {}
func (nopRecorder) CommitFailed() {}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
