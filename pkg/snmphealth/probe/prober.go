// Package probe decides device health from SNMP reads. CheckStatus runs an
// ordered plan of scalar GETs and classifies the outcome; ListInterfaces
// reads the first interfaces' operational and administrative state.
//
// Neither operation returns an error: every path yields a structured result.
package probe

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/client"
	"github.com/vpbank/snmp_health/snmp/decoder"
)

// Result messages.
const (
	MsgDisabled      = "SNMP monitoring disabled for this device"
	MsgNotConfigured = "SNMP IP address not configured"
	MsgResponding    = "Device is responding"
	MsgCheckFailed   = "SNMP check failed: "
)

// Getter reads a single scalar OID from a target. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, t client.Target, oid string) (decoder.Value, error)
}

// Options tunes a Prober. Zero values select the defaults.
type Options struct {
	// Plan overrides DefaultPlan.
	Plan Plan
}

// Prober runs status checks and interface listings.
type Prober struct {
	get    Getter
	plan   Plan
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Prober that issues requests through get.
func New(get Getter, opts Options, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	plan := opts.Plan
	if len(plan) == 0 {
		plan = DefaultPlan
	}
	return &Prober{get: get, plan: plan, logger: logger, now: time.Now}
}

// ─────────────────────────────────────────────────────────────────────────────
// CheckStatus
// ─────────────────────────────────────────────────────────────────────────────

// CheckStatus probes cfg and classifies the device as up, down, disabled or
// error. A check the caller abandoned before anything reached the device is
// an error, not down. Steps of the plan are tried in order; the plan only advances past a
// step when the agent answered with an unusable value.
func (p *Prober) CheckStatus(ctx context.Context, cfg models.MonitoringConfig) models.ProbeResult {
	if !cfg.Enabled {
		return models.ProbeResult{Status: models.StatusDisabled, Message: MsgDisabled, Timestamp: p.now()}
	}
	if cfg.Address == "" {
		return models.ProbeResult{Status: models.StatusError, Message: MsgNotConfigured, Timestamp: p.now()}
	}

	target := client.TargetFor(cfg)
	start := p.now()

	var errs, last error
	for _, step := range p.plan {
		v, err := p.get.Get(ctx, target, step.OID)
		if err == nil {
			elapsed := models.Millis(p.now().Sub(start))
			p.logger.Debug("probe: device up",
				"device_id", cfg.DeviceID,
				"target", target.String(),
				"oid", step.OID,
				"response_ms", elapsed,
			)
			return models.ProbeResult{
				Status:             models.StatusUp,
				Message:            MsgResponding,
				ResponseTimeMillis: &elapsed,
				Timestamp:          p.now(),
				SystemInfo:         map[string]string{step.Name: v.String()},
			}
		}
		errs = multierr.Append(errs, err)
		last = err
		if client.KindOf(err) != client.KindProtocol {
			break
		}
	}

	if client.KindOf(last) == client.KindAborted {
		p.logger.Warn("probe: check aborted before any request was sent",
			"device_id", cfg.DeviceID,
			"target", target.String(),
			"error", errs.Error(),
		)
		return models.ProbeResult{Status: models.StatusError, Message: MsgCheckFailed + errs.Error(), Timestamp: p.now()}
	}

	elapsed := models.Millis(p.now().Sub(start))
	p.logger.Info("probe: device down",
		"device_id", cfg.DeviceID,
		"target", target.String(),
		"error", errs.Error(),
	)
	return models.ProbeResult{
		Status:             models.StatusDown,
		Message:            MsgCheckFailed + errs.Error(),
		ResponseTimeMillis: &elapsed,
		Timestamp:          p.now(),
	}
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
