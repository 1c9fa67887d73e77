// Package json renders monitoring results (probe results, batch reports,
// interface reports and configurations) as JSON for the command line.
//
// All json struct tags are declared on the model types themselves, so
// serialisation is a single json.Marshal call with optional indentation.
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/vpbank/snmp_health/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Formatter interface
// ─────────────────────────────────────────────────────────────────────────────

// Output is any value the formatter accepts.
type Output interface {
	models.ProbeResult | models.BatchReport | models.InterfaceReport |
		models.MonitoringConfig | []models.MonitoringConfig
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config controls JSONFormatter behaviour.
type Config struct {
	// PrettyPrint emits indented, human-readable JSON when true.
	PrettyPrint bool

	// Indent is the indent string used when PrettyPrint=true.
	// Defaults to two spaces when empty and PrettyPrint=true.
	Indent string
}

// ─────────────────────────────────────────────────────────────────────────────
// JSONFormatter
// ─────────────────────────────────────────────────────────────────────────────

// JSONFormatter is safe for concurrent use; all fields are immutable after
// construction.
type JSONFormatter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a JSONFormatter. If logger is nil, a no-op logger is
// substituted.
func New(cfg Config, logger *slog.Logger) *JSONFormatter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.PrettyPrint && cfg.Indent == "" {
		cfg.Indent = "  "
	}
	return &JSONFormatter{cfg: cfg, logger: logger}
}

// Format serialises v.
func Format[T Output](f *JSONFormatter, v T) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if f.cfg.PrettyPrint {
		data, err = json.MarshalIndent(v, "", f.cfg.Indent)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		f.logger.Error("format/json: marshal failed",
			"type", fmt.Sprintf("%T", v),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("format/json: marshal: %w", err)
	}

	f.logger.Debug("format/json: formatted output",
		"type", fmt.Sprintf("%T", v),
		"bytes", len(data),
	)
	return data, nil
}

// Write formats v and writes it to w followed by a newline.
func Write[T Output](f *JSONFormatter, w io.Writer, v T) error {
	data, err := Format(f, v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("format/json: write: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// no-op logger writer
// ─────────────────────────────────────────────────────────────────────────────

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
