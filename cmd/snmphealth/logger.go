package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vpbank/snmp_health/pkg/snmphealth/config"
)

// buildLogger returns a logger for the given settings. When a log file is
// configured output goes to a rotating file and the returned closer must be
// closed on exit; otherwise output goes to stderr.
func buildLogger(s config.LogSettings, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	switch strings.ToLower(s.Level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", s.Level)
	}

	var (
		w      io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if s.File != "" {
		lj := &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAgeDays,
			Compress:   true,
		}
		w, closer = lj, lj
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(s.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q (expected json|text)", s.Format)
	}

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
