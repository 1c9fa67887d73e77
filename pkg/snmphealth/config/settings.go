// Package config loads the process settings and the device monitoring
// definitions of the SNMP health engine.
//
// Settings come from a single YAML file with SNMPHEALTH_* environment
// overrides. Device definitions come from two directory trees:
//
//	SNMPHEALTH_DEVICES_DIRECTORY_PATH   → device id → ConfigPatch
//	SNMPHEALTH_DEFAULTS_DIRECTORY_PATH  → defaults merged into every device
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// Settings is the process configuration.
type Settings struct {
	Database  DatabaseSettings  `yaml:"database"`
	Log       LogSettings       `yaml:"log"`
	Dispatch  DispatchSettings  `yaml:"dispatch"`
	Pool      PoolSettings      `yaml:"pool"`
	Scheduler SchedulerSettings `yaml:"scheduler"`
	HTTP      HTTPSettings      `yaml:"http"`
	Paths     Paths             `yaml:"paths"`
}

type DatabaseSettings struct {
	// Path is the SQLite database file (":memory:" for a throwaway store).
	Path string `yaml:"path"`
}

type LogSettings struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
	// File enables rotated file output when non-empty.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DispatchSettings struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

type PoolSettings struct {
	MaxIdlePerTarget     int `yaml:"max_idle_per_target"`
	IdleTimeoutSeconds   int `yaml:"idle_timeout_seconds"`
	MaxInFlightPerTarget int `yaml:"max_in_flight_per_target"`
}

type SchedulerSettings struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

type HTTPSettings struct {
	Listen string `yaml:"listen"`
}

// Paths holds the device definition directories.
type Paths struct {
	Devices  string `yaml:"devices"`
	Defaults string `yaml:"defaults"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		Database:  DatabaseSettings{Path: "/var/lib/snmp_health/snmp_health.db"},
		Log:       LogSettings{Level: "info", Format: "json", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30},
		Dispatch:  DispatchSettings{MaxConcurrency: 64},
		Pool:      PoolSettings{MaxIdlePerTarget: 2, IdleTimeoutSeconds: 300, MaxInFlightPerTarget: 4},
		Scheduler: SchedulerSettings{Enabled: true, IntervalSeconds: 300},
		HTTP:      HTTPSettings{Listen: ":8080"},
		Paths: Paths{
			Devices:  "/etc/snmp_health/devices",
			Defaults: "/etc/snmp_health/defaults",
		},
	}
}

// LoadSettings reads the YAML file at path on top of DefaultSettings and then
// applies environment overrides. An empty path skips the file.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		if err := decodeFile(path, &s); err != nil {
			return Settings{}, fmt.Errorf("config: read settings %q: %w", path, err)
		}
	}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	if err := s.check(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyEnv() error {
	s.Database.Path = envOr("SNMPHEALTH_DATABASE_PATH", s.Database.Path)
	s.Log.Level = envOr("SNMPHEALTH_LOG_LEVEL", s.Log.Level)
	s.Log.Format = envOr("SNMPHEALTH_LOG_FORMAT", s.Log.Format)
	s.Log.File = envOr("SNMPHEALTH_LOG_FILE", s.Log.File)
	s.HTTP.Listen = envOr("SNMPHEALTH_HTTP_LISTEN", s.HTTP.Listen)
	s.Paths.Devices = envOr("SNMPHEALTH_DEVICES_DIRECTORY_PATH", s.Paths.Devices)
	s.Paths.Defaults = envOr("SNMPHEALTH_DEFAULTS_DIRECTORY_PATH", s.Paths.Defaults)

	var err error
	if s.Dispatch.MaxConcurrency, err = envInt("SNMPHEALTH_DISPATCH_MAX_CONCURRENCY", s.Dispatch.MaxConcurrency); err != nil {
		return err
	}
	if s.Scheduler.IntervalSeconds, err = envInt("SNMPHEALTH_SCHEDULER_INTERVAL_SECONDS", s.Scheduler.IntervalSeconds); err != nil {
		return err
	}
	if v := os.Getenv("SNMPHEALTH_SCHEDULER_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SNMPHEALTH_SCHEDULER_ENABLED: %w", err)
		}
		s.Scheduler.Enabled = b
	}
	return nil
}

func (s Settings) check() error {
	var errs []string
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q", s.Log.Level))
	}
	switch strings.ToLower(s.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q", s.Log.Format))
	}
	if s.Dispatch.MaxConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("dispatch.max_concurrency %d", s.Dispatch.MaxConcurrency))
	}
	if s.Scheduler.Enabled && s.Scheduler.IntervalSeconds < 1 {
		errs = append(errs, fmt.Sprintf("scheduler.interval_seconds %d", s.Scheduler.IntervalSeconds))
	}
	if s.Database.Path == "" {
		errs = append(errs, "database.path is empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// decodeFile opens path and unmarshals the YAML content into out.
func decodeFile(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(false)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
