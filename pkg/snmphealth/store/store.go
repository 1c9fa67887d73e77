// Package store persists device SNMP monitoring configurations in a SQL
// database through gorm. Configuration fields and observed fields are
// written by separate operations so a probe cycle can never change
// configuration, and a configuration update never fakes an observation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vpbank/snmp_health/models"
)

// ErrNotFound is returned when no configuration exists for a device.
var ErrNotFound = errors.New("snmp config not found")

// Option customises a Store.
type Option func(*Store)

// WithValidator runs fn on the merged configuration inside CreateOrUpdate
// and aborts the write when it fails.
func WithValidator(fn func(models.MonitoringConfig) error) Option {
	return func(s *Store) { s.validate = fn }
}

// Store is the gorm-backed configuration store.
type Store struct {
	db       *gorm.DB
	validate func(models.MonitoringConfig) error
	now      func() time.Time
}

// Open connects to the SQLite database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, logger *slog.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.NewSlogLogger(logger, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

// New wraps an opened database.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetConfig returns the configuration of deviceID or ErrNotFound.
func (s *Store) GetConfig(ctx context.Context, deviceID int64) (models.MonitoringConfig, error) {
	var r record
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MonitoringConfig{}, ErrNotFound
	}
	if err != nil {
		return models.MonitoringConfig{}, fmt.Errorf("store: get %d: %w", deviceID, err)
	}
	return r.config(), nil
}

// ListEnabled returns every enabled configuration ordered by device id.
func (s *Store) ListEnabled(ctx context.Context) ([]models.MonitoringConfig, error) {
	return s.list(s.db.WithContext(ctx).Where("enabled = ?", true))
}

// List returns every configuration ordered by device id.
func (s *Store) List(ctx context.Context) ([]models.MonitoringConfig, error) {
	return s.list(s.db.WithContext(ctx))
}

func (s *Store) list(q *gorm.DB) ([]models.MonitoringConfig, error) {
	var rows []record
	if err := q.Order("device_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	out := make([]models.MonitoringConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.config())
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// CreateOrUpdate applies patch to the configuration of deviceID, creating it
// with defaults when it does not exist yet. The merged configuration is
// returned.
func (s *Store) CreateOrUpdate(ctx context.Context, deviceID int64, patch models.ConfigPatch) (models.MonitoringConfig, error) {
	var out models.MonitoringConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r record
		err := tx.Where("device_id = ?", deviceID).First(&r).Error
		created := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !created {
			return err
		}

		cfg := models.NewConfig(deviceID)
		if !created {
			cfg = r.config()
		}
		patch.Apply(&cfg)
		cfg.ApplyDefaults()

		if s.validate != nil {
			if err := s.validate(cfg); err != nil {
				return err
			}
		}

		row := toRecord(cfg)
		if created {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else {
			row.UpdatedAt = s.now()
			if err := tx.Model(&record{}).Where("device_id = ?", deviceID).
				Select(configColumns).Updates(&row).Error; err != nil {
				return err
			}
		}
		out = cfg
		return nil
	})
	if err != nil {
		return models.MonitoringConfig{}, fmt.Errorf("store: save %d: %w", deviceID, err)
	}
	return out, nil
}

// Delete removes the configuration of deviceID.
func (s *Store) Delete(ctx context.Context, deviceID int64) error {
	res := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&record{})
	if res.Error != nil {
		return fmt.Errorf("store: delete %d: %w", deviceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyResults writes the observed status, timestamp and response time of
// every result in a single transaction. Results that are not observations
// (disabled, unknown) are skipped, and rows that are disabled at commit time
// are left untouched. It returns the number of rows updated.
func (s *Store) ApplyResults(ctx context.Context, results map[int64]models.ProbeResult) (int64, error) {
	ids := make([]int64, 0, len(results))
	for id, res := range results {
		if res.Status.Observed() {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := results[id]
			ts := res.Timestamp
			if ts.IsZero() {
				ts = s.now()
			}
			q := tx.Model(&record{}).
				Where("device_id = ? AND enabled = ?", id, true).
				Updates(map[string]interface{}{
					"status":        string(res.Status),
					"last_check":    ts,
					"response_time": res.ResponseTimeMillis,
				})
			if q.Error != nil {
				return q.Error
			}
			updated += q.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: apply results: %w", err)
	}
	return updated, nil
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
