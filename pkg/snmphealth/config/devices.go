package config

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vpbank/snmp_health/models"
)

// Devices maps device id → resolved patch (defaults merged in).
type Devices map[int64]models.ConfigPatch

// IDs returns the device ids in ascending order.
func (d Devices) IDs() []int64 {
	ids := make([]int64, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadDevices reads every device file under paths.Devices and merges the
// defaults found under paths.Defaults into each entry. Malformed files are
// skipped with a warning; a missing directory yields no devices.
//
// Device files are YAML maps keyed by device id:
//
//	42:
//	  ip_address: 192.0.2.1
//	  community: public
//	  version: 2c
//
// Defaults files carry a single "default" entry of the same shape.
func LoadDevices(paths Paths, logger *slog.Logger) (Devices, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	var errs []string

	defaults, err := loadDefaults(paths.Defaults, logger)
	if err != nil {
		errs = append(errs, err.Error())
	}

	devices, err := loadDevices(paths.Devices, defaults, logger)
	if err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %d error(s):\n  %s", len(errs), strings.Join(errs, "\n  "))
	}
	return devices, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Defaults
// ─────────────────────────────────────────────────────────────────────────────

type rawDefaults struct {
	Default models.ConfigPatch `yaml:"default"`
}

func loadDefaults(dir string, logger *slog.Logger) (models.ConfigPatch, error) {
	var merged models.ConfigPatch
	files, err := yamlFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return merged, nil
		}
		return merged, fmt.Errorf("list defaults dir %q: %w", dir, err)
	}

	for _, path := range files {
		var raw rawDefaults
		if err := decodeFile(path, &raw); err != nil {
			logger.Warn("config: skip malformed defaults file", "file", path, "error", err.Error())
			continue
		}
		merged = mergePatch(merged, raw.Default)
		logger.Debug("config: loaded device defaults", "file", path)
	}
	return merged, nil
}

// mergePatch fills nil fields in dst with values from src.
func mergePatch(dst, src models.ConfigPatch) models.ConfigPatch {
	if dst.Enabled == nil {
		dst.Enabled = src.Enabled
	}
	if dst.Address == nil {
		dst.Address = src.Address
	}
	if dst.Port == nil {
		dst.Port = src.Port
	}
	if dst.Community == nil {
		dst.Community = src.Community
	}
	if dst.Version == nil {
		dst.Version = src.Version
	}
	if dst.Username == nil {
		dst.Username = src.Username
	}
	if dst.Password == nil {
		dst.Password = src.Password
	}
	if dst.AuthProtocol == nil {
		dst.AuthProtocol = src.AuthProtocol
	}
	if dst.PrivProtocol == nil {
		dst.PrivProtocol = src.PrivProtocol
	}
	if dst.TimeoutSeconds == nil {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if dst.Retries == nil {
		dst.Retries = src.Retries
	}
	if dst.CheckIntervalSeconds == nil {
		dst.CheckIntervalSeconds = src.CheckIntervalSeconds
	}
	return dst
}

// ─────────────────────────────────────────────────────────────────────────────
// Devices
// ─────────────────────────────────────────────────────────────────────────────

func loadDevices(dir string, defaults models.ConfigPatch, logger *slog.Logger) (Devices, error) {
	result := make(Devices)
	files, err := yamlFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, fmt.Errorf("list devices dir %q: %w", dir, err)
	}

	for _, path := range files {
		var raw map[int64]models.ConfigPatch
		if err := decodeFile(path, &raw); err != nil {
			logger.Warn("config: skip malformed device file", "file", path, "error", err.Error())
			continue
		}
		for id, entry := range raw {
			if id <= 0 {
				logger.Warn("config: skip device with invalid id", "file", path, "device_id", id)
				continue
			}
			if _, dup := result[id]; dup {
				logger.Warn("config: device defined twice, last file wins", "file", path, "device_id", id)
			}
			result[id] = resolveDevice(entry, defaults)
		}
		logger.Debug("config: loaded device file", "file", path, "count", len(raw))
	}
	return result, nil
}

// resolveDevice merges a device entry with defaults. A device listed in a
// definition file is enabled unless it or the defaults say otherwise, and
// protocol names are lower-cased.
func resolveDevice(e, d models.ConfigPatch) models.ConfigPatch {
	p := mergePatch(e, d)
	if p.Enabled == nil {
		enabled := true
		p.Enabled = &enabled
	}
	Normalize(&p)
	return p
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// yamlFiles returns all *.yml / *.yaml files under dir, sorted by path.
func yamlFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yml" || ext == ".yaml" {
			paths = append(paths, p)
		}
		return nil
	})
	return paths, err
}
