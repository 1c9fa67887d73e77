package models

import (
	"math"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Status taxonomy
// ─────────────────────────────────────────────────────────────────────────────

// Status is the health classification of a monitored device.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusDisabled Status = "disabled"
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusError    Status = "error"
)

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusDisabled, StatusUp, StatusDown, StatusError:
		return true
	}
	return false
}

// Observed reports whether s came from a device actually being probed. Only
// observed statuses are written back to the monitoring configuration.
func (s Status) Observed() bool {
	return s == StatusUp || s == StatusDown
}

// ─────────────────────────────────────────────────────────────────────────────
// Monitoring configuration
// ─────────────────────────────────────────────────────────────────────────────

// Version is the SNMP protocol version string: "1", "2c" or "3".
type Version string

const (
	Version1  Version = "1"
	Version2c Version = "2c"
	Version3  Version = "3"
)

// Defaults applied when a configuration omits a field.
const (
	DefaultPort                 = 161
	DefaultCommunity            = "public"
	DefaultVersion              = Version2c
	DefaultTimeoutSeconds       = 5
	DefaultRetries              = 2
	DefaultCheckIntervalSeconds = 300
)

// Credential carries either a community string (v1/v2c) or a USM user
// (v3). Password is used for both authentication and privacy keys.
type Credential struct {
	Community    string `json:"community,omitempty" yaml:"community"`
	Username     string `json:"username,omitempty" yaml:"username"`
	Password     string `json:"password,omitempty" yaml:"password"`
	AuthProtocol string `json:"auth_protocol,omitempty" yaml:"auth_protocol" validate:"omitempty,oneof=noauth md5 sha sha224 sha256 sha384 sha512"`
	PrivProtocol string `json:"priv_protocol,omitempty" yaml:"priv_protocol" validate:"omitempty,oneof=nopriv des aes aes192 aes256 aes192c aes256c"`
}

// MonitoringConfig is the per-device SNMP monitoring record. The first block
// of fields is configuration; the second is the last observation written
// back by a probe cycle.
type MonitoringConfig struct {
	DeviceID             int64      `json:"device_id" validate:"gt=0"`
	Enabled              bool       `json:"enabled"`
	Address              string     `json:"ip_address" validate:"omitempty,ip|hostname_rfc1123"`
	Port                 int        `json:"port" validate:"min=1,max=65535"`
	Credential           Credential `json:"credential"`
	Version              Version    `json:"version" validate:"oneof=1 2c 3"`
	TimeoutSeconds       int        `json:"timeout" validate:"min=1,max=300"`
	Retries              int        `json:"retries" validate:"min=0,max=10"`
	CheckIntervalSeconds int        `json:"check_interval" validate:"min=0"`

	Status             Status     `json:"status"`
	LastCheck          *time.Time `json:"last_check"`
	ResponseTimeMillis *float64   `json:"response_time"`
}

// ApplyDefaults fills zero-valued configuration fields with the documented
// defaults. Observed fields are only touched when Status is empty.
func (c *MonitoringConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Version != Version3 && c.Credential.Community == "" {
		c.Credential.Community = DefaultCommunity
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.CheckIntervalSeconds == 0 {
		c.CheckIntervalSeconds = DefaultCheckIntervalSeconds
	}
	if c.Status == "" {
		c.Status = StatusUnknown
	}
}

// RedactedSecret replaces credential secrets in Redacted output.
const RedactedSecret = "********"

// Redacted returns a copy of c with the community and password masked.
func (c MonitoringConfig) Redacted() MonitoringConfig {
	if c.Credential.Community != "" {
		c.Credential.Community = RedactedSecret
	}
	if c.Credential.Password != "" {
		c.Credential.Password = RedactedSecret
	}
	return c
}

// Timeout returns the per-attempt timeout as a duration.
func (c MonitoringConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ─────────────────────────────────────────────────────────────────────────────
// Probe results
// ─────────────────────────────────────────────────────────────────────────────

// ProbeResult is the outcome of a single status check.
type ProbeResult struct {
	Status             Status            `json:"status"`
	Message            string            `json:"message"`
	ResponseTimeMillis *float64          `json:"response_time"`
	Timestamp          time.Time         `json:"timestamp"`
	SystemInfo         map[string]string `json:"system_info,omitempty"`
}

// InterfaceStatus is the decoded state of a single interface row.
type InterfaceStatus struct {
	Index                int    `json:"interface_id"`
	OperationalStatus    string `json:"operational_status"`
	AdministrativeStatus string `json:"administrative_status"`
	IsUp                 bool   `json:"is_up"`
}

// InterfaceReport is the result of an interface enumeration.
type InterfaceReport struct {
	Interfaces []InterfaceStatus `json:"interfaces"`
	Total      int               `json:"total_interfaces"`
	Message    string            `json:"message"`
}

// BatchReport is the joined result of a fleet-wide check.
type BatchReport struct {
	Message string                `json:"message"`
	Results map[int64]ProbeResult `json:"results"`
}

// Millis converts d to milliseconds rounded to two decimals.
func Millis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
