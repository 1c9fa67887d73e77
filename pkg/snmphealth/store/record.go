package store

import (
	"time"

	"github.com/vpbank/snmp_health/models"
)

// record is the device_snmp_config row.
type record struct {
	DeviceID      int64  `gorm:"column:device_id;primaryKey;autoIncrement:false"`
	Enabled       bool   `gorm:"column:enabled;not null;index"`
	IPAddress     string `gorm:"column:ip_address;size:255"`
	Port          int    `gorm:"column:port;not null"`
	Community     string `gorm:"column:community;size:100"`
	Version       string `gorm:"column:version;size:5;not null"`
	Username      string `gorm:"column:username;size:100"`
	Password      string `gorm:"column:password;size:255"`
	AuthProtocol  string `gorm:"column:auth_protocol;size:20"`
	PrivProtocol  string `gorm:"column:priv_protocol;size:20"`
	Timeout       int    `gorm:"column:timeout;not null"`
	Retries       int    `gorm:"column:retries;not null"`
	CheckInterval int    `gorm:"column:check_interval;not null"`

	Status       string     `gorm:"column:status;size:20;not null"`
	LastCheck    *time.Time `gorm:"column:last_check"`
	ResponseTime *float64   `gorm:"column:response_time"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (record) TableName() string { return "device_snmp_config" }

// configColumns are the columns a config update may write. Observed columns
// are only written by ApplyResults.
var configColumns = []string{
	"enabled", "ip_address", "port", "community", "version",
	"username", "password", "auth_protocol", "priv_protocol",
	"timeout", "retries", "check_interval", "updated_at",
}

func toRecord(c models.MonitoringConfig) record {
	return record{
		DeviceID:      c.DeviceID,
		Enabled:       c.Enabled,
		IPAddress:     c.Address,
		Port:          c.Port,
		Community:     c.Credential.Community,
		Version:       string(c.Version),
		Username:      c.Credential.Username,
		Password:      c.Credential.Password,
		AuthProtocol:  c.Credential.AuthProtocol,
		PrivProtocol:  c.Credential.PrivProtocol,
		Timeout:       c.TimeoutSeconds,
		Retries:       c.Retries,
		CheckInterval: c.CheckIntervalSeconds,
		Status:        string(c.Status),
		LastCheck:     c.LastCheck,
		ResponseTime:  c.ResponseTimeMillis,
	}
}

func (r record) config() models.MonitoringConfig {
	return models.MonitoringConfig{
		DeviceID: r.DeviceID,
		Enabled:  r.Enabled,
		Address:  r.IPAddress,
		Port:     r.Port,
		Credential: models.Credential{
			Community:    r.Community,
			Username:     r.Username,
			Password:     r.Password,
			AuthProtocol: r.AuthProtocol,
			PrivProtocol: r.PrivProtocol,
		},
		Version:              models.Version(r.Version),
		TimeoutSeconds:       r.Timeout,
		Retries:              r.Retries,
		CheckIntervalSeconds: r.CheckInterval,
		Status:               models.Status(r.Status),
		LastCheck:            r.LastCheck,
		ResponseTimeMillis:   r.ResponseTime,
	}
}
