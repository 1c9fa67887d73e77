package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/config"
)

func tmpDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// ── Settings ─────────────────────────────────────────────────────────────────

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := config.LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s)
	assert.Equal(t, 64, s.Dispatch.MaxConcurrency)
	assert.Equal(t, 300, s.Scheduler.IntervalSeconds)
}

func TestLoadSettings_FileAndEnv(t *testing.T) {
	dir := tmpDir(t, map[string]string{"settings.yml": `
database:
  path: /tmp/x.db
log:
  level: debug
  format: text
dispatch:
  max_concurrency: 8
scheduler:
  enabled: true
  interval_seconds: 60
http:
  listen: 127.0.0.1:9000
`})
	t.Setenv("SNMPHEALTH_HTTP_LISTEN", ":9999")
	t.Setenv("SNMPHEALTH_SCHEDULER_ENABLED", "false")

	s, err := config.LoadSettings(filepath.Join(dir, "settings.yml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", s.Database.Path)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "text", s.Log.Format)
	assert.Equal(t, 8, s.Dispatch.MaxConcurrency)
	assert.Equal(t, 60, s.Scheduler.IntervalSeconds)
	assert.Equal(t, ":9999", s.HTTP.Listen)
	assert.False(t, s.Scheduler.Enabled)
	// untouched keys keep their defaults
	assert.Equal(t, 2, s.Pool.MaxIdlePerTarget)
}

func TestLoadSettings_Invalid(t *testing.T) {
	dir := tmpDir(t, map[string]string{"settings.yml": "log:\n  format: xml\ndispatch:\n  max_concurrency: 0\n"})
	_, err := config.LoadSettings(filepath.Join(dir, "settings.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "dispatch.max_concurrency")
}

func TestLoadSettings_BadEnv(t *testing.T) {
	t.Setenv("SNMPHEALTH_DISPATCH_MAX_CONCURRENCY", "many")
	_, err := config.LoadSettings("")
	assert.Error(t, err)
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := config.LoadSettings(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

// ── Devices ──────────────────────────────────────────────────────────────────

const devicesYAML = `
1:
  ip_address: 192.0.2.1
  community: private
2:
  ip_address: 192.0.2.2
  version: 3
  username: monitor
  password: secret
  auth_protocol: SHA
  priv_protocol: AES
3:
  ip_address: 192.0.2.3
  enabled: false
  retries: 0
`

const defaultsYAML = `
default:
  port: 1161
  community: public
  timeout: 3
  retries: 1
`

func TestLoadDevices_MergesDefaults(t *testing.T) {
	devs, err := config.LoadDevices(config.Paths{
		Devices:  tmpDir(t, map[string]string{"devices.yml": devicesYAML}),
		Defaults: tmpDir(t, map[string]string{"defaults.yaml": defaultsYAML}),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, devs.IDs())

	one := devs[1]
	assert.Equal(t, "private", *one.Community)
	assert.Equal(t, 1161, *one.Port)
	assert.Equal(t, 3, *one.TimeoutSeconds)
	assert.True(t, *one.Enabled)
	assert.Nil(t, one.Version)

	two := devs[2]
	assert.Equal(t, models.Version3, *two.Version)
	assert.Equal(t, "sha", *two.AuthProtocol)
	assert.Equal(t, "aes", *two.PrivProtocol)

	three := devs[3]
	assert.False(t, *three.Enabled)
	assert.Equal(t, 0, *three.Retries, "explicit zero retries is kept")
}

func TestLoadDevices_MissingDirs(t *testing.T) {
	devs, err := config.LoadDevices(config.Paths{
		Devices:  filepath.Join(t.TempDir(), "none"),
		Defaults: filepath.Join(t.TempDir(), "none"),
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, devs)
}

func TestLoadDevices_SkipsMalformed(t *testing.T) {
	devs, err := config.LoadDevices(config.Paths{
		Devices: tmpDir(t, map[string]string{
			"good.yml": "7:\n  ip_address: 192.0.2.7\n",
			"bad.yml":  "7: [unterminated\n",
			"note.txt": "ignored",
		}),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, devs.IDs())
}

// ── Validate ─────────────────────────────────────────────────────────────────

func validConfig() models.MonitoringConfig {
	cfg := models.NewConfig(1)
	cfg.Enabled = true
	cfg.Address = "192.0.2.1"
	return cfg
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*models.MonitoringConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*models.MonitoringConfig) {}},
		{name: "hostname", mutate: func(c *models.MonitoringConfig) { c.Address = "core-sw1.example.net" }},
		{name: "hostname with leading digit", mutate: func(c *models.MonitoringConfig) { c.Address = "3com-sw1.example.net" }},
		{name: "bad hostname", mutate: func(c *models.MonitoringConfig) { c.Address = "sw_1 .example" }, wantErr: "not an IP address or hostname"},
		{name: "enabled without address", mutate: func(c *models.MonitoringConfig) { c.Address = "" }, wantErr: "ip_address is required"},
		{name: "disabled without address", mutate: func(c *models.MonitoringConfig) {
			c.Enabled = false
			c.Address = ""
		}},
		{name: "bad port", mutate: func(c *models.MonitoringConfig) { c.Port = 70000 }, wantErr: "Port"},
		{name: "bad version", mutate: func(c *models.MonitoringConfig) { c.Version = "4" }, wantErr: "Version"},
		{name: "no community", mutate: func(c *models.MonitoringConfig) { c.Credential.Community = "" }, wantErr: "community is required"},
		{name: "v3 without user", mutate: func(c *models.MonitoringConfig) { c.Version = models.Version3 }, wantErr: "username is required"},
		{name: "v3 upper-case protocols", mutate: func(c *models.MonitoringConfig) {
			c.Version = models.Version3
			c.Credential = models.Credential{Username: "u", Password: "p", AuthProtocol: "SHA256", PrivProtocol: "AES256"}
		}},
		{name: "unknown auth", mutate: func(c *models.MonitoringConfig) { c.Credential.AuthProtocol = "md4" }, wantErr: "AuthProtocol"},
		{name: "negative retries", mutate: func(c *models.MonitoringConfig) { c.Retries = -1 }, wantErr: "Retries"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := config.Validate(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNormalize(t *testing.T) {
	v := models.Version("2C")
	auth := "MD5"
	p := models.ConfigPatch{Version: &v, AuthProtocol: &auth}
	config.Normalize(&p)
	assert.Equal(t, models.Version2c, *p.Version)
	assert.Equal(t, "md5", *p.AuthProtocol)
	assert.Equal(t, "MD5", auth, "input string is not modified")
}
