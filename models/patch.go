package models

// ConfigPatch is a partial update of a MonitoringConfig. Nil fields are left
// unchanged. Observed fields (status, last check, response time) are not
// patchable.
type ConfigPatch struct {
	Enabled              *bool    `json:"enabled,omitempty" yaml:"enabled"`
	Address              *string  `json:"ip_address,omitempty" yaml:"ip_address"`
	Port                 *int     `json:"port,omitempty" yaml:"port"`
	Community            *string  `json:"community,omitempty" yaml:"community"`
	Version              *Version `json:"version,omitempty" yaml:"version"`
	Username             *string  `json:"username,omitempty" yaml:"username"`
	Password             *string  `json:"password,omitempty" yaml:"password"`
	AuthProtocol         *string  `json:"auth_protocol,omitempty" yaml:"auth_protocol"`
	PrivProtocol         *string  `json:"priv_protocol,omitempty" yaml:"priv_protocol"`
	TimeoutSeconds       *int     `json:"timeout,omitempty" yaml:"timeout"`
	Retries              *int     `json:"retries,omitempty" yaml:"retries"`
	CheckIntervalSeconds *int     `json:"check_interval,omitempty" yaml:"check_interval"`
}

// Apply copies every non-nil field of p onto cfg.
func (p ConfigPatch) Apply(cfg *MonitoringConfig) {
	if p.Enabled != nil {
		cfg.Enabled = *p.Enabled
	}
	if p.Address != nil {
		cfg.Address = *p.Address
	}
	if p.Port != nil {
		cfg.Port = *p.Port
	}
	if p.Community != nil {
		cfg.Credential.Community = *p.Community
	}
	if p.Version != nil {
		cfg.Version = *p.Version
	}
	if p.Username != nil {
		cfg.Credential.Username = *p.Username
	}
	if p.Password != nil {
		cfg.Credential.Password = *p.Password
	}
	if p.AuthProtocol != nil {
		cfg.Credential.AuthProtocol = *p.AuthProtocol
	}
	if p.PrivProtocol != nil {
		cfg.Credential.PrivProtocol = *p.PrivProtocol
	}
	if p.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *p.TimeoutSeconds
	}
	if p.Retries != nil {
		cfg.Retries = *p.Retries
	}
	if p.CheckIntervalSeconds != nil {
		cfg.CheckIntervalSeconds = *p.CheckIntervalSeconds
	}
}

// NewConfig returns a config for deviceID with every default applied.
func NewConfig(deviceID int64) MonitoringConfig {
	cfg := MonitoringConfig{DeviceID: deviceID, Retries: DefaultRetries}
	cfg.ApplyDefaults()
	return cfg
}
