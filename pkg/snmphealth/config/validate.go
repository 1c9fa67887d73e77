package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vpbank/snmp_health/models"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid snmp config")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(credentialLevel, models.MonitoringConfig{})
	return v
}

// credentialLevel requires an address on enabled configs, a community for
// v1/v2c and a username for v3.
func credentialLevel(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(models.MonitoringConfig)
	if cfg.Enabled && cfg.Address == "" {
		sl.ReportError(cfg.Address, "Address", "Address", "required_enabled", "")
	}
	if cfg.Version == models.Version3 {
		if cfg.Credential.Username == "" {
			sl.ReportError(cfg.Credential.Username, "Credential.Username", "Username", "required_v3", "")
		}
		return
	}
	if cfg.Credential.Community == "" {
		sl.ReportError(cfg.Credential.Community, "Credential.Community", "Community", "required_community", "")
	}
}

// Validate checks a merged configuration. Protocol names are compared
// case-insensitively.
func Validate(cfg models.MonitoringConfig) error {
	cfg.Credential.AuthProtocol = strings.ToLower(cfg.Credential.AuthProtocol)
	cfg.Credential.PrivProtocol = strings.ToLower(cfg.Credential.PrivProtocol)
	cfg.Version = models.Version(strings.ToLower(string(cfg.Version)))

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "MonitoringConfig.")
	switch fe.Tag() {
	case "required_enabled":
		return "ip_address is required when monitoring is enabled"
	case "required_v3":
		return "username is required for SNMP v3"
	case "required_community":
		return "community is required for SNMP v1/v2c"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "max", "gt":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	case "ip|hostname_rfc1123":
		return fmt.Sprintf("%s %q is not an IP address or hostname", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// Normalize lower-cases the version and protocol names of p.
func Normalize(p *models.ConfigPatch) {
	if p.Version != nil {
		v := models.Version(strings.ToLower(string(*p.Version)))
		p.Version = &v
	}
	if p.AuthProtocol != nil {
		v := strings.ToLower(*p.AuthProtocol)
		p.AuthProtocol = &v
	}
	if p.PrivProtocol != nil {
		v := strings.ToLower(*p.PrivProtocol)
		p.PrivProtocol = &v
	}
}
