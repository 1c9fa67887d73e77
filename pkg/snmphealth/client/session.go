// Package client implements the SNMP protocol client used by the health
// engine. It turns a device's monitoring configuration into a gosnmp session,
// pools sessions per target, and performs single-OID GET requests whose
// failures are classified as Timeout, Unreachable or ProtocolError.
package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/snmp_health/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Target
// ─────────────────────────────────────────────────────────────────────────────

// Target is everything needed to address and authenticate one agent.
type Target struct {
	Address    string
	Port       int
	Version    models.Version
	Credential models.Credential

	// Timeout is the wait for a single attempt.
	Timeout time.Duration

	// Retries is the number of additional attempts after the first.
	Retries int
}

// TargetFor builds a Target from a resolved monitoring configuration.
func TargetFor(cfg models.MonitoringConfig) Target {
	return Target{
		Address:    cfg.Address,
		Port:       cfg.Port,
		Version:    cfg.Version,
		Credential: cfg.Credential,
		Timeout:    cfg.Timeout(),
		Retries:    cfg.Retries,
	}
}

// Budget is the longest a single request against t may take including
// every retry.
func (t Target) Budget() time.Duration {
	return t.Timeout * time.Duration(t.Retries+1)
}

// Key identifies sessions that can be shared: same endpoint, same
// credentials, same timing.
func (t Target) Key() string {
	var b strings.Builder
	b.WriteString(t.Address)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(t.Port))
	b.WriteByte('/')
	b.WriteString(string(t.Version))
	b.WriteByte('/')
	if t.Version == models.Version3 {
		b.WriteString(t.Credential.Username)
		b.WriteByte('/')
		b.WriteString(t.Credential.AuthProtocol)
		b.WriteByte('/')
		b.WriteString(t.Credential.PrivProtocol)
		b.WriteByte('/')
		b.WriteString(t.Credential.Password)
	} else {
		b.WriteString(t.Credential.Community)
	}
	b.WriteByte('/')
	b.WriteString(t.Timeout.String())
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(t.Retries))
	return b.String()
}

// String is the endpoint without credentials, for logs and errors.
func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Address, t.Port)
}

// ─────────────────────────────────────────────────────────────────────────────
// Session factory: Target → *gosnmp.GoSNMP
// ─────────────────────────────────────────────────────────────────────────────

// NewSession creates and connects a gosnmp session for t. The caller is
// responsible for closing session.Conn when it is no longer needed.
func NewSession(t Target) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:  t.Address,
		Port:    uint16(t.Port),
		Timeout: t.Timeout,
		Retries: t.Retries,
		MaxOids: gosnmp.MaxOids,
	}

	switch t.Version {
	case models.Version1:
		g.Version = gosnmp.Version1
		g.Community = t.Credential.Community
	case models.Version2c, "":
		g.Version = gosnmp.Version2c
		g.Community = t.Credential.Community
	case models.Version3:
		g.Version = gosnmp.Version3
		g.SecurityModel = gosnmp.UserSecurityModel
		cred := t.Credential
		g.MsgFlags = snmpv3MsgFlags(cred)
		g.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 cred.Username,
			AuthenticationProtocol:   mapAuthProto(cred.AuthProtocol),
			AuthenticationPassphrase: cred.Password,
			PrivacyProtocol:          mapPrivProto(cred.PrivProtocol),
			PrivacyPassphrase:        cred.Password,
		}
	default:
		return nil, fmt.Errorf("unsupported SNMP version %q", t.Version)
	}

	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s: %w", t, err)
	}
	return g, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SNMPv3 helpers
// ─────────────────────────────────────────────────────────────────────────────

func snmpv3MsgFlags(cred models.Credential) gosnmp.SnmpV3MsgFlags {
	hasAuth := cred.AuthProtocol != "" &&
		!strings.EqualFold(cred.AuthProtocol, "noauth")
	hasPriv := cred.PrivProtocol != "" &&
		!strings.EqualFold(cred.PrivProtocol, "nopriv")

	switch {
	case hasAuth && hasPriv:
		return gosnmp.AuthPriv
	case hasAuth:
		return gosnmp.AuthNoPriv
	default:
		return gosnmp.NoAuthNoPriv
	}
}

func mapAuthProto(s string) gosnmp.SnmpV3AuthProtocol {
	switch strings.ToLower(s) {
	case "md5":
		return gosnmp.MD5
	case "sha":
		return gosnmp.SHA
	case "sha224":
		return gosnmp.SHA224
	case "sha256":
		return gosnmp.SHA256
	case "sha384":
		return gosnmp.SHA384
	case "sha512":
		return gosnmp.SHA512
	default:
		return gosnmp.NoAuth
	}
}

func mapPrivProto(s string) gosnmp.SnmpV3PrivProtocol {
	switch strings.ToLower(s) {
	case "des":
		return gosnmp.DES
	case "aes":
		return gosnmp.AES
	case "aes192":
		return gosnmp.AES192
	case "aes256":
		return gosnmp.AES256
	case "aes192c":
		return gosnmp.AES192C
	case "aes256c":
		return gosnmp.AES256C
	default:
		return gosnmp.NoPriv
	}
}
