package probe

import "strconv"

// Well-known scalar OIDs read by the prober.
const (
	OIDSysDescr    = "1.3.6.1.2.1.1.1.0"
	OIDSysUpTime   = "1.3.6.1.2.1.1.3.0"
	OIDSysName     = "1.3.6.1.2.1.1.5.0"
	OIDSysLocation = "1.3.6.1.2.1.1.6.0"
	OIDIfNumber    = "1.3.6.1.2.1.2.1.0"

	oidIfAdminStatus = "1.3.6.1.2.1.2.2.1.7"
	oidIfOperStatus  = "1.3.6.1.2.1.2.2.1.8"
)

// IfOperStatusOID returns ifOperStatus for interface index i.
func IfOperStatusOID(i int) string { return oidIfOperStatus + "." + strconv.Itoa(i) }

// IfAdminStatusOID returns ifAdminStatus for interface index i.
func IfAdminStatusOID(i int) string { return oidIfAdminStatus + "." + strconv.Itoa(i) }

// Step is one entry of a status plan: the OID to read and the key its value
// is reported under in system info.
type Step struct {
	Name string
	OID  string
}

// Plan is the ordered list of OIDs a status check tries. The first step that
// returns a value ends the check.
type Plan []Step

// DefaultPlan reads sysDescr, then sysUpTime, then sysName.
var DefaultPlan = Plan{
	{Name: "system_description", OID: OIDSysDescr},
	{Name: "system_uptime", OID: OIDSysUpTime},
	{Name: "system_name", OID: OIDSysName},
}
