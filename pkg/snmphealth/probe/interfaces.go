package probe

import (
	"context"

	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/client"
)

// MaxInterfaces caps how many interface rows are read per call, whatever
// ifNumber reports.
const MaxInterfaces = 10

// Interface listing messages.
const (
	MsgInterfacesDisabled  = "SNMP monitoring disabled"
	MsgInterfaceCountBad   = "Could not get interface count"
	MsgInterfacesFailed    = "Failed to get interface status: "
	MsgInterfacesRetrieved = "Interface status retrieved successfully"
)

// ─────────────────────────────────────────────────────────────────────────────
// ListInterfaces
// ─────────────────────────────────────────────────────────────────────────────

// ListInterfaces reads ifNumber and then the oper/admin status of the first
// min(ifNumber, MaxInterfaces) indices. Indices whose status cannot be read
// are left out. Total is the count the device reported.
func (p *Prober) ListInterfaces(ctx context.Context, cfg models.MonitoringConfig) models.InterfaceReport {
	empty := []models.InterfaceStatus{}
	if !cfg.Enabled {
		return models.InterfaceReport{Interfaces: empty, Message: MsgInterfacesDisabled}
	}
	if cfg.Address == "" {
		return models.InterfaceReport{Interfaces: empty, Message: MsgNotConfigured}
	}

	target := client.TargetFor(cfg)

	v, err := p.get.Get(ctx, target, OIDIfNumber)
	if err != nil {
		p.logger.Error("probe: interface count failed",
			"device_id", cfg.DeviceID,
			"target", target.String(),
			"error", err.Error(),
		)
		return models.InterfaceReport{Interfaces: empty, Message: MsgInterfacesFailed + err.Error()}
	}
	count, err := v.Int()
	if err != nil || count < 0 {
		p.logger.Warn("probe: unusable interface count",
			"device_id", cfg.DeviceID,
			"target", target.String(),
			"value", v.String(),
		)
		return models.InterfaceReport{Interfaces: empty, Message: MsgInterfaceCountBad}
	}

	limit := int(min(count, MaxInterfaces))
	out := make([]models.InterfaceStatus, 0, limit)
	for i := 1; i <= limit; i++ {
		st, err := p.readInterface(ctx, target, i)
		if err != nil {
			p.logger.Warn("probe: skip interface",
				"device_id", cfg.DeviceID,
				"target", target.String(),
				"index", i,
				"error", err.Error(),
			)
			continue
		}
		out = append(out, st)
	}

	return models.InterfaceReport{
		Interfaces: out,
		Total:      int(count),
		Message:    MsgInterfacesRetrieved,
	}
}

func (p *Prober) readInterface(ctx context.Context, target client.Target, index int) (models.InterfaceStatus, error) {
	oper, err := p.readStatus(ctx, target, IfOperStatusOID(index))
	if err != nil {
		return models.InterfaceStatus{}, err
	}
	admin, err := p.readStatus(ctx, target, IfAdminStatusOID(index))
	if err != nil {
		return models.InterfaceStatus{}, err
	}
	return models.InterfaceStatus{
		Index:                index,
		OperationalStatus:    oper.String(),
		AdministrativeStatus: admin.String(),
		IsUp:                 oper == IfUp && admin == IfUp,
	}, nil
}

func (p *Prober) readStatus(ctx context.Context, target client.Target, oid string) (IfStatus, error) {
	v, err := p.get.Get(ctx, target, oid)
	if err != nil {
		return 0, err
	}
	code, err := v.Int()
	if err != nil {
		// Non-numeric codes decode to "unknown" rather than failing the row.
		return IfUnknown, nil
	}
	return IfStatus(code), nil
}

