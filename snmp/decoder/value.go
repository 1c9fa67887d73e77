package decoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// Value is a single decoded varbind.
type Value struct {
	// OID is the numeric OID without a leading dot.
	OID string

	// Type is the ASN.1 type reported by the agent.
	Type gosnmp.Asn1BER

	raw interface{}
}

// Decode converts pdu into a Value. Exception varbinds (noSuchObject,
// noSuchInstance, endOfMibView, Null) are reported as errors.
func Decode(pdu gosnmp.SnmpPDU) (Value, error) {
	oid := strings.TrimPrefix(pdu.Name, ".")
	if IsErrorType(pdu.Type) {
		return Value{}, fmt.Errorf("%s: %s", oid, PDUTypeString(pdu.Type))
	}
	return Value{OID: oid, Type: pdu.Type, raw: pdu.Value}, nil
}

// String renders the value the way it is shown in system info.
func (v Value) String() string {
	switch v.Type {
	case gosnmp.OctetString, gosnmp.ObjectDescription:
		return toDisplayString(v.raw)
	case gosnmp.ObjectIdentifier:
		return toOIDString(v.raw)
	case gosnmp.IPAddress:
		return toIPString(v.raw)
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks,
		gosnmp.Counter64, gosnmp.Uinteger32:
		if n, err := toInt64(v.raw); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return gosnmp.ToBigInt(v.raw).String()
	default:
		return toDisplayString(v.raw)
	}
}

// Int returns the value as an integer. Only numeric ASN.1 types convert.
func (v Value) Int() (int64, error) {
	switch v.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks,
		gosnmp.Counter64, gosnmp.Uinteger32:
		return toInt64(v.raw)
	default:
		return 0, fmt.Errorf("%s: %s is not numeric", v.OID, PDUTypeString(v.Type))
	}
}
