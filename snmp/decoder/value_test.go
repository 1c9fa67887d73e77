package decoder_test

import (
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_health/snmp/decoder"
)

func TestDecode_StripsLeadingDot(t *testing.T) {
	v, err := decoder.Decode(gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("core-sw1")})
	require.NoError(t, err)
	assert.Equal(t, "1.3.6.1.2.1.1.5.0", v.OID)
	assert.Equal(t, "core-sw1", v.String())
}

func TestDecode_ExceptionTypes(t *testing.T) {
	for _, typ := range []gosnmp.Asn1BER{gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null} {
		t.Run(decoder.PDUTypeString(typ), func(t *testing.T) {
			_, err := decoder.Decode(gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.1.0", Type: typ})
			require.Error(t, err)
			assert.Contains(t, err.Error(), decoder.PDUTypeString(typ))
		})
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want string
	}{
		{"octet string trims nulls", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("Cisco IOS\x00\x00")}, "Cisco IOS"},
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 7}, "7"},
		{"timeticks", gosnmp.SnmpPDU{Type: gosnmp.TimeTicks, Value: uint32(123456)}, "123456"},
		{"oid", gosnmp.SnmpPDU{Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.9"}, "1.3.6.1.4.1.9"},
		{"ip address", gosnmp.SnmpPDU{Type: gosnmp.IPAddress, Value: "192.0.2.1"}, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.pdu.Name = ".1.3.6.1.2.1.1.1.0"
			v, err := decoder.Decode(tt.pdu)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestValue_Int(t *testing.T) {
	v, err := decoder.Decode(gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.1.0", Type: gosnmp.Integer, Value: 24})
	require.NoError(t, err)
	n, err := v.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(24), n)

	s, err := decoder.Decode(gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.1.0", Type: gosnmp.OctetString, Value: []byte("24")})
	require.NoError(t, err)
	_, err = s.Int()
	assert.Error(t, err)
}
