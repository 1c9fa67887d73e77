// Package snmptest provides an in-process SNMP v1/v2c agent for tests. It
// answers GET requests from a table of scalar values, replies noSuchObject
// for anything else, and can be switched into a silent mode that drops every
// request so callers observe a timeout.
package snmptest

import (
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Agent is a fake SNMP agent bound to a loopback UDP port.
type Agent struct {
	conn net.PacketConn

	mu        sync.Mutex
	values    map[string]gosnmp.SnmpPDU
	silent    bool
	delay     time.Duration
	community string
	requests  map[string]int
	total     int

	wg sync.WaitGroup
}

// Start launches an agent on 127.0.0.1 with an ephemeral port and registers
// its shutdown with t.Cleanup.
func Start(t testing.TB) *Agent {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("snmptest: listen: %v", err)
	}
	a := &Agent{
		conn:     conn,
		values:   make(map[string]gosnmp.SnmpPDU),
		requests: make(map[string]int),
	}
	a.wg.Add(1)
	go a.serve()
	t.Cleanup(a.Close)
	return a
}

// Addr is the host part of the agent's address.
func (a *Agent) Addr() string { return "127.0.0.1" }

// Port is the UDP port the agent listens on.
func (a *Agent) Port() int { return a.conn.LocalAddr().(*net.UDPAddr).Port }

// Close stops the agent.
func (a *Agent) Close() {
	_ = a.conn.Close()
	a.wg.Wait()
}

// SetString stores an OctetString value.
func (a *Agent) SetString(oid, value string) {
	a.set(oid, gosnmp.OctetString, value)
}

// SetInt stores an Integer value.
func (a *Agent) SetInt(oid string, value int) {
	a.set(oid, gosnmp.Integer, value)
}

// SetTimeTicks stores a TimeTicks value.
func (a *Agent) SetTimeTicks(oid string, value uint32) {
	a.set(oid, gosnmp.TimeTicks, value)
}

// Delete removes oid so later requests get noSuchObject.
func (a *Agent) Delete(oid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, norm(oid))
}

// SetSilent makes the agent drop every request without replying.
func (a *Agent) SetSilent(silent bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.silent = silent
}

// SetDelay holds every reply for d before sending it.
func (a *Agent) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

// RequireCommunity drops requests whose community differs from c.
func (a *Agent) RequireCommunity(c string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.community = c
}

// Requests is the number of datagrams received, answered or not.
func (a *Agent) Requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// RequestsFor is the number of GETs that named oid.
func (a *Agent) RequestsFor(oid string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[norm(oid)]
}

func (a *Agent) set(oid string, typ gosnmp.Asn1BER, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := norm(oid)
	a.values[key] = gosnmp.SnmpPDU{Name: "." + key, Type: typ, Value: value}
}

func (a *Agent) serve() {
	defer a.wg.Done()
	buf := make([]byte, 65535)
	codec := &gosnmp.GoSNMP{}
	for {
		n, from, err := a.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		req, err := codec.SnmpDecodePacket(append([]byte(nil), buf[:n]...))
		if err != nil {
			continue
		}
		resp, delay, ok := a.answer(req)
		if !ok {
			continue
		}
		out, err := resp.MarshalMsg()
		if err != nil {
			continue
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		_, _ = a.conn.WriteTo(out, from)
	}
}

func (a *Agent) answer(req *gosnmp.SnmpPacket) (*gosnmp.SnmpPacket, time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	for _, v := range req.Variables {
		a.requests[norm(v.Name)]++
	}
	if a.silent || req.PDUType != gosnmp.GetRequest {
		return nil, 0, false
	}
	if a.community != "" && req.Community != a.community {
		return nil, 0, false
	}

	vars := make([]gosnmp.SnmpPDU, 0, len(req.Variables))
	for _, v := range req.Variables {
		key := norm(v.Name)
		pdu, ok := a.values[key]
		if !ok {
			pdu = gosnmp.SnmpPDU{Name: "." + key, Type: gosnmp.NoSuchObject}
		}
		vars = append(vars, pdu)
	}
	return &gosnmp.SnmpPacket{
		Version:   req.Version,
		Community: req.Community,
		PDUType:   gosnmp.GetResponse,
		RequestID: req.RequestID,
		Error:     gosnmp.NoError,
		Variables: vars,
	}, a.delay, true
}

func norm(oid string) string { return strings.TrimPrefix(oid, ".") }
