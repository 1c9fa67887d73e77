package dispatch_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_health/internal/snmptest"
	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/client"
	"github.com/vpbank/snmp_health/pkg/snmphealth/dispatch"
	"github.com/vpbank/snmp_health/pkg/snmphealth/probe"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mock Checker
// ─────────────────────────────────────────────────────────────────────────────

type mockChecker struct {
	mu       sync.Mutex
	calls    []int64
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	panicOn  map[int64]bool
}

func (m *mockChecker) CheckStatus(_ context.Context, cfg models.MonitoringConfig) models.ProbeResult {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		old := m.peak.Load()
		if n <= old || m.peak.CompareAndSwap(old, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, cfg.DeviceID)
	m.mu.Unlock()

	if m.panicOn[cfg.DeviceID] {
		panic("probe exploded")
	}
	time.Sleep(m.delay)
	return models.ProbeResult{Status: models.StatusUp, Message: "ok", Timestamp: time.Now()}
}

func configs(ids ...int64) []models.MonitoringConfig {
	out := make([]models.MonitoringConfig, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.MonitoringConfig{DeviceID: id, Enabled: true, Address: "192.0.2.1"})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestCheckAll_SkipsDisabled(t *testing.T) {
	m := &mockChecker{}
	cfgs := configs(1, 2, 3)
	cfgs[1].Enabled = false

	res := dispatch.New(m, dispatch.Options{}, nil).CheckAll(context.Background(), cfgs)

	assert.Len(t, res, 2)
	assert.Contains(t, res, int64(1))
	assert.Contains(t, res, int64(3))
	assert.NotContains(t, res, int64(2))
	assert.ElementsMatch(t, []int64{1, 3}, m.calls)
}

func TestCheckAll_PanicIsolatedToOneDevice(t *testing.T) {
	m := &mockChecker{panicOn: map[int64]bool{2: true}}

	res := dispatch.New(m, dispatch.Options{}, nil).CheckAll(context.Background(), configs(1, 2, 3))

	require.Len(t, res, 3)
	assert.Equal(t, models.StatusUp, res[1].Status)
	assert.Equal(t, models.StatusUp, res[3].Status)
	assert.Equal(t, models.StatusError, res[2].Status)
	assert.Contains(t, res[2].Message, dispatch.MsgDispatchFailed)
	assert.Contains(t, res[2].Message, "probe exploded")
	assert.Nil(t, res[2].ResponseTimeMillis)
}

func TestCheckAll_BoundedConcurrency(t *testing.T) {
	m := &mockChecker{delay: 20 * time.Millisecond}
	ids := make([]int64, 0, 20)
	for i := int64(1); i <= 20; i++ {
		ids = append(ids, i)
	}

	res := dispatch.New(m, dispatch.Options{MaxConcurrency: 3}, nil).CheckAll(context.Background(), configs(ids...))

	assert.Len(t, res, 20)
	assert.LessOrEqual(t, m.peak.Load(), int32(3))
}

func TestCheckAll_RunsInParallel(t *testing.T) {
	m := &mockChecker{delay: 200 * time.Millisecond}

	start := time.Now()
	res := dispatch.New(m, dispatch.Options{}, nil).CheckAll(context.Background(), configs(1, 2, 3, 4, 5))

	assert.Len(t, res, 5)
	assert.Less(t, time.Since(start), 600*time.Millisecond)
}

func TestCheckAll_CancelledContext(t *testing.T) {
	m := &mockChecker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := dispatch.New(m, dispatch.Options{}, nil).CheckAll(ctx, configs(1, 2))

	require.Len(t, res, 2)
	for _, r := range res {
		assert.Equal(t, models.StatusError, r.Status)
		assert.Contains(t, r.Message, "context canceled")
	}
	assert.Empty(t, m.calls)
}

func TestCheckAll_DuplicateDeviceProbedOnce(t *testing.T) {
	m := &mockChecker{}
	res := dispatch.New(m, dispatch.Options{}, nil).CheckAll(context.Background(), configs(4, 4))
	assert.Len(t, res, 1)
	assert.Len(t, m.calls, 1)
}

func TestCheckAll_Empty(t *testing.T) {
	res := dispatch.New(&mockChecker{}, dispatch.Options{}, nil).CheckAll(context.Background(), nil)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

// TestCheckAll_MixedFleet runs three responders and two silent agents. The
// batch must finish in about one device's retry budget.
func TestCheckAll_MixedFleet(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full retry budget")
	}
	var cfgs []models.MonitoringConfig
	for id := int64(1); id <= 5; id++ {
		agent := snmptest.Start(t)
		agent.SetString(probe.OIDSysDescr, "Linux Router v1")
		if id > 3 {
			agent.SetSilent(true)
		}
		cfg := models.MonitoringConfig{
			DeviceID:       id,
			Enabled:        true,
			Address:        agent.Addr(),
			Port:           agent.Port(),
			TimeoutSeconds: 1,
			Retries:        1,
		}
		cfg.ApplyDefaults()
		cfgs = append(cfgs, cfg)
	}

	pool := client.NewSessionPool(client.PoolOptions{}, nil)
	defer pool.Close()
	prober := probe.New(client.New(pool, nil), probe.Options{}, nil)

	start := time.Now()
	res := dispatch.New(prober, dispatch.Options{}, nil).CheckAll(context.Background(), cfgs)
	elapsed := time.Since(start)

	require.Len(t, res, 5)
	for id := int64(1); id <= 3; id++ {
		assert.Equal(t, models.StatusUp, res[id].Status, "device %d", id)
	}
	for id := int64(4); id <= 5; id++ {
		assert.Equal(t, models.StatusDown, res[id].Status, "device %d", id)
	}
	assert.Less(t, elapsed, 3*time.Second)
}
