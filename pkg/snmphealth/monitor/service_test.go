package monitor_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/dispatch"
	"github.com/vpbank/snmp_health/pkg/snmphealth/monitor"
	"github.com/vpbank/snmp_health/pkg/snmphealth/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

// fakeProber returns a fixed status per device id; unknown ids are up.
type fakeProber struct {
	mu     sync.Mutex
	status map[int64]models.Status
	probed []int64
}

func (f *fakeProber) CheckStatus(_ context.Context, cfg models.MonitoringConfig) models.ProbeResult {
	f.mu.Lock()
	f.probed = append(f.probed, cfg.DeviceID)
	st, ok := f.status[cfg.DeviceID]
	f.mu.Unlock()
	if !cfg.Enabled {
		return models.ProbeResult{Status: models.StatusDisabled, Timestamp: time.Now()}
	}
	if !ok {
		st = models.StatusUp
	}
	rt := 1.5
	return models.ProbeResult{Status: st, Message: string(st), ResponseTimeMillis: &rt, Timestamp: time.Now()}
}

func (f *fakeProber) ListInterfaces(_ context.Context, cfg models.MonitoringConfig) models.InterfaceReport {
	return models.InterfaceReport{
		Interfaces: []models.InterfaceStatus{{Index: 1, OperationalStatus: "up", AdministrativeStatus: "up", IsUp: true}},
		Total:      1,
		Message:    "ok",
	}
}

// countingStore wraps the real store and counts commits.
type countingStore struct {
	*store.Store
	mu      sync.Mutex
	commits int
	fail    error
}

func (c *countingStore) ApplyResults(ctx context.Context, results map[int64]models.ProbeResult) (int64, error) {
	c.mu.Lock()
	c.commits++
	c.mu.Unlock()
	if c.fail != nil {
		return 0, c.fail
	}
	return c.Store.ApplyResults(ctx, results)
}

type recorder struct {
	mu      sync.Mutex
	probes  int
	batches int
	commitE int
}

func (r *recorder) ObserveProbe(models.ProbeResult) { r.mu.Lock(); r.probes++; r.mu.Unlock() }
func (r *recorder) ObserveBatch(int, time.Duration)  { r.mu.Lock(); r.batches++; r.mu.Unlock() }
func (r *recorder) CommitFailed()                   { r.mu.Lock(); r.commitE++; r.mu.Unlock() }

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc    *monitor.Service
	store  *countingStore
	prober *fakeProber
	rec    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "snmp.db"), nil)
	require.NoError(t, err)
	st := &countingStore{Store: store.New(db)}
	t.Cleanup(func() { _ = st.Close() })

	p := &fakeProber{status: map[int64]models.Status{}}
	rec := &recorder{}
	svc := monitor.New(st, p, dispatch.New(p, dispatch.Options{MaxConcurrency: 4}, nil), monitor.Options{Recorder: rec}, nil)
	return &fixture{svc: svc, store: st, prober: p, rec: rec}
}

func (f *fixture) seed(t *testing.T, id int64, enabled bool) {
	t.Helper()
	_, err := f.svc.Configure(context.Background(), id, models.ConfigPatch{Enabled: ptr(enabled), Address: ptr("192.0.2.1")})
	require.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// CheckOne
// ─────────────────────────────────────────────────────────────────────────────

func TestCheckOne_PersistsObservation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, true)
	f.prober.status[1] = models.StatusDown

	res, err := f.svc.CheckOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDown, res.Status)

	cfg, err := f.svc.Config(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDown, cfg.Status)
	assert.NotNil(t, cfg.LastCheck)
	assert.Equal(t, 1, f.store.commits)
	assert.Equal(t, 1, f.rec.probes)
}

func TestCheckOne_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckOne(context.Background(), 99)
	assert.ErrorIs(t, err, monitor.ErrNotFound)
}

func TestCheckOne_DisabledIsReportedButNotPersisted(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2, false)

	res, err := f.svc.CheckOne(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisabled, res.Status)

	cfg, err := f.svc.Config(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, cfg.Status)
	assert.Zero(t, f.store.commits)
}

func TestCheckOne_CommitFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, true)
	f.store.fail = errors.New("disk full")

	res, err := f.svc.CheckOne(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, models.StatusUp, res.Status)
	assert.Equal(t, 1, f.rec.commitE)
}

// ─────────────────────────────────────────────────────────────────────────────
// CheckAll
// ─────────────────────────────────────────────────────────────────────────────

func TestCheckAll_ProbesEnabledAndCommitsOnce(t *testing.T) {
	f := newFixture(t)
	for id := int64(1); id <= 5; id++ {
		f.seed(t, id, true)
	}
	f.seed(t, 6, false)
	f.prober.status[4] = models.StatusDown
	f.prober.status[5] = models.StatusDown

	rep, err := f.svc.CheckAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, rep.Results, 5)
	assert.Equal(t, "Checked 5 devices: 3 up, 2 down, 0 errors", rep.Message)
	assert.NotContains(t, f.prober.probed, int64(6))
	assert.Equal(t, 1, f.store.commits)
	assert.Equal(t, 1, f.rec.batches)

	four, err := f.svc.Config(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDown, four.Status)

	six, err := f.svc.Config(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, six.Status)
	assert.Nil(t, six.LastCheck)
}

func TestCheckAll_NoDevices(t *testing.T) {
	f := newFixture(t)
	rep, err := f.svc.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Results)
	assert.Equal(t, "No devices with SNMP monitoring enabled", rep.Message)
}

func TestCheckAll_CommitFailureStillReturnsReport(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, true)
	f.store.fail = errors.New("locked")

	rep, err := f.svc.CheckAll(context.Background())
	require.Error(t, err)
	assert.Len(t, rep.Results, 1)
	assert.Equal(t, 1, f.rec.commitE)
}

// ─────────────────────────────────────────────────────────────────────────────
// ListInterfaces / Configure
// ─────────────────────────────────────────────────────────────────────────────

func TestListInterfaces(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, true)

	rep, err := f.svc.ListInterfaces(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rep.Interfaces, 1)
	assert.Zero(t, f.store.commits)

	_, err = f.svc.ListInterfaces(context.Background(), 2)
	assert.ErrorIs(t, err, monitor.ErrNotFound)
}

func TestConfigure_Patches(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, true)

	cfg, err := f.svc.Configure(context.Background(), 1, models.ConfigPatch{Port: ptr(1161)})
	require.NoError(t, err)
	assert.Equal(t, 1161, cfg.Port)
	assert.True(t, cfg.Enabled)
}
