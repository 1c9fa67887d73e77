package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_health/internal/snmptest"
	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/app"
	"github.com/vpbank/snmp_health/pkg/snmphealth/config"
	"github.com/vpbank/snmp_health/pkg/snmphealth/probe"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.Database.Path = filepath.Join(t.TempDir(), "app.db")
	s.HTTP.Listen = "127.0.0.1:0"
	s.Scheduler.Enabled = false
	s.Dispatch.MaxConcurrency = 4
	return s
}

func ptr[T any](v T) *T { return &v }

func agentDevice(a *snmptest.Agent) models.ConfigPatch {
	return models.ConfigPatch{
		Enabled:        ptr(true),
		Address:        ptr(a.Addr()),
		Port:           ptr(a.Port()),
		TimeoutSeconds: ptr(1),
		Retries:        ptr(0),
	}
}

func TestApp_ImportAndCheckAll(t *testing.T) {
	up := snmptest.Start(t)
	up.SetString(probe.OIDSysDescr, "edge router")
	silent := snmptest.Start(t)
	silent.SetSilent(true)

	a := app.New(testSettings(t), nil)
	t.Cleanup(a.Close)

	saved, err := a.Import(context.Background(), config.Devices{
		1: agentDevice(up),
		2: agentDevice(silent),
		3: {Enabled: ptr(false), Address: ptr("192.0.2.3")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	rep, err := a.Service().CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Checked 2 devices: 1 up, 1 down, 0 errors", rep.Message)

	one, err := a.Store().GetConfig(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUp, one.Status)
	require.NotNil(t, one.ResponseTimeMillis)

	two, err := a.Store().GetConfig(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDown, two.Status)

	three, err := a.Store().GetConfig(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, three.Status)
}

func TestApp_ImportReportsInvalidDevices(t *testing.T) {
	a := app.New(testSettings(t), nil)
	t.Cleanup(a.Close)

	saved, err := a.Import(context.Background(), config.Devices{
		1: {Address: ptr("192.0.2.1")},
		2: {Port: ptr(0), Version: ptr(models.Version("9"))},
	})
	assert.Equal(t, 1, saved)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "device 2")
}

func TestApp_SchedulerPersistsCycles(t *testing.T) {
	agent := snmptest.Start(t)
	agent.SetString(probe.OIDSysDescr, "core switch")

	s := testSettings(t)
	s.Scheduler.Enabled = true
	s.Scheduler.IntervalSeconds = 1
	a := app.New(s, nil)

	_, err := a.Import(context.Background(), config.Devices{7: agentDevice(agent)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	assert.Eventually(t, func() bool {
		cfg, err := a.Store().GetConfig(context.Background(), 7)
		return err == nil && cfg.Status == models.StatusUp && cfg.LastCheck != nil
	}, 5*time.Second, 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.NoError(t, a.Err())
}

func TestApp_OpenFailsOnBadDatabasePath(t *testing.T) {
	s := testSettings(t)
	s.Database.Path = filepath.Join(t.TempDir(), "missing", "dir", "app.db")
	a := app.New(s, nil)
	assert.Error(t, a.Open())
}
