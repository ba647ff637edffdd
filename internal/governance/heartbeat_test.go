package governance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beaconctl/internal/chain"
	"github.com/roach88/beaconctl/internal/testutil"
)

func newMonitorFixture(t *testing.T, heartbeater chain.Address) (Monitor, *MemoryState, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock(testEpoch)
	st := NewMemoryState()
	require.NoError(t, st.PutHeartbeat(context.Background(), HeartbeatState{
		LastHeartbeat: testEpoch,
		Heartbeater:   heartbeater,
	}))
	return NewMonitor(clock), st, clock
}

func TestMonitor_Beat_HeartbeaterOnly(t *testing.T) {
	hb := chain.MustAddress("0x0000000000000000000000000000000000000011")
	other := chain.MustAddress("0x0000000000000000000000000000000000000022")
	monitor, st, clock := newMonitorFixture(t, hb)
	ctx := context.Background()

	err := monitor.Beat(ctx, st, other)
	assert.True(t, IsCode(err, CodeUnauthorized))

	clock.Advance(time.Hour)
	require.NoError(t, monitor.Beat(ctx, st, hb))

	state, ok, err := st.Heartbeat(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testEpoch.Add(time.Hour), state.LastHeartbeat)
}

func TestMonitor_Status_ExpiryBoundary(t *testing.T) {
	hb := chain.MustAddress("0x0000000000000000000000000000000000000011")
	monitor, st, clock := newMonitorFixture(t, hb)
	ctx := context.Background()

	// Exactly at last_heartbeat + 90 days: not yet expired (strictly after).
	clock.Set(testEpoch.Add(HeartbeatExpiration))
	status, err := monitor.Status(ctx, st)
	require.NoError(t, err)
	assert.False(t, status.Expired)
	assert.Equal(t, testEpoch.Add(HeartbeatExpiration), status.ExpiresAt)

	clock.Advance(time.Nanosecond)
	status, err = monitor.Status(ctx, st)
	require.NoError(t, err)
	assert.True(t, status.Expired)
}

func TestMonitor_Beat_RestartsExpiry(t *testing.T) {
	hb := chain.MustAddress("0x0000000000000000000000000000000000000011")
	monitor, st, clock := newMonitorFixture(t, hb)
	ctx := context.Background()

	clock.Advance(89 * 24 * time.Hour)
	require.NoError(t, monitor.Beat(ctx, st, hb))

	clock.Advance(89 * 24 * time.Hour)
	expired, err := monitor.Expired(ctx, st)
	require.NoError(t, err)
	assert.False(t, expired, "the beat restarted the 90-day window")
}

func TestMonitor_SetHeartbeater(t *testing.T) {
	hb := chain.MustAddress("0x0000000000000000000000000000000000000011")
	next := chain.MustAddress("0x0000000000000000000000000000000000000022")
	monitor, st, _ := newMonitorFixture(t, hb)
	ctx := context.Background()

	err := monitor.SetHeartbeater(ctx, st, chain.NullAddress)
	assert.True(t, IsCode(err, CodeInvalidArgument))

	require.NoError(t, monitor.SetHeartbeater(ctx, st, next))
	err = monitor.Beat(ctx, st, hb)
	assert.True(t, IsCode(err, CodeUnauthorized), "the old heartbeater lost the role")
	assert.NoError(t, monitor.Beat(ctx, st, next))
}

func TestMonitor_SetHeartbeater_PreservesLastHeartbeat(t *testing.T) {
	hb := chain.MustAddress("0x0000000000000000000000000000000000000011")
	next := chain.MustAddress("0x0000000000000000000000000000000000000022")
	monitor, st, clock := newMonitorFixture(t, hb)
	ctx := context.Background()

	clock.Advance(30 * 24 * time.Hour)
	require.NoError(t, monitor.SetHeartbeater(ctx, st, next))

	state, _, err := st.Heartbeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, testEpoch, state.LastHeartbeat, "changing the heartbeater is not a beat")
}
