package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beaconctl/internal/chain"
	"github.com/roach88/beaconctl/internal/governance"
)

const upgradeFlowYAML = `name: upgrade-flow
description: Initiate an upgrade, fail before the interval, succeed at it.
owner: owner
start: 2026-01-01T00:00:00Z
accounts:
  owner: "0x0000000000000000000000000000000000000001"
  controller: "0x00000000000000000000000000000000000000c1"
  beacon_a: "0x00000000000000000000000000000000000000b1"
  beacon_b: "0x00000000000000000000000000000000000000b2"
  emergency_a: "0x00000000000000000000000000000000000000e1"
  emergency_b: "0x00000000000000000000000000000000000000e2"
  impl_a: "0x00000000000000000000000000000000000000a1"
beacons:
  - beacon: beacon_a
    emergency: emergency_a
  - beacon: beacon_b
    emergency: emergency_b
deployed:
  - impl_a
steps:
  - op: initiate_upgrade
    caller: owner
    controller: controller
    beacon: beacon_a
    implementation: impl_a
  - op: upgrade
    caller: owner
    controller: controller
    beacon: beacon_a
    implementation: impl_a
    expect: NOT_READY
  - op: advance
    by: 168h
  - op: upgrade
    caller: owner
    controller: controller
    beacon: beacon_a
    implementation: impl_a
`

func TestRun_UpgradeFlow(t *testing.T) {
	s, err := Parse("upgrade-flow.yaml", []byte(upgradeFlowYAML))
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, res.Steps, 4)
	assert.Equal(t, "NOT_READY", res.Steps[1].Outcome)
	assert.Equal(t, "ok", res.Steps[3].Outcome)

	beacon, err := ResolveAddress(s, "beacon_a")
	require.NoError(t, err)
	impl, err := ResolveAddress(s, "impl_a")
	require.NoError(t, err)
	assert.Equal(t, impl, res.Network.BeaconImplementation(beacon))

	require.Len(t, res.Events, 2)
	assert.Equal(t, governance.EventTimelockInitiated, res.Events[0].Kind)
	assert.Equal(t, governance.EventUpgradeApplied, res.Events[1].Kind)
	assert.Equal(t, "evt-000001", res.Events[0].ID)
	assert.Equal(t, int64(2), res.Events[1].Seq)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	// Declaring success for a step that must fail aborts the run.
	doc := []byte(`name: mismatch
description: An upgrade with no prior initiation cannot succeed.
owner: owner
start: 2026-01-01T00:00:00Z
accounts:
  owner: "0x0000000000000000000000000000000000000001"
  controller: "0x00000000000000000000000000000000000000c1"
  beacon_a: "0x00000000000000000000000000000000000000b1"
  beacon_b: "0x00000000000000000000000000000000000000b2"
  emergency_a: "0x00000000000000000000000000000000000000e1"
  emergency_b: "0x00000000000000000000000000000000000000e2"
  impl_a: "0x00000000000000000000000000000000000000a1"
beacons:
  - beacon: beacon_a
    emergency: emergency_a
  - beacon: beacon_b
    emergency: emergency_b
deployed:
  - impl_a
steps:
  - op: upgrade
    caller: owner
    controller: controller
    beacon: beacon_a
    implementation: impl_a
`)
	s, err := Parse("mismatch.yaml", doc)
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected ok, got NOT_READY")
}

func TestRun_ContingencyCycleGolden(t *testing.T) {
	s, err := Load("testdata/contingency-cycle.yaml")
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.NoError(t, err)

	AssertGolden(t, res)
}

func TestResolveAddress(t *testing.T) {
	s := &Scenario{Accounts: map[string]string{
		"owner": "0x0000000000000000000000000000000000000001",
	}}

	addr, err := ResolveAddress(s, "owner")
	require.NoError(t, err)
	assert.Equal(t, chain.MustAddress("0x0000000000000000000000000000000000000001"), addr)

	addr, err = ResolveAddress(s, "0x00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	assert.Equal(t, chain.MustAddress("0x00000000000000000000000000000000000000ff"), addr)

	_, err = ResolveAddress(s, "nobody")
	assert.Error(t, err)
}
