package store

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beaconctl/internal/chain"
	"github.com/roach88/beaconctl/internal/governance"
	"github.com/roach88/beaconctl/internal/testutil"
)

// Drives the orchestrator over the SQLite store end to end: seed, upgrade
// cycle, journal persistence, and resume across a reopen.
func TestStore_OrchestratorLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "governance.db")

	owner := chain.MustAddress("0x0000000000000000000000000000000000000001")
	controller := testController
	beaconA := testBeacon
	beaconB := chain.MustAddress("0x00000000000000000000000000000000000000b2")
	emergencyA := chain.MustAddress("0x00000000000000000000000000000000000000e1")
	emergencyB := chain.MustAddress("0x00000000000000000000000000000000000000e2")

	net := chain.NewMemNetwork()
	net.RegisterBeacon(beaconA)
	net.RegisterBeacon(beaconB)
	var hashes [2]chain.Hash
	for i, addr := range []chain.Address{emergencyA, emergencyB} {
		code := []byte("code:" + addr.String())
		net.SetCode(addr, code)
		hashes[i] = sha256.Sum256(code)
	}
	implB := chain.MustAddress("0x00000000000000000000000000000000000000a2")
	net.SetCode(testImpl, []byte("code:impl"))
	net.SetCode(implB, []byte("code:implB"))
	beacons := [2]governance.BeaconConstant{
		{Beacon: beaconA, EmergencyImplementation: emergencyA, CodeHash: hashes[0]},
		{Beacon: beaconB, EmergencyImplementation: emergencyB, CodeHash: hashes[1]},
	}

	clock := testutil.NewManualClock(testEpoch)

	s, err := Open(path)
	require.NoError(t, err)

	orch, err := governance.New(ctx, governance.Config{
		Store:   s,
		Network: net,
		Owner:   owner,
		Beacons: beacons,
		Clock:   clock,
		Events:  s,
		IDs:     testutil.NewFixedIDGenerator("evt"),
	})
	require.NoError(t, err)

	require.NoError(t, orch.InitiateUpgrade(ctx, owner, controller, beaconA, testImpl, 0))
	clock.Advance(governance.DefaultUpgradeInterval)
	require.NoError(t, orch.Upgrade(ctx, owner, controller, beaconA, testImpl))
	assert.Equal(t, testImpl, net.BeaconImplementation(beaconA))

	require.NoError(t, orch.InitiateUpgrade(ctx, owner, controller, beaconA, implB, 0))
	clock.Advance(governance.DefaultUpgradeInterval)
	require.NoError(t, orch.Upgrade(ctx, owner, controller, beaconA, implB))
	assert.Equal(t, implB, net.BeaconImplementation(beaconA))

	events, err := s.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.NoError(t, s.Close())

	// Reopen: resume ownership and the journal sequence.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	lastSeq, err := s2.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), lastSeq)

	orch2, err := governance.New(ctx, governance.Config{
		Store:   s2,
		Network: net,
		Owner:   owner,
		Beacons: beacons,
		Clock:   clock,
		Events:  s2,
		IDs:     testutil.NewFixedIDGenerator("evt2"),
		Seq:     governance.NewSeqClockAt(lastSeq),
	})
	require.NoError(t, err)

	// The recorded prior implementation survives the restart.
	require.NoError(t, orch2.Rollback(ctx, owner, controller, beaconA))
	assert.Equal(t, testImpl, net.BeaconImplementation(beaconA),
		"rollback restored the pre-upgrade implementation")

	events, err = s2.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, int64(5), events[4].Seq, "the sequence resumed without gaps")
	assert.Equal(t, governance.EventUpgradeApplied, events[4].Kind)
}

// A mismatched configured owner must refuse to resume a seeded database.
func TestStore_ResumeOwnerMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "governance.db")

	owner := chain.MustAddress("0x0000000000000000000000000000000000000001")
	other := chain.MustAddress("0x0000000000000000000000000000000000000002")
	emergencyA := chain.MustAddress("0x00000000000000000000000000000000000000e1")
	emergencyB := chain.MustAddress("0x00000000000000000000000000000000000000e2")
	beaconB := chain.MustAddress("0x00000000000000000000000000000000000000b2")

	net := chain.NewMemNetwork()
	var hashes [2]chain.Hash
	for i, addr := range []chain.Address{emergencyA, emergencyB} {
		code := []byte("code:" + addr.String())
		net.SetCode(addr, code)
		hashes[i] = sha256.Sum256(code)
	}
	beacons := [2]governance.BeaconConstant{
		{Beacon: testBeacon, EmergencyImplementation: emergencyA, CodeHash: hashes[0]},
		{Beacon: beaconB, EmergencyImplementation: emergencyB, CodeHash: hashes[1]},
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = governance.New(ctx, governance.Config{Store: s, Network: net, Owner: owner, Beacons: beacons})
	require.NoError(t, err)

	_, err = governance.New(ctx, governance.Config{Store: s, Network: net, Owner: other, Beacons: beacons})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}
