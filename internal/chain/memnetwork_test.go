package chain

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctrlAddr   = MustAddress("0x00000000000000000000000000000000000000c1")
	beaconAddr = MustAddress("0x00000000000000000000000000000000000000b1")
	implAddr   = MustAddress("0x00000000000000000000000000000000000000a1")
)

func TestMemNetwork_CodeSizeAndHash(t *testing.T) {
	net := NewMemNetwork()
	ctx := context.Background()

	size, err := net.CodeSize(ctx, implAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, size, "an empty account has no code")

	_, err = net.CodeHash(ctx, implAddr)
	assert.Error(t, err, "hashing an empty account fails")

	code := []byte("some deployed code")
	net.SetCode(implAddr, code)

	size, err = net.CodeSize(ctx, implAddr)
	require.NoError(t, err)
	assert.Equal(t, len(code), size)

	hash, err := net.CodeHash(ctx, implAddr)
	require.NoError(t, err)
	assert.Equal(t, Hash(sha256.Sum256(code)), hash)
}

func TestMemNetwork_BeaconRead(t *testing.T) {
	net := NewMemNetwork()
	ctx := context.Background()

	// Unregistered beacon: the read fails.
	_, err := net.Beacon(beaconAddr).Read(ctx)
	assert.Error(t, err)

	net.RegisterBeacon(beaconAddr)
	impl, err := net.Beacon(beaconAddr).Read(ctx)
	require.NoError(t, err)
	assert.True(t, impl.IsNull(), "a fresh beacon holds the null implementation")
}

func TestMemNetwork_ControllerUpgrade(t *testing.T) {
	net := NewMemNetwork()
	ctx := context.Background()
	net.RegisterBeacon(beaconAddr)

	require.NoError(t, net.Controller(ctrlAddr).Upgrade(ctx, beaconAddr, implAddr))

	impl, err := net.Beacon(beaconAddr).Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, implAddr, impl)
	assert.Equal(t, implAddr, net.BeaconImplementation(beaconAddr))

	calls := net.UpgradeCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, UpgradeCall{Controller: ctrlAddr, Beacon: beaconAddr, Implementation: implAddr}, calls[0])
}

func TestMemNetwork_BreakBeacon(t *testing.T) {
	net := NewMemNetwork()
	ctx := context.Background()
	net.RegisterBeacon(beaconAddr)
	boom := errors.New("revert")

	net.BreakBeacon(beaconAddr, boom)
	_, err := net.Beacon(beaconAddr).Read(ctx)
	assert.ErrorIs(t, err, boom)

	net.BreakBeacon(beaconAddr, nil)
	_, err = net.Beacon(beaconAddr).Read(ctx)
	assert.NoError(t, err, "repaired")
}

func TestMemNetwork_BreakController(t *testing.T) {
	net := NewMemNetwork()
	ctx := context.Background()
	boom := errors.New("revert")

	net.BreakController(ctrlAddr, boom)
	err := net.Controller(ctrlAddr).Upgrade(ctx, beaconAddr, implAddr)
	assert.ErrorIs(t, err, boom)
	err = net.Controller(ctrlAddr).TransferOwnership(ctx, implAddr)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, net.UpgradeCalls(), "failed calls are not recorded")

	net.BreakController(ctrlAddr, nil)
	require.NoError(t, net.Controller(ctrlAddr).TransferOwnership(ctx, implAddr))
	assert.Equal(t, implAddr, net.ControllerPendingOwner(ctrlAddr))
}
