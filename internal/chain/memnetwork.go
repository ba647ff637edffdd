package chain

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
)

// ErrMalformedWord is returned by a beacon read that produced something other
// than one address-sized word.
var ErrMalformedWord = errors.New("beacon returned malformed implementation word")

// MemNetwork is an in-memory Network used by tests and the scenario
// simulator. It models accounts with deployed code, simple single-slot
// beacons, and controllers that write those slots.
//
// Failure injection: BreakBeacon makes a beacon's Read fail with a chosen
// error; BreakController makes a controller's calls fail. Both model the
// misbehaving-collaborator cases the governance core must either tolerate
// (beacon read) or abort on (controller calls).
//
// Thread-safety: all methods are safe for concurrent use.
type MemNetwork struct {
	mu sync.RWMutex

	code              map[Address][]byte
	beacons           map[Address]Address // beacon -> implementation slot
	brokenBeacons     map[Address]error
	brokenControllers map[Address]error
	controllerOwners  map[Address]Address // controller -> pending new owner
	upgradeCalls      []UpgradeCall
}

// UpgradeCall records one Controller.Upgrade invocation for inspection.
type UpgradeCall struct {
	Controller     Address
	Beacon         Address
	Implementation Address
}

// NewMemNetwork creates an empty in-memory network.
func NewMemNetwork() *MemNetwork {
	return &MemNetwork{
		code:              make(map[Address][]byte),
		beacons:           make(map[Address]Address),
		brokenBeacons:     make(map[Address]error),
		brokenControllers: make(map[Address]error),
		controllerOwners:  make(map[Address]Address),
	}
}

// SetCode installs deployed code at an address.
func (n *MemNetwork) SetCode(addr Address, code []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.code[addr] = code
}

// RegisterBeacon creates a beacon with a null implementation slot.
// Reads against an unregistered beacon fail, which exercises the tolerant
// read path in the governance core.
func (n *MemNetwork) RegisterBeacon(addr Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.beacons[addr]; !ok {
		n.beacons[addr] = NullAddress
	}
}

// BreakBeacon makes the beacon's Read fail with err until repaired by a
// subsequent RegisterBeacon-free write or a BreakBeacon(addr, nil).
func (n *MemNetwork) BreakBeacon(addr Address, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.brokenBeacons, addr)
		return
	}
	n.brokenBeacons[addr] = err
}

// BreakController makes the controller's calls fail with err.
func (n *MemNetwork) BreakController(addr Address, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.brokenControllers, addr)
		return
	}
	n.brokenControllers[addr] = err
}

// BeaconImplementation returns the beacon's current implementation slot.
func (n *MemNetwork) BeaconImplementation(addr Address) Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.beacons[addr]
}

// ControllerPendingOwner returns the new owner recorded by the most recent
// TransferOwnership call against the controller, or the null address.
func (n *MemNetwork) ControllerPendingOwner(addr Address) Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.controllerOwners[addr]
}

// UpgradeCalls returns a copy of all recorded Controller.Upgrade calls in
// invocation order.
func (n *MemNetwork) UpgradeCalls() []UpgradeCall {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]UpgradeCall, len(n.upgradeCalls))
	copy(out, n.upgradeCalls)
	return out
}

// Controller implements Network.
func (n *MemNetwork) Controller(addr Address) Controller {
	return memController{net: n, addr: addr}
}

// Beacon implements Network.
func (n *MemNetwork) Beacon(addr Address) Beacon {
	return memBeacon{net: n, addr: addr}
}

// CodeSize implements Network.
func (n *MemNetwork) CodeSize(_ context.Context, addr Address) (int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.code[addr]), nil
}

// CodeHash implements Network.
// Hashing an address with no deployed code is an error, matching the
// distinction between "empty account" and "contract with empty-ish code".
func (n *MemNetwork) CodeHash(_ context.Context, addr Address) (Hash, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	code, ok := n.code[addr]
	if !ok || len(code) == 0 {
		return Hash{}, fmt.Errorf("no code at %s", addr)
	}
	return sha256.Sum256(code), nil
}

type memController struct {
	net  *MemNetwork
	addr Address
}

func (c memController) Upgrade(_ context.Context, beacon, implementation Address) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	if err := c.net.brokenControllers[c.addr]; err != nil {
		return fmt.Errorf("controller %s: %w", c.addr, err)
	}
	c.net.beacons[beacon] = implementation
	c.net.upgradeCalls = append(c.net.upgradeCalls, UpgradeCall{
		Controller:     c.addr,
		Beacon:         beacon,
		Implementation: implementation,
	})
	return nil
}

func (c memController) TransferOwnership(_ context.Context, newOwner Address) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	if err := c.net.brokenControllers[c.addr]; err != nil {
		return fmt.Errorf("controller %s: %w", c.addr, err)
	}
	c.net.controllerOwners[c.addr] = newOwner
	return nil
}

type memBeacon struct {
	net  *MemNetwork
	addr Address
}

func (b memBeacon) Read(_ context.Context) (Address, error) {
	b.net.mu.RLock()
	defer b.net.mu.RUnlock()
	if err := b.net.brokenBeacons[b.addr]; err != nil {
		return NullAddress, err
	}
	impl, ok := b.net.beacons[b.addr]
	if !ok {
		return NullAddress, fmt.Errorf("no beacon at %s", b.addr)
	}
	return impl, nil
}
