package governance

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/beaconctl/internal/chain"
)

// TimelockRecord is one registered intent: created by initiate*, consulted by
// the matching execute entrypoint. Records are never explicitly deleted;
// expired records are inert and are naturally superseded by the next Set with
// the same argument tuple.
type TimelockRecord struct {
	Selector    Selector
	ArgsHash    string
	SubmittedAt time.Time
	Interval    time.Duration
	Expiration  time.Duration
}

// UnlocksAt returns the instant the record becomes actionable.
func (r TimelockRecord) UnlocksAt() time.Time {
	return r.SubmittedAt.Add(r.Interval)
}

// ExpiresAt returns the instant the record lapses.
// The record is actionable during [UnlocksAt, ExpiresAt).
func (r TimelockRecord) ExpiresAt() time.Time {
	return r.UnlocksAt().Add(r.Expiration)
}

// TimelockDefaults is the per-selector (minimum interval, default expiration)
// configuration.
type TimelockDefaults struct {
	Interval   time.Duration
	Expiration time.Duration
}

// ContingencyRecord is the per-(controller, beacon) emergency-upgrade state.
// Lifecycle: Disarmed -> Armed -> Activated -> Disarmed.
type ContingencyRecord struct {
	Armed          bool
	Activated      bool
	ActivationTime time.Time
}

// Exists reports whether the record holds any live state.
func (r ContingencyRecord) Exists() bool {
	return r.Armed || r.Activated
}

// HeartbeatState is the process-wide dead-man's-switch state.
type HeartbeatState struct {
	LastHeartbeat time.Time
	Heartbeater   chain.Address
}

// OwnershipState is the orchestrator's own two-phase ownership state.
type OwnershipState struct {
	Owner        chain.Address
	PendingOwner chain.Address
}

// StateStore is the injected persistence boundary for all governance state.
// There are no ambient singletons: the orchestrator owns one store and passes
// it explicitly into each component call.
//
// Lookups return a found flag (or a zero record where the zero value is
// meaningful) rather than an error for absence.
//
// Atomically runs fn against a view of the store such that either every write
// fn performed is applied, or none is. Implementations: MemoryState
// (snapshot/restore) and the SQLite store (transaction).
type StateStore interface {
	Timelock(ctx context.Context, sel Selector, argsHash string) (TimelockRecord, bool, error)
	PutTimelock(ctx context.Context, rec TimelockRecord) error

	TimelockDefaults(ctx context.Context, sel Selector) (TimelockDefaults, bool, error)
	PutTimelockDefaults(ctx context.Context, sel Selector, d TimelockDefaults) error

	Acceptance(ctx context.Context, controller, candidate chain.Address) (bool, error)
	PutAcceptance(ctx context.Context, controller, candidate chain.Address, willAccept bool) error

	// LastImplementation returns the null address when nothing is recorded.
	LastImplementation(ctx context.Context, controller, beacon chain.Address) (chain.Address, error)
	PutLastImplementation(ctx context.Context, controller, beacon, implementation chain.Address) error

	// Contingency returns the zero record when nothing is recorded.
	Contingency(ctx context.Context, controller, beacon chain.Address) (ContingencyRecord, error)
	PutContingency(ctx context.Context, controller, beacon chain.Address, rec ContingencyRecord) error
	DeleteContingency(ctx context.Context, controller, beacon chain.Address) error

	Heartbeat(ctx context.Context) (HeartbeatState, bool, error)
	PutHeartbeat(ctx context.Context, hb HeartbeatState) error

	Ownership(ctx context.Context) (OwnershipState, bool, error)
	PutOwnership(ctx context.Context, o OwnershipState) error

	Atomically(ctx context.Context, fn func(StateStore) error) error
}

type pairKey struct {
	controller chain.Address
	beacon     chain.Address
}

type timelockKey struct {
	selector Selector
	argsHash string
}

type acceptKey struct {
	controller chain.Address
	candidate  chain.Address
}

// MemoryState is the in-memory StateStore. It backs the scenario simulator
// and the governance tests; the SQLite store is the durable twin.
//
// Atomically snapshots the whole state up front and restores it when fn
// fails. State is small (a handful of per-pair maps), so the copy is cheap
// relative to the operations it protects.
//
// Thread-safety: individual methods are safe for concurrent use. Atomically
// assumes the serialized, atomic-per-call execution model: concurrent
// mutators during an atomic block would be restored away on failure.
type MemoryState struct {
	mu        sync.RWMutex
	timelocks map[timelockKey]TimelockRecord
	defaults  map[Selector]TimelockDefaults
	accepts   map[acceptKey]bool
	lastImpls map[pairKey]chain.Address
	conts     map[pairKey]ContingencyRecord
	heartbeat *HeartbeatState
	ownership *OwnershipState
}

// NewMemoryState creates an empty in-memory state store.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		timelocks: make(map[timelockKey]TimelockRecord),
		defaults:  make(map[Selector]TimelockDefaults),
		accepts:   make(map[acceptKey]bool),
		lastImpls: make(map[pairKey]chain.Address),
		conts:     make(map[pairKey]ContingencyRecord),
	}
}

// Timelock implements StateStore.
func (m *MemoryState) Timelock(_ context.Context, sel Selector, argsHash string) (TimelockRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.timelocks[timelockKey{sel, argsHash}]
	return rec, ok, nil
}

// PutTimelock implements StateStore.
func (m *MemoryState) PutTimelock(_ context.Context, rec TimelockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timelocks[timelockKey{rec.Selector, rec.ArgsHash}] = rec
	return nil
}

// TimelockDefaults implements StateStore.
func (m *MemoryState) TimelockDefaults(_ context.Context, sel Selector) (TimelockDefaults, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defaults[sel]
	return d, ok, nil
}

// PutTimelockDefaults implements StateStore.
func (m *MemoryState) PutTimelockDefaults(_ context.Context, sel Selector, d TimelockDefaults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[sel] = d
	return nil
}

// Acceptance implements StateStore.
func (m *MemoryState) Acceptance(_ context.Context, controller, candidate chain.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accepts[acceptKey{controller, candidate}], nil
}

// PutAcceptance implements StateStore.
func (m *MemoryState) PutAcceptance(_ context.Context, controller, candidate chain.Address, willAccept bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepts[acceptKey{controller, candidate}] = willAccept
	return nil
}

// LastImplementation implements StateStore.
func (m *MemoryState) LastImplementation(_ context.Context, controller, beacon chain.Address) (chain.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastImpls[pairKey{controller, beacon}], nil
}

// PutLastImplementation implements StateStore.
func (m *MemoryState) PutLastImplementation(_ context.Context, controller, beacon, implementation chain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastImpls[pairKey{controller, beacon}] = implementation
	return nil
}

// Contingency implements StateStore.
func (m *MemoryState) Contingency(_ context.Context, controller, beacon chain.Address) (ContingencyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conts[pairKey{controller, beacon}], nil
}

// PutContingency implements StateStore.
func (m *MemoryState) PutContingency(_ context.Context, controller, beacon chain.Address, rec ContingencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conts[pairKey{controller, beacon}] = rec
	return nil
}

// DeleteContingency implements StateStore.
func (m *MemoryState) DeleteContingency(_ context.Context, controller, beacon chain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conts, pairKey{controller, beacon})
	return nil
}

// Heartbeat implements StateStore.
func (m *MemoryState) Heartbeat(_ context.Context) (HeartbeatState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.heartbeat == nil {
		return HeartbeatState{}, false, nil
	}
	return *m.heartbeat, true, nil
}

// PutHeartbeat implements StateStore.
func (m *MemoryState) PutHeartbeat(_ context.Context, hb HeartbeatState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeat = &hb
	return nil
}

// Ownership implements StateStore.
func (m *MemoryState) Ownership(_ context.Context) (OwnershipState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ownership == nil {
		return OwnershipState{}, false, nil
	}
	return *m.ownership, true, nil
}

// PutOwnership implements StateStore.
func (m *MemoryState) PutOwnership(_ context.Context, o OwnershipState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownership = &o
	return nil
}

// Atomically implements StateStore via snapshot/restore.
func (m *MemoryState) Atomically(_ context.Context, fn func(StateStore) error) error {
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	timelocks map[timelockKey]TimelockRecord
	defaults  map[Selector]TimelockDefaults
	accepts   map[acceptKey]bool
	lastImpls map[pairKey]chain.Address
	conts     map[pairKey]ContingencyRecord
	heartbeat *HeartbeatState
	ownership *OwnershipState
}

func (m *MemoryState) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := memorySnapshot{
		timelocks: make(map[timelockKey]TimelockRecord, len(m.timelocks)),
		defaults:  make(map[Selector]TimelockDefaults, len(m.defaults)),
		accepts:   make(map[acceptKey]bool, len(m.accepts)),
		lastImpls: make(map[pairKey]chain.Address, len(m.lastImpls)),
		conts:     make(map[pairKey]ContingencyRecord, len(m.conts)),
	}
	for k, v := range m.timelocks {
		snap.timelocks[k] = v
	}
	for k, v := range m.defaults {
		snap.defaults[k] = v
	}
	for k, v := range m.accepts {
		snap.accepts[k] = v
	}
	for k, v := range m.lastImpls {
		snap.lastImpls[k] = v
	}
	for k, v := range m.conts {
		snap.conts[k] = v
	}
	if m.heartbeat != nil {
		hb := *m.heartbeat
		snap.heartbeat = &hb
	}
	if m.ownership != nil {
		o := *m.ownership
		snap.ownership = &o
	}
	return snap
}

func (m *MemoryState) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timelocks = snap.timelocks
	m.defaults = snap.defaults
	m.accepts = snap.accepts
	m.lastImpls = snap.lastImpls
	m.conts = snap.conts
	m.heartbeat = snap.heartbeat
	m.ownership = snap.ownership
}
