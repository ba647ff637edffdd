package governance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/beaconctl/internal/chain"
)

// BeaconConstant binds one recognized beacon to its hard-coded emergency
// implementation. The implementation's deployed code must match CodeHash at
// construction time.
type BeaconConstant struct {
	Beacon                  chain.Address
	EmergencyImplementation chain.Address
	CodeHash                chain.Hash
}

// Config assembles an Orchestrator. Store, Network, and Owner are required;
// the rest default to production implementations.
type Config struct {
	Store   StateStore
	Network chain.Network
	Owner   chain.Address

	// Beacons are the exactly-two recognized governed beacons.
	Beacons [2]BeaconConstant

	Clock  WallClock   // defaults to SystemClock
	Events EventSink   // defaults to a no-op sink
	IDs    IDGenerator // defaults to UUIDv7Generator
	Seq    *SeqClock   // defaults to a fresh clock; pass NewSeqClockAt to resume a journal
}

// Orchestrator is the top-level governance component. It exposes the whole
// public operation surface, composes the Ledger, Monitor, Tracker, and Gate
// over one injected store, and performs the cross-contract upgrade call.
type Orchestrator struct {
	store   StateStore
	net     chain.Network
	clock   WallClock
	events  EventSink
	ids     IDGenerator
	seq     *SeqClock
	beacons [2]BeaconConstant

	ledger  Ledger
	monitor Monitor
	tracker Tracker
	gate    Gate
}

// New constructs an Orchestrator and seeds the store on first use.
//
// Construction fails outright when either emergency implementation's
// deployed code does not hash to the expected constant. A store that already
// holds ownership state is resumed rather than reseeded; the configured
// owner must then match the stored one.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("governance: config requires a store")
	}
	if cfg.Network == nil {
		return nil, fmt.Errorf("governance: config requires a network")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Events == nil {
		cfg.Events = nopSink{}
	}
	if cfg.IDs == nil {
		cfg.IDs = UUIDv7Generator{}
	}
	if cfg.Seq == nil {
		cfg.Seq = NewSeqClock()
	}

	if cfg.Beacons[0].Beacon == cfg.Beacons[1].Beacon {
		return nil, fmt.Errorf("governance: recognized beacons must be distinct")
	}
	for _, bc := range cfg.Beacons {
		if bc.Beacon.IsNull() || bc.EmergencyImplementation.IsNull() {
			return nil, fmt.Errorf("governance: beacon constants must not contain null addresses")
		}
		got, err := cfg.Network.CodeHash(ctx, bc.EmergencyImplementation)
		if err != nil {
			return nil, fmt.Errorf("governance: inspect emergency implementation %s: %w", bc.EmergencyImplementation, err)
		}
		if got != bc.CodeHash {
			return nil, fmt.Errorf("governance: emergency implementation %s code hash mismatch: got %s, want %s",
				bc.EmergencyImplementation, got, bc.CodeHash)
		}
	}

	o := &Orchestrator{
		store:   cfg.Store,
		net:     cfg.Network,
		clock:   cfg.Clock,
		events:  cfg.Events,
		ids:     cfg.IDs,
		seq:     cfg.Seq,
		beacons: cfg.Beacons,
		ledger:  NewLedger(cfg.Clock),
		monitor: NewMonitor(cfg.Clock),
		tracker: NewTracker(cfg.Clock),
	}

	existing, ok, err := cfg.Store.Ownership(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		if !cfg.Owner.IsNull() && cfg.Owner != existing.Owner {
			return nil, fmt.Errorf("governance: store already initialized with owner %s", existing.Owner)
		}
		return o, nil
	}

	if cfg.Owner.IsNull() {
		return nil, fmt.Errorf("governance: config requires a non-null owner")
	}
	err = cfg.Store.Atomically(ctx, func(st StateStore) error {
		if err := st.PutOwnership(ctx, OwnershipState{Owner: cfg.Owner}); err != nil {
			return err
		}
		// The initial owner doubles as the initial heartbeater.
		if err := st.PutHeartbeat(ctx, HeartbeatState{
			LastHeartbeat: cfg.Clock.Now(),
			Heartbeater:   cfg.Owner,
		}); err != nil {
			return err
		}
		seeds := map[Selector]TimelockDefaults{
			SelectorUpgrade:                     {Interval: DefaultUpgradeInterval, Expiration: DefaultExpiration},
			SelectorTransferControllerOwnership: {Interval: DefaultGovernanceInterval, Expiration: DefaultExpiration},
			SelectorModifyTimelockInterval:      {Interval: DefaultGovernanceInterval, Expiration: DefaultExpiration},
			SelectorModifyTimelockExpiration:    {Interval: DefaultGovernanceInterval, Expiration: DefaultExpiration},
		}
		for sel, d := range seeds {
			if err := st.PutTimelockDefaults(ctx, sel, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("governance: seed store: %w", err)
	}
	return o, nil
}

// Owner returns the orchestrator's current owner.
func (o *Orchestrator) Owner(ctx context.Context) (chain.Address, error) {
	return o.gate.Owner(ctx, o.store)
}

// TransferOwnership nominates a new owner of the orchestrator (phase one of
// the two-phase handoff).
func (o *Orchestrator) TransferOwnership(ctx context.Context, caller, newOwner chain.Address) error {
	return o.gate.Transfer(ctx, o.store, caller, newOwner)
}

// AcceptOwnership completes a pending ownership handoff (phase two).
func (o *Orchestrator) AcceptOwnership(ctx context.Context, caller chain.Address) error {
	return o.gate.Accept(ctx, o.store, caller)
}

// InitiateUpgrade registers intent to point beacon at implementation through
// controller. Owner-only. The implementation must have deployed code; a
// non-zero address alone is not enough.
func (o *Orchestrator) InitiateUpgrade(ctx context.Context, caller, controller, beacon, implementation chain.Address, extra time.Duration) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"beacon", beacon}); err != nil {
		return err
	}
	if err := o.requireDeployed(ctx, implementation); err != nil {
		return err
	}
	hash, err := upgradeArgsHash(controller, beacon, implementation)
	if err != nil {
		return err
	}
	return o.initiate(ctx, SelectorUpgrade, hash, extra)
}

// Upgrade executes a previously initiated upgrade once its timelock is
// actionable. Owner-only. Resets the heartbeat, then performs the core
// upgrade primitive.
func (o *Orchestrator) Upgrade(ctx context.Context, caller, controller, beacon, implementation chain.Address) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"beacon", beacon}); err != nil {
		return err
	}
	hash, err := upgradeArgsHash(controller, beacon, implementation)
	if err != nil {
		return err
	}
	if err := o.ledger.Enforce(ctx, o.store, SelectorUpgrade, hash); err != nil {
		return err
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		if err := o.monitor.Reset(ctx, st); err != nil {
			return err
		}
		return o.performUpgrade(ctx, st, controller, beacon, implementation)
	})
}

// AgreeToAcceptOwnership records whether caller is willing to become the
// owner of controller. Unrestricted: only the prospective owner itself can
// set its own flag, which is the point.
func (o *Orchestrator) AgreeToAcceptOwnership(ctx context.Context, caller, controller chain.Address, willAccept bool) error {
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"caller", caller}); err != nil {
		return err
	}
	return o.store.PutAcceptance(ctx, controller, caller, willAccept)
}

// InitiateTransferControllerOwnership registers intent to hand controller to
// newOwner. Owner-only; newOwner must already have agreed to accept.
func (o *Orchestrator) InitiateTransferControllerOwnership(ctx context.Context, caller, controller, newOwner chain.Address, extra time.Duration) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"new owner", newOwner}); err != nil {
		return err
	}
	if err := o.requireAcceptance(ctx, controller, newOwner); err != nil {
		return err
	}
	hash, err := transferArgsHash(controller, newOwner)
	if err != nil {
		return err
	}
	return o.initiate(ctx, SelectorTransferControllerOwnership, hash, extra)
}

// TransferControllerOwnership executes a matured controller handoff by
// calling the controller's own two-step transfer entrypoint. The acceptance
// flag is re-checked at execute time; the prospective owner may have since
// withdrawn.
func (o *Orchestrator) TransferControllerOwnership(ctx context.Context, caller, controller, newOwner chain.Address) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"new owner", newOwner}); err != nil {
		return err
	}
	if err := o.requireAcceptance(ctx, controller, newOwner); err != nil {
		return err
	}
	hash, err := transferArgsHash(controller, newOwner)
	if err != nil {
		return err
	}
	if err := o.ledger.Enforce(ctx, o.store, SelectorTransferControllerOwnership, hash); err != nil {
		return err
	}
	if err := o.net.Controller(controller).TransferOwnership(ctx, newOwner); err != nil {
		return fmt.Errorf("transfer controller ownership: %w", err)
	}
	slog.Info("controller ownership transfer executed",
		"controller", controller.String(),
		"new_owner", newOwner.String(),
	)
	return nil
}

// InitiateModifyTimelockInterval registers intent to change the configured
// interval for target. Owner-only; bounds are checked here for fail-fast
// rejection and again at execute time.
func (o *Orchestrator) InitiateModifyTimelockInterval(ctx context.Context, caller chain.Address, target Selector, interval time.Duration, extra time.Duration) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if target == "" {
		return newError(CodeInvalidArgument, "empty selector")
	}
	if err := o.ledger.CheckInterval(target, interval); err != nil {
		return err
	}
	hash, err := intervalArgsHash(target, interval)
	if err != nil {
		return err
	}
	return o.initiate(ctx, SelectorModifyTimelockInterval, hash, extra)
}

// ModifyTimelockInterval executes a matured interval change.
func (o *Orchestrator) ModifyTimelockInterval(ctx context.Context, caller chain.Address, target Selector, interval time.Duration) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	hash, err := intervalArgsHash(target, interval)
	if err != nil {
		return err
	}
	if err := o.ledger.Enforce(ctx, o.store, SelectorModifyTimelockInterval, hash); err != nil {
		return err
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		return o.ledger.SetDefaultInterval(ctx, st, target, interval)
	})
}

// InitiateModifyTimelockExpiration registers intent to change the configured
// expiration for target.
func (o *Orchestrator) InitiateModifyTimelockExpiration(ctx context.Context, caller chain.Address, target Selector, expiration time.Duration, extra time.Duration) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if target == "" {
		return newError(CodeInvalidArgument, "empty selector")
	}
	if err := o.ledger.CheckExpiration(target, expiration); err != nil {
		return err
	}
	hash, err := expirationArgsHash(target, expiration)
	if err != nil {
		return err
	}
	return o.initiate(ctx, SelectorModifyTimelockExpiration, hash, extra)
}

// ModifyTimelockExpiration executes a matured expiration change.
func (o *Orchestrator) ModifyTimelockExpiration(ctx context.Context, caller chain.Address, target Selector, expiration time.Duration) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	hash, err := expirationArgsHash(target, expiration)
	if err != nil {
		return err
	}
	if err := o.ledger.Enforce(ctx, o.store, SelectorModifyTimelockExpiration, hash); err != nil {
		return err
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		return o.ledger.SetDefaultExpiration(ctx, st, target, expiration)
	})
}

// Rollback restores the implementation recorded before the most recent
// upgrade of (controller, beacon). Owner-only, not timelocked: rollback is
// the immediate-undo escape hatch. Clears any live contingency record
// regardless of the cooldown, resets the heartbeat, and records the current
// implementation as the new "last", so rollback-of-rollback redoes.
func (o *Orchestrator) Rollback(ctx context.Context, caller, controller, beacon chain.Address) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"beacon", beacon}); err != nil {
		return err
	}
	last, err := o.store.LastImplementation(ctx, controller, beacon)
	if err != nil {
		return err
	}
	if last.IsNull() {
		return newError(CodeNoPriorImplementation, "no prior implementation recorded for rollback")
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		wasActivated, err := o.tracker.Clear(ctx, st, controller, beacon)
		if err != nil {
			return err
		}
		if err := o.monitor.Reset(ctx, st); err != nil {
			return err
		}
		if err := o.performUpgrade(ctx, st, controller, beacon, last); err != nil {
			return err
		}
		if wasActivated {
			return o.emit(ctx, st, EventContingencyExited, map[string]any{
				"controller": controller.String(),
				"beacon":     beacon.String(),
				"reason":     "rollback",
			})
		}
		return nil
	})
}

// Heartbeat resets the dead-man's-switch. Heartbeater-only.
func (o *Orchestrator) Heartbeat(ctx context.Context, caller chain.Address) error {
	return o.monitor.Beat(ctx, o.store, caller)
}

// NewHeartbeater designates a new heartbeater. Owner-only.
func (o *Orchestrator) NewHeartbeater(ctx context.Context, caller, heartbeater chain.Address) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	return o.monitor.SetHeartbeater(ctx, o.store, heartbeater)
}

// HeartbeatStatus returns the dead-man's-switch status. Read-only,
// unrestricted.
func (o *Orchestrator) HeartbeatStatus(ctx context.Context) (HeartbeatStatus, error) {
	return o.monitor.Status(ctx, o.store)
}

// ArmAdharmaContingency sets or clears the armed flag for the pair.
// Callable by the owner, or by anyone once the heartbeat has expired.
func (o *Orchestrator) ArmAdharmaContingency(ctx context.Context, caller, controller, beacon chain.Address, armed bool) error {
	if err := o.requireOwnerOrExpired(ctx, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"beacon", beacon}); err != nil {
		return err
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		return o.tracker.Arm(ctx, st, controller, beacon, armed)
	})
}

// ActivateAdharmaContingency triggers the emergency upgrade: the beacon is
// pointed at its hard-coded emergency implementation. Callable by the owner,
// or by anyone once the heartbeat has expired; requires an armed,
// not-yet-activated record and one of the two recognized beacons.
func (o *Orchestrator) ActivateAdharmaContingency(ctx context.Context, caller, controller, beacon chain.Address) error {
	if err := o.requireOwnerOrExpired(ctx, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"beacon", beacon}); err != nil {
		return err
	}
	emergency, ok := o.emergencyFor(beacon)
	if !ok {
		return errorf(CodeUnsupportedBeacon, "beacon %s is not a recognized governed beacon", beacon)
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		rec, err := o.tracker.Activate(ctx, st, controller, beacon)
		if err != nil {
			return err
		}
		if err := o.performUpgrade(ctx, st, controller, beacon, emergency); err != nil {
			return err
		}
		slog.Info("adharma contingency activated",
			"controller", controller.String(),
			"beacon", beacon.String(),
		)
		return o.emit(ctx, st, EventContingencyActivated, map[string]any{
			"controller":      controller.String(),
			"beacon":          beacon.String(),
			"activation_time": rec.ActivationTime.UnixNano(),
		})
	})
}

// ExitAdharmaContingency leaves an activated contingency deliberately, after
// the 48-hour cooldown, by upgrading to a fresh implementation. Owner-only.
func (o *Orchestrator) ExitAdharmaContingency(ctx context.Context, caller, controller, beacon, newImplementation chain.Address) error {
	if err := o.gate.Require(ctx, o.store, caller); err != nil {
		return err
	}
	if err := requireNonNull(namedAddress{"controller", controller}, namedAddress{"beacon", beacon}); err != nil {
		return err
	}
	return o.store.Atomically(ctx, func(st StateStore) error {
		if err := o.tracker.Exit(ctx, st, controller, beacon); err != nil {
			return err
		}
		if err := o.performUpgrade(ctx, st, controller, beacon, newImplementation); err != nil {
			return err
		}
		return o.emit(ctx, st, EventContingencyExited, map[string]any{
			"controller": controller.String(),
			"beacon":     beacon.String(),
			"reason":     "new-implementation",
		})
	})
}

// performUpgrade is the core upgrade primitive shared by every upgrade path.
// It validates the implementation, records the beacon's current
// implementation as the new "last" for the pair, and invokes the
// controller's upgrade entrypoint. The controller call is the single
// external state-mutating edge of the whole subsystem.
//
// The beacon read is deliberately tolerant: a failed or malformed read is
// recorded as the null implementation instead of aborting, so an upgrade can
// initialize a beacon that has never held an implementation. No other call
// site swallows errors this way.
func (o *Orchestrator) performUpgrade(ctx context.Context, st StateStore, controller, beacon, implementation chain.Address) error {
	if err := o.requireDeployed(ctx, implementation); err != nil {
		return err
	}
	prior := chain.NullAddress
	if read, err := o.net.Beacon(beacon).Read(ctx); err != nil {
		slog.Debug("beacon read failed, recording null prior implementation",
			"beacon", beacon.String(),
			"error", err,
		)
	} else {
		prior = read
	}
	if err := st.PutLastImplementation(ctx, controller, beacon, prior); err != nil {
		return err
	}
	if err := o.net.Controller(controller).Upgrade(ctx, beacon, implementation); err != nil {
		return fmt.Errorf("controller upgrade call: %w", err)
	}
	slog.Info("implementation upgraded",
		"controller", controller.String(),
		"beacon", beacon.String(),
		"from", prior.String(),
		"to", implementation.String(),
	)
	return o.emit(ctx, st, EventUpgradeApplied, map[string]any{
		"controller": controller.String(),
		"beacon":     beacon.String(),
		"from":       prior.String(),
		"to":         implementation.String(),
	})
}

// initiate registers a timelock and emits the initiation event atomically.
func (o *Orchestrator) initiate(ctx context.Context, sel Selector, argsHash string, extra time.Duration) error {
	return o.store.Atomically(ctx, func(st StateStore) error {
		rec, err := o.ledger.Set(ctx, st, sel, argsHash, extra)
		if err != nil {
			return err
		}
		slog.Debug("timelock initiated",
			"selector", string(sel),
			"args_hash", argsHash,
			"unlock_at", rec.UnlocksAt().UTC().Format(time.RFC3339),
		)
		return o.emit(ctx, st, EventTimelockInitiated, map[string]any{
			"selector":   string(sel),
			"args_hash":  argsHash,
			"unlock_at":  rec.UnlocksAt().UnixNano(),
			"expires_at": rec.ExpiresAt().UnixNano(),
		})
	})
}

// emit appends an event, preferring a sink carried by the transactional
// store view so journal writes commit and roll back with the state they
// describe.
func (o *Orchestrator) emit(ctx context.Context, st StateStore, kind EventKind, payload map[string]any) error {
	sink := o.events
	if s, ok := st.(EventSink); ok {
		sink = s
	}
	return sink.Append(ctx, Event{
		ID:      o.ids.Generate(),
		Seq:     o.seq.Next(),
		At:      o.clock.Now(),
		Kind:    kind,
		Payload: payload,
	})
}

// requireOwnerOrExpired is the inclusive-or check for the contingency
// surface, re-evaluated fresh on every call.
func (o *Orchestrator) requireOwnerOrExpired(ctx context.Context, caller chain.Address) error {
	if err := o.gate.Require(ctx, o.store, caller); err == nil {
		return nil
	}
	expired, err := o.monitor.Expired(ctx, o.store)
	if err != nil {
		return err
	}
	if expired {
		return nil
	}
	return newError(CodeUnauthorized, "caller is not the owner and the heartbeat has not expired")
}

// requireDeployed validates that implementation is non-null and hosts
// deployed code.
func (o *Orchestrator) requireDeployed(ctx context.Context, implementation chain.Address) error {
	if implementation.IsNull() {
		return newError(CodeInvalidArgument, "implementation must not be the null address")
	}
	size, err := o.net.CodeSize(ctx, implementation)
	if err != nil {
		return fmt.Errorf("inspect implementation code: %w", err)
	}
	if size == 0 {
		return errorf(CodeInvalidArgument, "implementation %s has no deployed code", implementation)
	}
	return nil
}

func (o *Orchestrator) requireAcceptance(ctx context.Context, controller, newOwner chain.Address) error {
	ok, err := o.store.Acceptance(ctx, controller, newOwner)
	if err != nil {
		return err
	}
	if !ok {
		return errorf(CodeUnauthorized, "%s has not agreed to accept ownership of %s", newOwner, controller)
	}
	return nil
}

func (o *Orchestrator) emergencyFor(beacon chain.Address) (chain.Address, bool) {
	for _, bc := range o.beacons {
		if bc.Beacon == beacon {
			return bc.EmergencyImplementation, true
		}
	}
	return chain.NullAddress, false
}

type namedAddress struct {
	name string
	addr chain.Address
}

func requireNonNull(addrs ...namedAddress) error {
	for _, na := range addrs {
		if na.addr.IsNull() {
			return errorf(CodeInvalidArgument, "%s must not be the null address", na.name)
		}
	}
	return nil
}

func upgradeArgsHash(controller, beacon, implementation chain.Address) (string, error) {
	return ArgsHash(SelectorUpgrade, map[string]any{
		"controller":     controller.String(),
		"beacon":         beacon.String(),
		"implementation": implementation.String(),
	})
}

func transferArgsHash(controller, newOwner chain.Address) (string, error) {
	return ArgsHash(SelectorTransferControllerOwnership, map[string]any{
		"controller": controller.String(),
		"new_owner":  newOwner.String(),
	})
}

func intervalArgsHash(target Selector, interval time.Duration) (string, error) {
	return ArgsHash(SelectorModifyTimelockInterval, map[string]any{
		"selector": string(target),
		"interval": interval.Nanoseconds(),
	})
}

func expirationArgsHash(target Selector, expiration time.Duration) (string, error) {
	return ArgsHash(SelectorModifyTimelockExpiration, map[string]any{
		"selector":   string(target),
		"expiration": expiration.Nanoseconds(),
	})
}
