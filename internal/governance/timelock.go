package governance

import (
	"context"
	"time"
)

// Ledger is the Timelock Ledger: pure data and validation over per-
// (selector, args-hash) records and per-selector defaults.
//
// The ledger performs no access control. The Orchestrator decides who may
// call; the ledger decides whether a record is actionable.
type Ledger struct {
	clock WallClock
}

// NewLedger creates a ledger reading time from clock.
func NewLedger(clock WallClock) Ledger {
	return Ledger{clock: clock}
}

// Set stores a record for (sel, argsHash) with submitted_at = now,
// interval = configured interval + extra, expiration = configured
// expiration. A prior record for the same key is superseded.
//
// Fails INVALID_ARGUMENT when no defaults are configured for sel (covers the
// empty selector) or when extra is negative.
func (l Ledger) Set(ctx context.Context, st StateStore, sel Selector, argsHash string, extra time.Duration) (TimelockRecord, error) {
	if extra < 0 {
		return TimelockRecord{}, newError(CodeInvalidArgument, "extra time must not be negative")
	}
	d, ok, err := st.TimelockDefaults(ctx, sel)
	if err != nil {
		return TimelockRecord{}, err
	}
	if !ok {
		return TimelockRecord{}, errorf(CodeInvalidArgument, "no timelock defaults configured for selector %q", sel)
	}
	rec := TimelockRecord{
		Selector:    sel,
		ArgsHash:    argsHash,
		SubmittedAt: l.clock.Now(),
		Interval:    d.Interval + extra,
		Expiration:  d.Expiration,
	}
	if err := st.PutTimelock(ctx, rec); err != nil {
		return TimelockRecord{}, err
	}
	return rec, nil
}

// Enforce validates that the record for (sel, argsHash) is actionable now.
// The record is actionable during [submitted_at+interval,
// submitted_at+interval+expiration). Enforce does not mutate; the record
// stays until naturally superseded.
//
// Fails NOT_READY when no record exists or the interval has not elapsed,
// EXPIRED when the window has lapsed.
func (l Ledger) Enforce(ctx context.Context, st StateStore, sel Selector, argsHash string) error {
	rec, ok, err := st.Timelock(ctx, sel, argsHash)
	if err != nil {
		return err
	}
	if !ok {
		return errorf(CodeNotReady, "no timelock initiated for selector %q", sel)
	}
	now := l.clock.Now()
	if now.Before(rec.UnlocksAt()) {
		return errorf(CodeNotReady, "timelock for selector %q unlocks at %s", sel, rec.UnlocksAt().UTC().Format(time.RFC3339))
	}
	if !now.Before(rec.ExpiresAt()) {
		return errorf(CodeExpired, "timelock for selector %q expired at %s", sel, rec.ExpiresAt().UTC().Format(time.RFC3339))
	}
	return nil
}

// CheckInterval validates an interval against the hard caps without storing
// it. Used by initiate* for fail-fast rejection and by SetDefaultInterval as
// the authoritative check.
func (l Ledger) CheckInterval(sel Selector, interval time.Duration) error {
	if interval < 0 {
		return newError(CodeInvalidArgument, "interval must not be negative")
	}
	if sel == SelectorModifyTimelockInterval && interval > MaxOwnInterval {
		return errorf(CodeBoundViolation, "interval for %q must not exceed %s", sel, MaxOwnInterval)
	}
	return nil
}

// CheckExpiration validates an expiration against the hard caps without
// storing it.
func (l Ledger) CheckExpiration(sel Selector, expiration time.Duration) error {
	if expiration <= 0 {
		return newError(CodeInvalidArgument, "expiration must be positive")
	}
	if expiration > MaxExpiration {
		return errorf(CodeBoundViolation, "expiration must not exceed %s", MaxExpiration)
	}
	if sel == SelectorModifyTimelockExpiration && expiration < MinOwnExpiration {
		return errorf(CodeBoundViolation, "expiration for %q must be at least %s", sel, MinOwnExpiration)
	}
	return nil
}

// SetDefaultInterval updates the configured interval for sel, preserving the
// configured expiration. A selector seen for the first time gets the default
// expiration alongside.
func (l Ledger) SetDefaultInterval(ctx context.Context, st StateStore, sel Selector, interval time.Duration) error {
	if sel == "" {
		return newError(CodeInvalidArgument, "empty selector")
	}
	if err := l.CheckInterval(sel, interval); err != nil {
		return err
	}
	d, ok, err := st.TimelockDefaults(ctx, sel)
	if err != nil {
		return err
	}
	if !ok {
		d = TimelockDefaults{Expiration: DefaultExpiration}
	}
	d.Interval = interval
	return st.PutTimelockDefaults(ctx, sel, d)
}

// SetDefaultExpiration updates the configured expiration for sel, preserving
// the configured interval. A selector seen for the first time gets the
// governance default interval alongside.
func (l Ledger) SetDefaultExpiration(ctx context.Context, st StateStore, sel Selector, expiration time.Duration) error {
	if sel == "" {
		return newError(CodeInvalidArgument, "empty selector")
	}
	if err := l.CheckExpiration(sel, expiration); err != nil {
		return err
	}
	d, ok, err := st.TimelockDefaults(ctx, sel)
	if err != nil {
		return err
	}
	if !ok {
		d = TimelockDefaults{Interval: DefaultGovernanceInterval}
	}
	d.Expiration = expiration
	return st.PutTimelockDefaults(ctx, sel, d)
}
