package governance

import (
	"context"

	"github.com/roach88/beaconctl/internal/chain"
)

// Tracker is the Contingency Tracker: the per-(controller, beacon) emergency
// state machine. It manages state transitions only; the Orchestrator owns
// authorization, beacon recognition, and the actual upgrades.
//
// State machine: Disarmed -> Armed -> Activated -> Disarmed (rollback), or
// Activated -> Disarmed (exit-with-new-implementation after the cooldown).
type Tracker struct {
	clock WallClock
}

// NewTracker creates a tracker reading time from clock.
func NewTracker(clock WallClock) Tracker {
	return Tracker{clock: clock}
}

// Record returns the current record for the pair (zero when disarmed).
func (t Tracker) Record(ctx context.Context, st StateStore, controller, beacon chain.Address) (ContingencyRecord, error) {
	return st.Contingency(ctx, controller, beacon)
}

// Arm sets or clears the armed flag directly. Idempotent, no transition
// guard: re-arming or disarming while not yet activated is free.
func (t Tracker) Arm(ctx context.Context, st StateStore, controller, beacon chain.Address, armed bool) error {
	rec, err := st.Contingency(ctx, controller, beacon)
	if err != nil {
		return err
	}
	rec.Armed = armed
	if !rec.Exists() {
		return st.DeleteContingency(ctx, controller, beacon)
	}
	return st.PutContingency(ctx, controller, beacon, rec)
}

// Activate transitions Armed -> Activated, stamping the activation time and
// clearing the armed flag. Fails ALREADY_IN_STATE when the record is not
// armed or is already activated.
func (t Tracker) Activate(ctx context.Context, st StateStore, controller, beacon chain.Address) (ContingencyRecord, error) {
	rec, err := st.Contingency(ctx, controller, beacon)
	if err != nil {
		return ContingencyRecord{}, err
	}
	if rec.Activated {
		return ContingencyRecord{}, newError(CodeAlreadyInState, "contingency already activated")
	}
	if !rec.Armed {
		return ContingencyRecord{}, newError(CodeAlreadyInState, "contingency not armed")
	}
	rec = ContingencyRecord{
		Armed:          false,
		Activated:      true,
		ActivationTime: t.clock.Now(),
	}
	if err := st.PutContingency(ctx, controller, beacon, rec); err != nil {
		return ContingencyRecord{}, err
	}
	return rec, nil
}

// Exit clears an activated record after the cooldown. Fails ALREADY_IN_STATE
// when not activated, NOT_READY before activation_time + ContingencyCooldown
// has strictly passed.
func (t Tracker) Exit(ctx context.Context, st StateStore, controller, beacon chain.Address) error {
	rec, err := st.Contingency(ctx, controller, beacon)
	if err != nil {
		return err
	}
	if !rec.Activated {
		return newError(CodeAlreadyInState, "contingency not activated")
	}
	if !t.clock.Now().After(rec.ActivationTime.Add(ContingencyCooldown)) {
		return errorf(CodeNotReady, "contingency exit available after %s", rec.ActivationTime.Add(ContingencyCooldown).UTC())
	}
	return st.DeleteContingency(ctx, controller, beacon)
}

// Clear deletes whatever record exists for the pair, regardless of the
// cooldown. Rollback's immediate-undo escape hatch. Returns whether the
// cleared record had been activated (the caller emits the exit event only
// then).
func (t Tracker) Clear(ctx context.Context, st StateStore, controller, beacon chain.Address) (wasActivated bool, err error) {
	rec, err := st.Contingency(ctx, controller, beacon)
	if err != nil {
		return false, err
	}
	if !rec.Exists() {
		return false, nil
	}
	if err := st.DeleteContingency(ctx, controller, beacon); err != nil {
		return false, err
	}
	return rec.Activated, nil
}
