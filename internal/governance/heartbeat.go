package governance

import (
	"context"
	"time"

	"github.com/roach88/beaconctl/internal/chain"
)

// Monitor is the Heartbeat Monitor: the dead-man's-switch that widens who
// may arm and activate the contingency once the designated heartbeater has
// been silent for HeartbeatExpiration.
//
// Its sole effect is that widening; it grants no other authority.
type Monitor struct {
	clock WallClock
}

// NewMonitor creates a monitor reading time from clock.
func NewMonitor(clock WallClock) Monitor {
	return Monitor{clock: clock}
}

// HeartbeatStatus is the read-only view of the switch.
type HeartbeatStatus struct {
	Expired   bool
	ExpiresAt time.Time
}

// Beat resets the heartbeat to now. Callable only by the current
// heartbeater.
func (m Monitor) Beat(ctx context.Context, st StateStore, caller chain.Address) error {
	hb, ok, err := st.Heartbeat(ctx)
	if err != nil {
		return err
	}
	if !ok || caller != hb.Heartbeater {
		return newError(CodeUnauthorized, "caller is not the heartbeater")
	}
	hb.LastHeartbeat = m.clock.Now()
	return st.PutHeartbeat(ctx, hb)
}

// SetHeartbeater designates a new heartbeater. Owner gating is the
// Orchestrator's job; the monitor rejects only the null address.
func (m Monitor) SetHeartbeater(ctx context.Context, st StateStore, addr chain.Address) error {
	if addr.IsNull() {
		return newError(CodeInvalidArgument, "heartbeater must not be the null address")
	}
	hb, _, err := st.Heartbeat(ctx)
	if err != nil {
		return err
	}
	hb.Heartbeater = addr
	return st.PutHeartbeat(ctx, hb)
}

// Status returns whether the switch has triggered and when it does.
// expired holds exactly when now > last_heartbeat + HeartbeatExpiration.
func (m Monitor) Status(ctx context.Context, st StateStore) (HeartbeatStatus, error) {
	hb, _, err := st.Heartbeat(ctx)
	if err != nil {
		return HeartbeatStatus{}, err
	}
	expiresAt := hb.LastHeartbeat.Add(HeartbeatExpiration)
	return HeartbeatStatus{
		Expired:   m.clock.Now().After(expiresAt),
		ExpiresAt: expiresAt,
	}, nil
}

// Expired reports whether the dead-man's-switch has triggered. Re-evaluated
// fresh on every call; never cached.
func (m Monitor) Expired(ctx context.Context, st StateStore) (bool, error) {
	status, err := m.Status(ctx, st)
	if err != nil {
		return false, err
	}
	return status.Expired, nil
}

// Reset resets the heartbeat to now without a caller check. Internal paths
// (upgrade execution, rollback) prove liveness by their own authorization.
func (m Monitor) Reset(ctx context.Context, st StateStore) error {
	hb, _, err := st.Heartbeat(ctx)
	if err != nil {
		return err
	}
	hb.LastHeartbeat = m.clock.Now()
	return st.PutHeartbeat(ctx, hb)
}
