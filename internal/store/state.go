package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/beaconctl/internal/chain"
	"github.com/roach88/beaconctl/internal/governance"
)

// querier is the subset of database/sql satisfied by both *sql.DB and
// *sql.Tx, so the same state operations serve the root store and the
// transactional view.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type stateOps struct {
	q querier
}

// Timelock implements governance.StateStore.
func (s stateOps) Timelock(ctx context.Context, sel governance.Selector, argsHash string) (governance.TimelockRecord, bool, error) {
	var (
		submittedAt  int64
		intervalNS   int64
		expirationNS int64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT submitted_at, interval_ns, expiration_ns
		FROM timelocks WHERE selector = ? AND args_hash = ?
	`, string(sel), argsHash).Scan(&submittedAt, &intervalNS, &expirationNS)
	if errors.Is(err, sql.ErrNoRows) {
		return governance.TimelockRecord{}, false, nil
	}
	if err != nil {
		return governance.TimelockRecord{}, false, fmt.Errorf("read timelock: %w", err)
	}
	return governance.TimelockRecord{
		Selector:    sel,
		ArgsHash:    argsHash,
		SubmittedAt: time.Unix(0, submittedAt),
		Interval:    time.Duration(intervalNS),
		Expiration:  time.Duration(expirationNS),
	}, true, nil
}

// PutTimelock implements governance.StateStore.
func (s stateOps) PutTimelock(ctx context.Context, rec governance.TimelockRecord) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO timelocks (selector, args_hash, submitted_at, interval_ns, expiration_ns)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(selector, args_hash) DO UPDATE SET
			submitted_at = excluded.submitted_at,
			interval_ns = excluded.interval_ns,
			expiration_ns = excluded.expiration_ns
	`, string(rec.Selector), rec.ArgsHash, rec.SubmittedAt.UnixNano(), int64(rec.Interval), int64(rec.Expiration))
	if err != nil {
		return fmt.Errorf("write timelock: %w", err)
	}
	return nil
}

// TimelockDefaults implements governance.StateStore.
func (s stateOps) TimelockDefaults(ctx context.Context, sel governance.Selector) (governance.TimelockDefaults, bool, error) {
	var intervalNS, expirationNS int64
	err := s.q.QueryRowContext(ctx, `
		SELECT interval_ns, expiration_ns FROM timelock_defaults WHERE selector = ?
	`, string(sel)).Scan(&intervalNS, &expirationNS)
	if errors.Is(err, sql.ErrNoRows) {
		return governance.TimelockDefaults{}, false, nil
	}
	if err != nil {
		return governance.TimelockDefaults{}, false, fmt.Errorf("read timelock defaults: %w", err)
	}
	return governance.TimelockDefaults{
		Interval:   time.Duration(intervalNS),
		Expiration: time.Duration(expirationNS),
	}, true, nil
}

// PutTimelockDefaults implements governance.StateStore.
func (s stateOps) PutTimelockDefaults(ctx context.Context, sel governance.Selector, d governance.TimelockDefaults) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO timelock_defaults (selector, interval_ns, expiration_ns)
		VALUES (?, ?, ?)
		ON CONFLICT(selector) DO UPDATE SET
			interval_ns = excluded.interval_ns,
			expiration_ns = excluded.expiration_ns
	`, string(sel), int64(d.Interval), int64(d.Expiration))
	if err != nil {
		return fmt.Errorf("write timelock defaults: %w", err)
	}
	return nil
}

// Acceptance implements governance.StateStore.
func (s stateOps) Acceptance(ctx context.Context, controller, candidate chain.Address) (bool, error) {
	var willAccept bool
	err := s.q.QueryRowContext(ctx, `
		SELECT will_accept FROM acceptances WHERE controller = ? AND candidate = ?
	`, controller.String(), candidate.String()).Scan(&willAccept)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read acceptance: %w", err)
	}
	return willAccept, nil
}

// PutAcceptance implements governance.StateStore.
func (s stateOps) PutAcceptance(ctx context.Context, controller, candidate chain.Address, willAccept bool) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO acceptances (controller, candidate, will_accept)
		VALUES (?, ?, ?)
		ON CONFLICT(controller, candidate) DO UPDATE SET will_accept = excluded.will_accept
	`, controller.String(), candidate.String(), willAccept)
	if err != nil {
		return fmt.Errorf("write acceptance: %w", err)
	}
	return nil
}

// LastImplementation implements governance.StateStore.
func (s stateOps) LastImplementation(ctx context.Context, controller, beacon chain.Address) (chain.Address, error) {
	var impl string
	err := s.q.QueryRowContext(ctx, `
		SELECT implementation FROM last_implementations WHERE controller = ? AND beacon = ?
	`, controller.String(), beacon.String()).Scan(&impl)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.NullAddress, nil
	}
	if err != nil {
		return chain.NullAddress, fmt.Errorf("read last implementation: %w", err)
	}
	addr, err := chain.ParseAddress(impl)
	if err != nil {
		return chain.NullAddress, fmt.Errorf("read last implementation: %w", err)
	}
	return addr, nil
}

// PutLastImplementation implements governance.StateStore.
func (s stateOps) PutLastImplementation(ctx context.Context, controller, beacon, implementation chain.Address) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO last_implementations (controller, beacon, implementation)
		VALUES (?, ?, ?)
		ON CONFLICT(controller, beacon) DO UPDATE SET implementation = excluded.implementation
	`, controller.String(), beacon.String(), implementation.String())
	if err != nil {
		return fmt.Errorf("write last implementation: %w", err)
	}
	return nil
}

// Contingency implements governance.StateStore.
func (s stateOps) Contingency(ctx context.Context, controller, beacon chain.Address) (governance.ContingencyRecord, error) {
	var (
		armed          bool
		activated      bool
		activationTime int64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT armed, activated, activation_time
		FROM contingencies WHERE controller = ? AND beacon = ?
	`, controller.String(), beacon.String()).Scan(&armed, &activated, &activationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return governance.ContingencyRecord{}, nil
	}
	if err != nil {
		return governance.ContingencyRecord{}, fmt.Errorf("read contingency: %w", err)
	}
	rec := governance.ContingencyRecord{Armed: armed, Activated: activated}
	if activationTime != 0 {
		rec.ActivationTime = time.Unix(0, activationTime)
	}
	return rec, nil
}

// PutContingency implements governance.StateStore.
func (s stateOps) PutContingency(ctx context.Context, controller, beacon chain.Address, rec governance.ContingencyRecord) error {
	var activationTime int64
	if !rec.ActivationTime.IsZero() {
		activationTime = rec.ActivationTime.UnixNano()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO contingencies (controller, beacon, armed, activated, activation_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(controller, beacon) DO UPDATE SET
			armed = excluded.armed,
			activated = excluded.activated,
			activation_time = excluded.activation_time
	`, controller.String(), beacon.String(), rec.Armed, rec.Activated, activationTime)
	if err != nil {
		return fmt.Errorf("write contingency: %w", err)
	}
	return nil
}

// DeleteContingency implements governance.StateStore.
func (s stateOps) DeleteContingency(ctx context.Context, controller, beacon chain.Address) error {
	_, err := s.q.ExecContext(ctx, `
		DELETE FROM contingencies WHERE controller = ? AND beacon = ?
	`, controller.String(), beacon.String())
	if err != nil {
		return fmt.Errorf("delete contingency: %w", err)
	}
	return nil
}

// Heartbeat implements governance.StateStore.
func (s stateOps) Heartbeat(ctx context.Context) (governance.HeartbeatState, bool, error) {
	var (
		lastHeartbeat int64
		heartbeater   string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT last_heartbeat, heartbeater FROM heartbeat WHERE id = 1
	`).Scan(&lastHeartbeat, &heartbeater)
	if errors.Is(err, sql.ErrNoRows) {
		return governance.HeartbeatState{}, false, nil
	}
	if err != nil {
		return governance.HeartbeatState{}, false, fmt.Errorf("read heartbeat: %w", err)
	}
	addr, err := chain.ParseAddress(heartbeater)
	if err != nil {
		return governance.HeartbeatState{}, false, fmt.Errorf("read heartbeat: %w", err)
	}
	return governance.HeartbeatState{
		LastHeartbeat: time.Unix(0, lastHeartbeat),
		Heartbeater:   addr,
	}, true, nil
}

// PutHeartbeat implements governance.StateStore.
func (s stateOps) PutHeartbeat(ctx context.Context, hb governance.HeartbeatState) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO heartbeat (id, last_heartbeat, heartbeater)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_heartbeat = excluded.last_heartbeat,
			heartbeater = excluded.heartbeater
	`, hb.LastHeartbeat.UnixNano(), hb.Heartbeater.String())
	if err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// Ownership implements governance.StateStore.
func (s stateOps) Ownership(ctx context.Context) (governance.OwnershipState, bool, error) {
	var owner, pending string
	err := s.q.QueryRowContext(ctx, `
		SELECT owner, pending_owner FROM ownership WHERE id = 1
	`).Scan(&owner, &pending)
	if errors.Is(err, sql.ErrNoRows) {
		return governance.OwnershipState{}, false, nil
	}
	if err != nil {
		return governance.OwnershipState{}, false, fmt.Errorf("read ownership: %w", err)
	}
	ownerAddr, err := chain.ParseAddress(owner)
	if err != nil {
		return governance.OwnershipState{}, false, fmt.Errorf("read ownership: %w", err)
	}
	pendingAddr, err := chain.ParseAddress(pending)
	if err != nil {
		return governance.OwnershipState{}, false, fmt.Errorf("read ownership: %w", err)
	}
	return governance.OwnershipState{Owner: ownerAddr, PendingOwner: pendingAddr}, true, nil
}

// PutOwnership implements governance.StateStore.
func (s stateOps) PutOwnership(ctx context.Context, o governance.OwnershipState) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ownership (id, owner, pending_owner)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			pending_owner = excluded.pending_owner
	`, o.Owner.String(), o.PendingOwner.String())
	if err != nil {
		return fmt.Errorf("write ownership: %w", err)
	}
	return nil
}

// ContingencyEntry is one live contingency row, for inspection.
type ContingencyEntry struct {
	Controller chain.Address
	Beacon     chain.Address
	Record     governance.ContingencyRecord
}

// ListContingencies returns all live contingency records, ordered by
// (controller, beacon) for determinism. Used by the status command.
func (s stateOps) ListContingencies(ctx context.Context) ([]ContingencyEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT controller, beacon, armed, activated, activation_time
		FROM contingencies ORDER BY controller ASC, beacon ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list contingencies: %w", err)
	}
	defer rows.Close()

	var out []ContingencyEntry
	for rows.Next() {
		var (
			controller, beacon string
			armed, activated   bool
			activationTime     int64
		)
		if err := rows.Scan(&controller, &beacon, &armed, &activated, &activationTime); err != nil {
			return nil, fmt.Errorf("list contingencies: %w", err)
		}
		entry := ContingencyEntry{
			Record: governance.ContingencyRecord{Armed: armed, Activated: activated},
		}
		if entry.Controller, err = chain.ParseAddress(controller); err != nil {
			return nil, fmt.Errorf("list contingencies: %w", err)
		}
		if entry.Beacon, err = chain.ParseAddress(beacon); err != nil {
			return nil, fmt.Errorf("list contingencies: %w", err)
		}
		if activationTime != 0 {
			entry.Record.ActivationTime = time.Unix(0, activationTime)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
