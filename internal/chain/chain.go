package chain

import "context"

// Controller is a governed upgrade controller.
// Upgrade points one of the controller's beacons at a new implementation.
// TransferOwnership starts the controller's own two-step ownership handoff.
//
// Both calls are must-succeed-or-abort from the governance core's point of
// view: an error propagates and the core applies no state change.
type Controller interface {
	Upgrade(ctx context.Context, beacon, implementation Address) error
	TransferOwnership(ctx context.Context, newOwner Address) error
}

// Beacon is a governed upgrade beacon: a single-slot indirection read by
// downstream proxies. Read returns the current implementation word.
//
// Read returns an error when the call fails or the beacon returns anything
// other than one address-sized word. It is the caller's decision whether an
// error is fatal; the bookkeeping read in the governance core substitutes
// the null address instead of aborting.
type Beacon interface {
	Read(ctx context.Context) (Address, error)
}

// Network resolves addresses to capabilities and inspects deployed code.
//
// Controller and Beacon return handles immediately without validating that
// the address hosts anything; errors surface on the first call through the
// handle. CodeSize and CodeHash inspect the account's deployed code.
type Network interface {
	Controller(addr Address) Controller
	Beacon(addr Address) Beacon
	CodeSize(ctx context.Context, addr Address) (int, error)
	CodeHash(ctx context.Context, addr Address) (Hash, error)
}
