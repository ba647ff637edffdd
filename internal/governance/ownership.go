package governance

import (
	"context"

	"github.com/roach88/beaconctl/internal/chain"
)

// Gate is the Ownership Gate: two-phase ownership of the orchestrator
// itself. A transfer takes effect only when the prospective owner accepts,
// so a typoed address cannot orphan the governance core.
type Gate struct{}

// Owner returns the current owner.
func (Gate) Owner(ctx context.Context, st StateStore) (chain.Address, error) {
	o, _, err := st.Ownership(ctx)
	if err != nil {
		return chain.NullAddress, err
	}
	return o.Owner, nil
}

// Require fails UNAUTHORIZED unless caller is the current owner.
func (g Gate) Require(ctx context.Context, st StateStore, caller chain.Address) error {
	owner, err := g.Owner(ctx, st)
	if err != nil {
		return err
	}
	if caller.IsNull() || caller != owner {
		return newError(CodeUnauthorized, "caller is not the owner")
	}
	return nil
}

// Transfer nominates a new owner. Owner-only; the nomination replaces any
// prior pending one and has no effect until accepted.
func (g Gate) Transfer(ctx context.Context, st StateStore, caller, newOwner chain.Address) error {
	if err := g.Require(ctx, st, caller); err != nil {
		return err
	}
	if newOwner.IsNull() {
		return newError(CodeInvalidArgument, "new owner must not be the null address")
	}
	o, _, err := st.Ownership(ctx)
	if err != nil {
		return err
	}
	o.PendingOwner = newOwner
	return st.PutOwnership(ctx, o)
}

// Accept completes a pending transfer. Callable only by the pending owner.
func (g Gate) Accept(ctx context.Context, st StateStore, caller chain.Address) error {
	o, _, err := st.Ownership(ctx)
	if err != nil {
		return err
	}
	if o.PendingOwner.IsNull() || caller != o.PendingOwner {
		return newError(CodeUnauthorized, "caller is not the pending owner")
	}
	return st.PutOwnership(ctx, OwnershipState{Owner: caller})
}
