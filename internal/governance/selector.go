package governance

import (
	"time"

	"github.com/roach88/beaconctl/internal/canon"
)

// Selector identifies a timelocked operation. The four governance selectors
// below are seeded with defaults at construction; further selectors gain
// defaults the first time the owner configures them through the timelocked
// modify protocol.
type Selector string

const (
	SelectorUpgrade                     Selector = "upgrade"
	SelectorTransferControllerOwnership Selector = "transferControllerOwnership"
	SelectorModifyTimelockInterval      Selector = "modifyTimelockInterval"
	SelectorModifyTimelockExpiration    Selector = "modifyTimelockExpiration"
)

// Temporal constants of the governance protocol.
const (
	// HeartbeatExpiration is how stale the heartbeat may get before the
	// dead-man's-switch widens contingency arming/activation to the public.
	HeartbeatExpiration = 90 * 24 * time.Hour

	// ContingencyCooldown is the floor between contingency activation and
	// exit-with-new-implementation. Rollback ignores it.
	ContingencyCooldown = 48 * time.Hour

	// MaxOwnInterval caps the timelock interval configured for
	// modifyTimelockInterval's own selector. The bootstrapping guard that
	// keeps governance from locking itself out.
	MaxOwnInterval = 8 * 7 * 24 * time.Hour

	// MinOwnExpiration floors the expiration configured for
	// modifyTimelockExpiration's own selector, so the safety margin cannot
	// be loosened to nothing.
	MinOwnExpiration = time.Hour

	// MaxExpiration caps every expiration.
	MaxExpiration = 30 * 24 * time.Hour

	// DefaultUpgradeInterval is the construction-time interval for upgrade.
	DefaultUpgradeInterval = 7 * 24 * time.Hour

	// DefaultGovernanceInterval is the construction-time interval for the
	// other three governance selectors.
	DefaultGovernanceInterval = 4 * 7 * 24 * time.Hour

	// DefaultExpiration is the construction-time expiration for all four.
	DefaultExpiration = 7 * 24 * time.Hour
)

// argsDomain separates timelock argument hashes from every other digest in
// the system.
const argsDomain = "beaconctl/timelock-args/v1"

// ArgsHash computes the content key for a timelock record: the
// domain-separated digest of the canonicalized (selector, argument tuple).
// Initiate and execute must build the identical tuple for the same intent,
// and distinct proposals never alias.
func ArgsHash(sel Selector, args map[string]any) (string, error) {
	return canon.Digest(argsDomain, map[string]any{
		"selector": string(sel),
		"args":     args,
	})
}
