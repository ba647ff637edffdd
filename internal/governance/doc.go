// Package governance implements the upgrade-governance core: the controller
// manager that mediates every change to the implementation pointers read by
// downstream proxies.
//
// ARCHITECTURE:
//
// The Orchestrator composes four leaf components over one injected StateStore:
//
//   - Ledger: per-(selector, args-hash) timelock records and per-selector
//     interval/expiration defaults.
//   - Monitor: the heartbeat dead-man's-switch. Once the heartbeat is 90 days
//     stale, contingency arming/activation widens from owner-only to anyone.
//   - Tracker: the per-(controller, beacon) Adharma contingency state machine
//     (Disarmed -> Armed -> Activated -> Disarmed).
//   - Gate: two-phase ownership of the orchestrator itself, guarding all
//     privileged entrypoints.
//
// Every governed action follows the same two-phase shape: initiate* registers
// a timelock keyed by the hash of the exact argument tuple, and the matching
// execute entrypoint re-validates against the ledger using the identical
// encoding before performing the effect.
//
// CRITICAL PATTERNS:
//
// Atomic per call: all precondition checks run first, then every state write
// of an operation is applied inside StateStore.Atomically. A failure anywhere
// (including the external controller call) rolls the whole call back; no
// partial mutation survives.
//
// Fresh authorization: owner-or-heartbeat-expired is an inclusive-or
// re-evaluated on every call, never cached. The instant the heartbeat
// expires, arming and activation are publicly callable while the owner
// retains full access.
//
// Tolerant read, exactly once: the beacon read that feeds rollback
// bookkeeping substitutes the null address when the read fails or returns a
// malformed word. No other external interaction swallows errors.
//
// Wall-clock time enters only through the injected WallClock; there is no
// in-process waiting. "Waiting out a timelock" is the caller's problem.
package governance
