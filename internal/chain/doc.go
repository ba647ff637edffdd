// Package chain defines the capability surface the governance core uses to
// reach governed contracts, plus an in-memory network for tests and the
// scenario simulator.
//
// The core never dials anything itself. Every external effect goes through
// the Network interface:
//
//   - Controller.Upgrade is the single state-mutating edge of the whole
//     subsystem: it points a beacon at a new implementation.
//   - Controller.TransferOwnership hands a controller to a new owner via the
//     controller's own two-step primitive.
//   - Beacon.Read returns the beacon's current implementation word. Callers
//     that only need the value for bookkeeping may treat a failed read as a
//     null implementation; the read path makes no such decision itself.
//   - CodeSize/CodeHash inspect deployed account code. A non-zero address is
//     not proof of a deployed contract; code-size inspection is.
//
// Real adapters (e.g. a JSON-RPC client) and MemNetwork implement the same
// interfaces, so the governance core is tested against exactly the surface
// it ships with.
package chain
