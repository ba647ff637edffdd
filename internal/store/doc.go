// Package store provides SQLite-backed durable storage for governance state
// and the event journal.
//
// The store is the persistent implementation of governance.StateStore:
//   - Timelocks: per-(selector, args-hash) authorization records
//   - Timelock defaults: per-selector interval/expiration configuration
//   - Acceptances: per-(controller, candidate) ownership-acceptance flags
//   - Last implementations: per-(controller, beacon) rollback targets
//   - Contingencies: per-(controller, beacon) emergency state
//   - Heartbeat / ownership: single-row process-wide state
//   - Events: the append-only governance journal
//
// Atomic per call: Atomically runs a function against a transaction-backed
// view of the store. The view also implements governance.EventSink, so
// journal entries written during an operation commit and roll back together
// with the state they describe.
//
// Instants are stored as unix nanoseconds, durations as nanoseconds, and
// addresses as 0x-prefixed lowercase hex. Journal ordering uses the logical
// seq column, never wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
