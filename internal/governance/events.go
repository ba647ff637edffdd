package governance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind names an observable governance event.
type EventKind string

const (
	// EventTimelockInitiated is emitted per initiate* call, carrying the
	// operation identity and the unlock/expiration instants.
	EventTimelockInitiated EventKind = "timelock.initiated"

	// EventContingencyActivated is emitted per successful contingency
	// activation.
	EventContingencyActivated EventKind = "contingency.activated"

	// EventContingencyExited is emitted per rollback-while-activated and per
	// exit-with-new-implementation.
	EventContingencyExited EventKind = "contingency.exited"

	// EventUpgradeApplied is emitted by every path through the core upgrade
	// primitive. Supplementary observability on top of the required set.
	EventUpgradeApplied EventKind = "upgrade.applied"
)

// Event is one entry of the governance journal.
// Seq is the ordering authority; At is informational wall time.
// Payload values are restricted to strings, 64-bit integers, and booleans so
// that canonical serialization is total.
type Event struct {
	ID      string
	Seq     int64
	At      time.Time
	Kind    EventKind
	Payload map[string]any
}

// EventSink receives governance events. The SQLite store appends them to a
// durable journal; MemorySink collects them for tests and the simulator.
type EventSink interface {
	Append(ctx context.Context, ev Event) error
}

// IDGenerator generates unique event ids.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event ids.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MemorySink is an in-memory EventSink.
//
// Thread-safety: safe for concurrent use via internal mutex.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements EventSink.
func (s *MemorySink) Append(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of all appended events in order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

type nopSink struct{}

func (nopSink) Append(context.Context, Event) error { return nil }
