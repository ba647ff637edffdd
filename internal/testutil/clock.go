// Package testutil provides deterministic clocks and id generators for tests
// and the scenario simulator.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// ManualClock is a wall clock that only moves when told to.
//
// It stands in for governance.WallClock wherever a test needs to cross a
// timelock window, a heartbeat expiry, or a contingency cooldown without
// sleeping. The same scenario with the same ManualClock produces
// byte-identical traces.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current frozen instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative d is allowed but tests
// should not need it.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to an absolute instant.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// FixedIDGenerator generates sequential ids with a fixed prefix.
//
// Generated ids look like "evt-000001", "evt-000002", so golden traces stay
// stable across runs. Implements governance.IDGenerator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewFixedIDGenerator creates a generator with the given prefix.
// An empty prefix defaults to "evt".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "evt"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next sequential id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%06d", g.prefix, g.next)
}
