package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates UUID-shaped ids from a counter.
//
// The ids carry the version 7 and RFC 4122 variant bits, so they parse as
// UUIDv7 values like the ones the store generates in production, while
// staying identical across runs for golden comparison:
//
//	00000000-0000-7000-8000-000000000001
//	00000000-0000-7000-8000-000000000002
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu sync.Mutex
	n  uint64
}

// NewFixedIDGenerator creates a generator whose first id ends in 1.
func NewFixedIDGenerator() *FixedIDGenerator {
	return &FixedIDGenerator{}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-7000-8000-%012x", g.n)
}

// Reset restarts the sequence.
func (g *FixedIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
