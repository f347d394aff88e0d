package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates cycle-0001, cycle-0002, ...
//
// This enables deterministic log output and golden snapshot comparison.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu  sync.Mutex
	seq int
}

// NewSequentialIDGenerator creates a generator whose first ID is cycle-0001.
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

// Generate returns the next ID.
//
// Implements mirror.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("cycle-%04d", g.seq)
}

// Reset restarts the sequence. After Reset, Generate returns cycle-0001.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
