package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeys generates node keys "n1", "n2", ... in order.
//
// It never runs out, so it suits tests that do not know how many nodes a
// translation creates.
//
// Thread-safety: SequentialKeys is safe for concurrent use.
type SequentialKeys struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next key.
func (g *SequentialKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("n%d", g.n)
}

// Reset restarts the sequence, so the next key is "n1".
func (g *SequentialKeys) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
