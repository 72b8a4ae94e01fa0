// Package memory implements an in-memory cart snapshot.
package memory

import (
	"context"
	"sync"

	"github.com/timunlipat/dapur-segar/pkg/cart"
)

// Snapshot keeps the cart in process memory. Used by tests and by
// sessions that opt out of durability.
type Snapshot struct {
	mu    sync.RWMutex
	lines []cart.Line
}

// New creates an empty in-memory snapshot.
func New() *Snapshot {
	return &Snapshot{}
}

// Load returns a copy of the stored cart.
func (s *Snapshot) Load(ctx context.Context) ([]cart.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cart.Line, len(s.lines))
	copy(out, s.lines)
	return out, nil
}

// Save replaces the stored cart with a copy of lines.
func (s *Snapshot) Save(ctx context.Context, lines []cart.Line) error {
	cp := make([]cart.Line, len(lines))
	copy(cp, lines)
	s.mu.Lock()
	s.lines = cp
	s.mu.Unlock()
	return nil
}
