package sandbox

import (
	"errors"
	"sync"
)

var (
	ErrGateClosed = errors.New("runner gate is closed")
	ErrSaturated  = errors.New("too many concurrent runs")
)

// Gate bounds the number of live runners. Runners are ephemeral and never
// reused, so unlike a pool the gate hands out slots, not instances.
type Gate struct {
	slots  chan struct{}
	size   int
	mu     sync.RWMutex
	closed bool
}

// NewGate creates a gate admitting at most size concurrent runners.
func NewGate(size int) *Gate {
	if size <= 0 {
		size = 4
	}

	g := &Gate{
		slots: make(chan struct{}, size),
		size:  size,
	}
	for i := 0; i < size; i++ {
		g.slots <- struct{}{}
	}
	return g
}

// Acquire claims a runner slot. A saturated gate fails immediately: run
// admission is a setup fault for the caller, not something to queue on.
func (g *Gate) Acquire() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return ErrGateClosed
	}

	select {
	case <-g.slots:
		return nil
	default:
		return ErrSaturated
	}
}

// Release returns a slot after the runner is destroyed.
func (g *Gate) Release() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return
	}

	select {
	case g.slots <- struct{}{}:
	default:
		// Release without a matching Acquire; ignore rather than grow.
	}
}

// Close shuts the gate; subsequent acquisitions fail.
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	close(g.slots)
	return nil
}

// Stats returns gate statistics
func (g *Gate) Stats() map[string]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	available := len(g.slots)
	return map[string]interface{}{
		"size":      g.size,
		"available": available,
		"in_use":    g.size - available,
		"closed":    g.closed,
	}
}
