package desktop

import "context"

// Gate serializes every operation that moves keyboard focus. There is one
// per process; HTTP and MCP handlers share it.
type Gate struct {
	sem chan struct{}
}

// NewGate returns an unlocked gate.
func NewGate() *Gate {
	return &Gate{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the gate is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the gate. Calling it without holding the gate panics.
func (g *Gate) Release() {
	select {
	case <-g.sem:
	default:
		panic("desktop: Release of unheld gate")
	}
}
