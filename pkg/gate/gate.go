// Package gate implements the capture gate, a one-way switch that live
// capture code checks before recording a sample.
package gate

import "sync/atomic"

// Gate controls whether capture is still recording samples.
// The zero value is not usable, create one with New.
type Gate struct {
	// disabled is inverted so an atomic.Bool's zero value would mean 'capturing'.
	disabled atomic.Bool
}

// New returns a Gate in the capturing state.
func New() *Gate {
	return &Gate{}
}

// Enabled returns true if capture is allowed to record samples.
// Never blocks, safe to call from the capture hot path.
func (g *Gate) Enabled() bool {
	return !g.disabled.Load()
}

// Disable stops capture for the rest of the Gate's lifetime. Returns true if
// this call performed the transition, false if the gate was already disabled.
func (g *Gate) Disable() bool {
	return g.disabled.CompareAndSwap(false, true)
}
