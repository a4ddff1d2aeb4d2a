package manager

import "sync/atomic"

// gate is the single-flight admission gate guarding the inference runtime.
// The runtime supports exactly one concurrent generation; a second admitted
// request would corrupt or stall the first, so the slot is test-and-set
// before any decoding work and released unconditionally afterwards.
type gate struct {
	slot      chan struct{} // size 1: the one in-flight completion
	processed atomic.Uint64
}

func newGate() *gate {
	return &gate{slot: make(chan struct{}, 1)}
}

// TryAcquire reserves the slot without blocking. There is no queue; callers
// denied here answer 503 and the client retries.
func (g *gate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot. Safe to call when not held.
func (g *gate) Release() {
	select {
	case <-g.slot:
	default:
	}
}

// Busy reports whether a completion is in flight.
func (g *gate) Busy() bool {
	return len(g.slot) == 1
}

// CountRequest bumps the processed counter for one admitted completion.
func (g *gate) CountRequest() {
	g.processed.Add(1)
}

// Processed returns the number of admitted completions so far.
func (g *gate) Processed() uint64 {
	return g.processed.Load()
}

// Reset zeroes the counter (used on server stop).
func (g *gate) Reset() {
	g.processed.Store(0)
}
