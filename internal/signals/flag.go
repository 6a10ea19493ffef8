// Package signals provides the single-writer boolean flags that coordinate
// the load engine's goroutines: worker activity gating and stop requests.
package signals

import "sync/atomic"

// Flag is a boolean shared between one writer and many readers. The padding
// keeps each flag on its own cache line so a hot reader polling one flag
// does not cause coherence traffic on a neighbouring flag's line.
//
// Readers may observe a Set with bounded delay; they must never block on it.
type Flag struct {
	_ [64]byte
	v atomic.Bool
	_ [64]byte
}

func (f *Flag) Set() {
	f.v.Store(true)
}

func (f *Flag) Clear() {
	f.v.Store(false)
}

func (f *Flag) IsSet() bool {
	return f.v.Load()
}

// AnySet reports whether at least one of the given flags is set. This is the
// OR-composition used for cancellation: a goroutine stops when either the
// user-interrupt flag or the watchdog flag fires, whichever comes first.
func AnySet(flags ...*Flag) bool {
	for _, f := range flags {
		if f.IsSet() {
			return true
		}
	}
	return false
}
