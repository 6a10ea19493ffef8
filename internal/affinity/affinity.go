// Package affinity binds worker threads to CPU cores where the platform
// allows it, and raises the process priority on a best-effort basis.
package affinity

// Capability describes how strong a platform's core binding is.
type Capability int

const (
	// HardPin restricts the calling thread to exactly the requested core.
	HardPin Capability = iota
	// AdvisoryHint groups threads so the kernel prefers co-location, but
	// placement on the requested core is not guaranteed.
	AdvisoryHint
	// NoOp means the platform offers no binding; Bind always succeeds.
	NoOp
)

func (c Capability) String() string {
	switch c {
	case HardPin:
		return "hard-pin"
	case AdvisoryHint:
		return "advisory-hint"
	case NoOp:
		return "no-op"
	default:
		return "unknown"
	}
}

// Binder binds the calling OS thread to a core. Callers must hold the
// thread with runtime.LockOSThread for the binding to stay meaningful.
type Binder interface {
	Bind(core int) error
	Capability() Capability
}

// ForPlatform returns the binder for the build platform.
func ForPlatform() Binder {
	return platformBinder()
}
