//go:build linux

package affinity

import (
	"runtime"
	"testing"
)

func TestBindIsIdempotent(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		b := ForPlatform()
		if err := b.Bind(0); err != nil {
			done <- err
			return
		}
		// A second bind to the same core must also succeed.
		done <- b.Bind(0)
	}()
	if err := <-done; err != nil {
		t.Fatalf("Bind(0): %v", err)
	}
}

func TestBindRejectsOutOfRangeCore(t *testing.T) {
	b := ForPlatform()
	if err := b.Bind(-1); err == nil {
		t.Fatalf("Bind(-1) must fail")
	}
	if err := b.Bind(1 << 20); err == nil {
		t.Fatalf("Bind(huge) must fail")
	}
}

func TestPlatformCapability(t *testing.T) {
	if got := ForPlatform().Capability(); got != HardPin {
		t.Fatalf("linux capability = %v, want %v", got, HardPin)
	}
	if HardPin.String() != "hard-pin" {
		t.Fatalf("unexpected capability string %q", HardPin.String())
	}
}
