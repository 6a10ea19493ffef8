package load

import (
	"math"
	"sync"
	"testing"
	"time"

	"dvfs-bench/internal/signals"
)

func TestKernelStateStaysFinite(t *testing.T) {
	k := NewKernel()
	for i := 0; i < 5; i++ {
		k.Chunk()
	}
	for name, v := range map[string]float64{"v0": k.v0, "v1": k.v1, "v2": k.v2, "v3": k.v3} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
			t.Fatalf("stream %s degenerated to %v", name, v)
		}
	}
	if k.rng == 123456789 {
		t.Fatalf("rng did not advance")
	}
}

func TestKernelChunksAdvanceState(t *testing.T) {
	k := NewKernel()
	k.Chunk()
	first := *k
	k.Chunk()
	if *k == first {
		t.Fatalf("second chunk left kernel state unchanged")
	}
}

func joinWithin(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("worker did not stop within %v", d)
	}
}

func TestWorkerStopsWhileActive(t *testing.T) {
	var active, stop signals.Flag
	active.Set()

	w := &Worker{Index: 0, Pin: false}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(&active, &stop)
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Set()
	joinWithin(t, &wg, 5*time.Second)
}

func TestWorkerStopsWhileIdle(t *testing.T) {
	var active, stopUser, stopTimer signals.Flag

	w := &Worker{Index: 0, Pin: false}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(&active, &stopUser, &stopTimer)
	}()

	time.Sleep(20 * time.Millisecond)
	stopTimer.Set()
	joinWithin(t, &wg, time.Second)
}
