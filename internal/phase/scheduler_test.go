package phase

import (
	"sync"
	"testing"
	"time"

	"dvfs-bench/internal/signals"
)

func startScheduler(s *Scheduler, active *signals.Flag, stops ...*signals.Flag) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(active, stops...)
	}()
	return &wg
}

func waitFlag(t *testing.T, f *signals.Flag, want bool, d time.Duration) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if f.IsSet() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("flag did not become %v within %v", want, d)
}

func TestSchedulerStartsWithActivePhase(t *testing.T) {
	var active, stop signals.Flag
	s := NewScheduler(
		Phase{Name: "BURST", Duration: 200 * time.Millisecond},
		Phase{Name: "PAUSE", Duration: 200 * time.Millisecond},
	)
	s.Tick = 5 * time.Millisecond

	wg := startScheduler(s, &active, &stop)
	waitFlag(t, &active, true, time.Second)

	stop.Set()
	wg.Wait()
	if active.IsSet() {
		t.Fatalf("active flag must be cleared after Run returns")
	}
}

func TestSchedulerAlternates(t *testing.T) {
	var active, stop signals.Flag
	s := NewScheduler(
		Phase{Name: "BURST", Duration: 30 * time.Millisecond},
		Phase{Name: "PAUSE", Duration: 30 * time.Millisecond},
	)
	s.Tick = 5 * time.Millisecond

	wg := startScheduler(s, &active, &stop)
	waitFlag(t, &active, true, time.Second)  // first active leg
	waitFlag(t, &active, false, time.Second) // idle leg
	waitFlag(t, &active, true, time.Second)  // second active leg

	stop.Set()
	wg.Wait()
}

func TestSchedulerZeroDurationPhaseDoesNotHang(t *testing.T) {
	var active, stop signals.Flag
	s := NewScheduler(
		Phase{Name: "BURST", Duration: 20 * time.Millisecond},
		Phase{Name: "PAUSE", Duration: 0},
	)
	s.Tick = 5 * time.Millisecond

	wg := startScheduler(s, &active, &stop)
	time.Sleep(60 * time.Millisecond)
	stop.Set()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("scheduler did not stop")
	}
}

func TestSchedulerStopCutsWaitShort(t *testing.T) {
	var active, stopUser, stopTimer signals.Flag
	s := NewScheduler(
		Phase{Name: "BURST", Duration: time.Hour},
		Phase{Name: "PAUSE", Duration: time.Hour},
	)
	s.Tick = 5 * time.Millisecond

	wg := startScheduler(s, &active, &stopUser, &stopTimer)
	waitFlag(t, &active, true, time.Second)
	stopTimer.Set()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop flag did not cut the phase wait short")
	}
	if active.IsSet() {
		t.Fatalf("active flag must be cleared after stop")
	}
}
