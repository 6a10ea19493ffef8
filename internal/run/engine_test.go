package run

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"dvfs-bench/internal/phase"
	"dvfs-bench/internal/signals"
)

// eventLog records the order of collaborator calls across goroutines.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeLock struct {
	log *eventLog
}

func (f *fakeLock) Release() {
	f.log.add("release")
}

type fakeController struct {
	log     *eventLog
	failErr error
}

func (f *fakeController) Lock(cpuClock, ramClock int) (FrequencyLock, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.log.add("lock")
	return &fakeLock{log: f.log}, nil
}

type fakeRecorder struct {
	log      *eventLog
	startErr error
	shutdown *signals.Flag
	flagSet  bool
}

func (f *fakeRecorder) Start(shutdown *signals.Flag) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.shutdown = shutdown
	f.log.add("rec-start")
	return nil
}

func (f *fakeRecorder) Join() {
	f.flagSet = f.shutdown.IsSet()
	f.log.add("rec-join")
}

func fastEngine(cfg Config, freq FrequencyController, rec Recorder) *Engine {
	e := New(cfg, freq, rec)
	e.pollInterval = 2 * time.Millisecond
	e.stabilize = time.Millisecond
	e.grace = 0
	e.schedTick = 2 * time.Millisecond
	return e
}

func baseConfig() Config {
	return Config{
		Threads:  1,
		Active:   phase.Phase{Name: "BURST", Duration: 10 * time.Millisecond},
		Idle:     phase.Phase{Name: "PAUSE", Duration: 10 * time.Millisecond},
		CPUClock: 2,
		RAMClock: 1,
		SysRoot:  "/nonexistent-sysroot", // no topology file: NumCPU fallback
	}
}

func TestRunShutdownOrdering(t *testing.T) {
	log := &eventLog{}
	ctrl := &fakeController{log: log}
	rec := &fakeRecorder{log: log}

	cfg := baseConfig()
	cfg.Duration = 30 * time.Millisecond
	e := fastEngine(cfg, ctrl, rec)

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not finish")
	}

	want := []string{"lock", "rec-start", "release", "rec-join"}
	got := log.snapshot()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("event order = %v, want %v", got, want)
	}
	if !rec.flagSet {
		t.Fatalf("recorder shutdown flag must be set before Join")
	}
}

func TestRunStopsOnRequestStop(t *testing.T) {
	log := &eventLog{}
	rec := &fakeRecorder{log: log}

	cfg := baseConfig()
	cfg.Duration = 0 // no watchdog: only the explicit stop ends the run
	e := fastEngine(cfg, &fakeController{log: log}, rec)

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	time.Sleep(20 * time.Millisecond)
	e.RequestStop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("RequestStop did not end the run")
	}
}

func TestRunContinuesUnlockedOnLockFailure(t *testing.T) {
	log := &eventLog{}
	ctrl := &fakeController{log: log, failErr: fmt.Errorf("sysfs not writable")}
	rec := &fakeRecorder{log: log}

	cfg := baseConfig()
	cfg.Duration = 20 * time.Millisecond
	e := fastEngine(cfg, ctrl, rec)

	if err := e.Run(); err != nil {
		t.Fatalf("lock failure must not fail the run: %v", err)
	}
	got := log.snapshot()
	if fmt.Sprint(got) != fmt.Sprint([]string{"rec-start", "rec-join"}) {
		t.Fatalf("event order = %v", got)
	}
}

func TestRunFailsWhenRecorderFailsAndReleasesLock(t *testing.T) {
	log := &eventLog{}
	ctrl := &fakeController{log: log}
	rec := &fakeRecorder{log: log, startErr: fmt.Errorf("output dir unwritable")}

	cfg := baseConfig()
	cfg.Duration = 20 * time.Millisecond
	e := fastEngine(cfg, ctrl, rec)

	if err := e.Run(); err == nil {
		t.Fatalf("recorder start failure must fail the run")
	}
	got := log.snapshot()
	if fmt.Sprint(got) != fmt.Sprint([]string{"lock", "release"}) {
		t.Fatalf("lock must be released on recorder failure, events = %v", got)
	}
}
