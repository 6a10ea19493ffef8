// Package run coordinates the lifecycle of one load run: topology
// discovery, frequency locking, telemetry, phase scheduling, and the worker
// pool, with a deterministic startup and shutdown order.
package run

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dvfs-bench/internal/affinity"
	"dvfs-bench/internal/load"
	"dvfs-bench/internal/logging"
	"dvfs-bench/internal/phase"
	"dvfs-bench/internal/signals"
	"dvfs-bench/internal/topology"

	"github.com/sirupsen/logrus"
)

// FrequencyLock is an acquired frequency pin that Release undoes.
type FrequencyLock interface {
	Release()
}

// FrequencyController acquires a frequency pin for the run. A negative
// clock index skips the corresponding domain; both negative yields a nil
// lock with no error.
type FrequencyController interface {
	Lock(cpuClock, ramClock int) (FrequencyLock, error)
}

// Recorder observes hardware state for the whole load window. Start spawns
// the sampling goroutine; it keeps running until the shutdown flag is set
// and Join blocks until everything is flushed.
type Recorder interface {
	Start(shutdown *signals.Flag) error
	Join()
}

// Config describes one load run.
type Config struct {
	Threads  int           // requested workers; <=0 means one per online core
	Duration time.Duration // total run length; 0 means run until interrupted
	Active   phase.Phase
	Idle     phase.Phase
	Pin      bool
	CPUClock int
	RAMClock int
	SysRoot  string // filesystem root for topology discovery, "/" in production
}

// Engine owns the run's control flags and goroutines. The intervals are
// fields so tests can shrink them; New sets the production values.
type Engine struct {
	cfg  Config
	freq FrequencyController
	rec  Recorder

	stopUser    signals.Flag // user interrupt (SIGINT/SIGTERM or RequestStop)
	stopTimer   signals.Flag // duration watchdog
	active      signals.Flag // phase gate shared with the workers
	recShutdown signals.Flag // recorder shutdown, set only after workers joined

	pollInterval time.Duration
	stabilize    time.Duration
	grace        time.Duration
	schedTick    time.Duration
}

func New(cfg Config, freq FrequencyController, rec Recorder) *Engine {
	if cfg.SysRoot == "" {
		cfg.SysRoot = "/"
	}
	return &Engine{
		cfg:          cfg,
		freq:         freq,
		rec:          rec,
		pollInterval: 500 * time.Millisecond,
		stabilize:    50 * time.Millisecond,
		grace:        time.Second,
	}
}

// RequestStop triggers the same path as a user interrupt.
func (e *Engine) RequestStop() {
	e.stopUser.Set()
}

// Run executes the load window and blocks until everything is torn down.
// Shutdown order matters: workers join before the recorder's shutdown flag
// is set, so the telemetry window always covers the full load window, and
// the frequency lock is released only after the load is gone.
func (e *Engine) Run() error {
	logger := logging.GetLogger()

	cores := topology.OnlineCPUs(e.cfg.SysRoot)
	workers := topology.WorkerCount(e.cfg.Threads, cores)
	logger.WithFields(logrus.Fields{
		"online_cores": cores,
		"workers":      workers,
		"pinning":      e.cfg.Pin,
	}).Info("Resolved core topology")

	if err := affinity.RaisePriority(); err != nil {
		logger.WithError(err).Debug("Could not raise process priority")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			logger.Info("Interrupt received, stopping run")
			e.stopUser.Set()
		}
	}()

	if e.cfg.Duration > 0 {
		go func() {
			time.Sleep(e.cfg.Duration)
			e.stopTimer.Set()
		}()
	}

	var lock FrequencyLock
	if e.freq != nil {
		var err error
		lock, err = e.freq.Lock(e.cfg.CPUClock, e.cfg.RAMClock)
		if err != nil {
			logger.WithError(err).Warn("Failed to lock frequencies, running unlocked")
			lock = nil
		}
	}

	if e.rec != nil {
		if err := e.rec.Start(&e.recShutdown); err != nil {
			if lock != nil {
				lock.Release()
			}
			return fmt.Errorf("failed to start recorder: %w", err)
		}
	}

	// Let the frequency pin and the recorder's first sample settle before
	// load hits the cores.
	time.Sleep(e.stabilize)

	scheduler := phase.NewScheduler(e.cfg.Active, e.cfg.Idle)
	if e.schedTick > 0 {
		scheduler.Tick = e.schedTick
	}
	var schedWG sync.WaitGroup
	schedWG.Add(1)
	go func() {
		defer schedWG.Done()
		scheduler.Run(&e.active, &e.stopUser, &e.stopTimer)
	}()

	binder := affinity.ForPlatform()
	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &load.Worker{Index: i, Cores: cores, Binder: binder, Pin: e.cfg.Pin}
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			w.Run(&e.active, &e.stopUser, &e.stopTimer)
		}()
	}
	logger.WithField("workers", workers).Info("Load workers started")

	for !signals.AnySet(&e.stopUser, &e.stopTimer) {
		time.Sleep(e.pollInterval)
	}

	// Both stop flags are raised so every goroutine sees the stop no
	// matter which one fired first.
	e.stopTimer.Set()

	workerWG.Wait()
	logger.Info("Load workers joined")

	e.recShutdown.Set()

	if lock != nil {
		lock.Release()
	}

	schedWG.Wait()

	if e.rec != nil {
		e.rec.Join()
	}

	// Grace delay so trailing sysfs writes and external observers settle
	// before the process exits.
	time.Sleep(e.grace)
	logger.Info("Run complete")
	return nil
}
