// Package phase alternates the worker pool between an active and an idle
// phase by toggling the shared activity flag.
package phase

import (
	"time"

	"dvfs-bench/internal/logging"
	"dvfs-bench/internal/signals"

	"github.com/sirupsen/logrus"
)

// Phase is one leg of the load pattern.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Scheduler alternates Active and Idle phases, always starting with Active,
// until a stop flag fires. Tick is the wait granularity between stop-flag
// checks; it defaults to one second so a cancelled run never overshoots a
// phase boundary by more than that.
type Scheduler struct {
	Active Phase
	Idle   Phase
	Tick   time.Duration
}

func NewScheduler(active, idle Phase) *Scheduler {
	return &Scheduler{Active: active, Idle: idle, Tick: time.Second}
}

// Run toggles the active flag through alternating phases. The flag is set
// for the whole active leg and cleared for the whole idle leg; workers poll
// it on their own schedule. Run returns once a stop flag is observed,
// clearing the active flag on the way out.
func (s *Scheduler) Run(active *signals.Flag, stops ...*signals.Flag) {
	defer active.Clear()

	for {
		s.enter(s.Active)
		active.Set()
		s.wait(s.Active.Duration, stops)
		active.Clear()
		if signals.AnySet(stops...) {
			return
		}

		s.enter(s.Idle)
		s.wait(s.Idle.Duration, stops)
		if signals.AnySet(stops...) {
			return
		}
	}
}

func (s *Scheduler) enter(p Phase) {
	logging.GetLogger().WithFields(logrus.Fields{
		"phase":   p.Name,
		"seconds": p.Duration.Seconds(),
	}).Info("Entering phase")
}

// wait sleeps for d in tick-sized slices, bailing out as soon as any stop
// flag is set. A zero duration returns without sleeping.
func (s *Scheduler) wait(d time.Duration, stops []*signals.Flag) {
	tick := s.Tick
	if tick <= 0 {
		tick = time.Second
	}
	for remaining := d; remaining > 0; remaining -= tick {
		if signals.AnySet(stops...) {
			return
		}
		step := tick
		if remaining < step {
			step = remaining
		}
		time.Sleep(step)
	}
}
