package load

import (
	"runtime"
	"time"

	"dvfs-bench/internal/affinity"
	"dvfs-bench/internal/logging"
	"dvfs-bench/internal/signals"

	"github.com/sirupsen/logrus"
)

// idlePoll is how often an idle worker re-checks the active flag.
const idlePoll = 50 * time.Millisecond

// Worker runs the compute kernel on one OS thread. When pinning is enabled
// it binds to cores[Index mod len(Cores)] before entering the loop; a bind
// failure is logged and the worker runs unpinned.
type Worker struct {
	Index  int
	Cores  []int
	Binder affinity.Binder
	Pin    bool
}

// Run drives the kernel until any stop flag fires. The active flag gates
// the load: while clear the worker sleeps in short polls, while set it runs
// kernel chunks back to back. Flags are only inspected between chunks, so
// stop latency is bounded by one chunk plus one idle poll.
func (w *Worker) Run(active *signals.Flag, stops ...*signals.Flag) {
	logger := logging.GetLogger()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.Pin && len(w.Cores) > 0 && w.Binder != nil {
		core := w.Cores[w.Index%len(w.Cores)]
		if err := w.Binder.Bind(core); err != nil {
			logger.WithFields(logrus.Fields{
				"worker": w.Index,
				"core":   core,
			}).WithError(err).Warn("Failed to bind worker thread, continuing unpinned")
		} else {
			logger.WithFields(logrus.Fields{
				"worker":     w.Index,
				"core":       core,
				"capability": w.Binder.Capability().String(),
			}).Debug("Bound worker thread")
		}
	}

	kernel := NewKernel()
	for !signals.AnySet(stops...) {
		if active.IsSet() {
			kernel.Chunk()
		} else {
			time.Sleep(idlePoll)
		}
	}
}
