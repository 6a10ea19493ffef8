package recorder

import (
	"fmt"
	"time"

	"dvfs-bench/internal/logging"

	"github.com/elastic/go-perf"
)

type eventState struct {
	value   uint64
	enabled time.Duration
	running time.Duration
}

// perfReader samples system-wide cycle and instruction counts, one event
// per online CPU per counter, with multiplexing correction applied to the
// per-interval deltas.
type perfReader struct {
	events    []*perf.Event
	lastState map[int]*eventState
}

func newPerfReader(cpus []int) (*perfReader, error) {
	logger := logging.GetLogger()

	pr := &perfReader{lastState: make(map[int]*eventState)}

	hardwareCounters := []perf.HardwareCounter{
		perf.CPUCycles,
		perf.Instructions,
	}

	for _, cpu := range cpus {
		for _, counter := range hardwareCounters {
			attr := &perf.Attr{}
			counter.Configure(attr)
			// Enable time tracking for multiplexing correction
			attr.CountFormat.Enabled = true
			attr.CountFormat.Running = true
			event, err := perf.Open(attr, perf.AllThreads, cpu, nil)
			if err != nil {
				pr.Close()
				logger.WithFields(map[string]interface{}{
					"counter": counter,
					"cpu":     cpu,
				}).WithError(err).Warn("Failed to open perf event")
				return nil, err
			}
			pr.events = append(pr.events, event)
		}
	}

	for _, event := range pr.events {
		if err := event.Enable(); err != nil {
			pr.Close()
			return nil, fmt.Errorf("failed to enable perf event: %w", err)
		}
	}

	return pr, nil
}

// collect folds the per-CPU deltas since the previous call into the sample.
func (pr *perfReader) collect(sample *Sample) {
	counterSums := make(map[string]uint64)

	for i, event := range pr.events {
		count, err := event.ReadCount()
		if err != nil {
			continue
		}

		currentValue := uint64(count.Value)
		currentEnabled := count.Enabled
		currentRunning := count.Running

		if lastState, exists := pr.lastState[i]; exists {
			deltaValue := currentValue - lastState.value
			deltaEnabled := currentEnabled - lastState.enabled
			deltaRunning := currentRunning - lastState.running

			scaledDelta := deltaValue
			if deltaRunning > 0 && deltaEnabled > 0 && deltaRunning != deltaEnabled {
				scaleFactor := float64(deltaEnabled) / float64(deltaRunning)
				scaledDelta = uint64(float64(deltaValue) * scaleFactor)
			}

			counterSums[count.Label] += scaledDelta
		}

		pr.lastState[i] = &eventState{
			value:   currentValue,
			enabled: currentEnabled,
			running: currentRunning,
		}
	}

	sample.Cycles = counterSums["cpu-cycles"]
	sample.Instructions = counterSums["instructions"]
}

func (pr *perfReader) Close() {
	for _, event := range pr.events {
		if event != nil {
			event.Close()
		}
	}
	pr.events = nil
}
