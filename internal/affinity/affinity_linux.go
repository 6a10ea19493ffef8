//go:build linux

package affinity

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// cpuSetSize mirrors glibc's CPU_SETSIZE (bits in a cpu_set_t), which
// golang.org/x/sys/unix does not export.
const cpuSetSize = int(unsafe.Sizeof(unix.CPUSet{}) * 8)

type pinBinder struct{}

func platformBinder() Binder {
	return pinBinder{}
}

// Bind restricts the calling thread to the given core via sched_setaffinity
// on tid 0 (the caller). The caller must have locked its OS thread.
func (pinBinder) Bind(core int) error {
	if core < 0 || core >= cpuSetSize {
		return fmt.Errorf("core %d outside affinity mask range [0, %d)", core, cpuSetSize)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity(core=%d): %w", core, err)
	}
	return nil
}

func (pinBinder) Capability() Capability {
	return HardPin
}

// RaisePriority lowers the process nice value so the load workers are less
// likely to be descheduled under contention. Requires privilege; callers
// treat failure as advisory.
func RaisePriority() error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -5); err != nil {
		return fmt.Errorf("setpriority: %w", err)
	}
	return nil
}
