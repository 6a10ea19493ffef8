// Package topology discovers the set of online CPU cores and derives how
// many load workers a run should spawn.
package topology

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"dvfs-bench/internal/logging"
)

const onlinePath = "sys/devices/system/cpu/online"

// ParseCPUList parses a kernel CPU list descriptor like "0-3,6,9-10" into a
// sorted, de-duplicated slice of core ids. A dangling range such as "7-"
// clamps to its lower bound. Any malformed token or a range whose start
// exceeds its end makes the whole descriptor invalid and returns nil.
func ParseCPUList(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	seen := make(map[int]bool)
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil
		}
		if idx := strings.Index(token, "-"); idx >= 0 {
			start, err := strconv.Atoi(strings.TrimSpace(token[:idx]))
			if err != nil || start < 0 {
				return nil
			}
			rest := strings.TrimSpace(token[idx+1:])
			end := start
			if rest != "" {
				end, err = strconv.Atoi(rest)
				if err != nil {
					return nil
				}
			}
			if end < start {
				return nil
			}
			for cpu := start; cpu <= end; cpu++ {
				seen[cpu] = true
			}
		} else {
			cpu, err := strconv.Atoi(token)
			if err != nil || cpu < 0 {
				return nil
			}
			seen[cpu] = true
		}
	}

	cores := make([]int, 0, len(seen))
	for cpu := range seen {
		cores = append(cores, cpu)
	}
	sort.Ints(cores)
	return cores
}

// OnlineCPUs reads the kernel's online-CPU descriptor under root and returns
// the core ids, or nil when the file is absent or unparseable.
func OnlineCPUs(root string) []int {
	data, err := os.ReadFile(filepath.Join(root, onlinePath))
	if err != nil {
		logging.GetLogger().WithError(err).Debug("Online CPU descriptor not readable")
		return nil
	}
	return ParseCPUList(string(data))
}

// WorkerCount resolves the number of load workers for a run. A
// non-positive request means "one per discovered core"; an explicit request
// is clamped to the discovered core count. Without topology the fallback is
// runtime.NumCPU, never less than one worker.
func WorkerCount(requested int, cores []int) int {
	if len(cores) == 0 {
		n := runtime.NumCPU()
		if requested > 0 && requested < n {
			n = requested
		}
		if n < 1 {
			n = 1
		}
		return n
	}
	if requested <= 0 || requested > len(cores) {
		return len(cores)
	}
	return requested
}
