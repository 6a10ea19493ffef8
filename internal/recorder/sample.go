package recorder

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dvfs-bench/internal/config"
)

// Sample is one hardware state observation.
type Sample struct {
	Timestamp    time.Time      `json:"timestamp"`
	ElapsedMS    int64          `json:"elapsed_ms"`
	CPUFreqKHz   map[string]int `json:"cpu_freq_khz"`
	RAMFreqKHz   int            `json:"ram_freq_khz,omitempty"`
	TempMilliC   map[string]int `json:"temp_milli_c,omitempty"`
	Cycles       uint64         `json:"cycles,omitempty"`
	Instructions uint64         `json:"instructions,omitempty"`
}

// readSysfsInt reads a single integer value from a sysfs file; -1 on any
// failure so absent sensors do not abort sampling.
func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1
	}
	return v
}

// readCPUFrequencies reads scaling_cur_freq for every policy in the profile.
func readCPUFrequencies(root string, profile *config.DeviceProfile) map[string]int {
	freqs := make(map[string]int, len(profile.CPU.Policies))
	for _, policy := range profile.CPU.Policies {
		freqs[policy.Name] = readSysfsInt(filepath.Join(root, policy.Path, "scaling_cur_freq"))
	}
	return freqs
}

// readRAMFrequency reads the devfreq node's current frequency, -1 when the
// profile has no RAM node or the read fails.
func readRAMFrequency(root string, profile *config.DeviceProfile) int {
	if profile.RAM.Path == "" {
		return -1
	}
	return readSysfsInt(filepath.Join(root, profile.RAM.Path, "cur_freq"))
}

// readThermalZones reads every thermal zone's temperature in millidegrees,
// keyed by the zone's type string (falling back to the directory name).
func readThermalZones(root string) map[string]int {
	zones, err := filepath.Glob(filepath.Join(root, "sys/class/thermal/thermal_zone*"))
	if err != nil || len(zones) == 0 {
		return nil
	}

	temps := make(map[string]int)
	for _, zone := range zones {
		temp := readSysfsInt(filepath.Join(zone, "temp"))
		if temp < 0 {
			continue
		}
		name := filepath.Base(zone)
		if data, err := os.ReadFile(filepath.Join(zone, "type")); err == nil {
			if t := strings.TrimSpace(string(data)); t != "" {
				name = t
			}
		}
		temps[name] = temp
	}
	if len(temps) == 0 {
		return nil
	}
	return temps
}
