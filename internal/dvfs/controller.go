// Package dvfs pins CPU and RAM clocks through sysfs so a load run executes
// at a known frequency point instead of wherever the governor wanders.
package dvfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dvfs-bench/internal/config"
	"dvfs-bench/internal/logging"

	"github.com/sirupsen/logrus"
)

const (
	cpuMinFile = "scaling_min_freq"
	cpuMaxFile = "scaling_max_freq"
	ramMinFile = "min_freq"
	ramMaxFile = "max_freq"
)

// Controller translates clock indices from the device profile into sysfs
// min/max writes. All paths are resolved under root so tests can run
// against a synthetic sysfs tree.
type Controller struct {
	profile *config.DeviceProfile
	root    string
}

func NewController(profile *config.DeviceProfile, root string) *Controller {
	return &Controller{profile: profile, root: root}
}

// CandidateFrequencies maps a clock index to one frequency per CPU policy.
// The index is clamped to each policy's table, so a high index selects each
// cluster's fastest point. A negative index means "leave the governor
// alone" and yields nil.
func (c *Controller) CandidateFrequencies(idx int) []int {
	if idx < 0 {
		return nil
	}
	freqs := make([]int, 0, len(c.profile.CPU.Policies))
	for _, policy := range c.profile.CPU.Policies {
		freqs = append(freqs, clampIndex(policy.Frequencies, idx))
	}
	return freqs
}

func clampIndex(table []int, idx int) int {
	if idx >= len(table) {
		idx = len(table) - 1
	}
	return table[idx]
}

// savedRange remembers one sysfs node's pre-lock min/max for restoration.
type savedRange struct {
	dir     string
	minFile string
	maxFile string
	min     string
	max     string
}

// FrequencyLock holds the saved pre-lock state of every node the Lock call
// touched. Release restores them; it is best-effort since the run is over
// either way.
type FrequencyLock struct {
	ctrl  *Controller
	saved []savedRange
}

// Lock pins the CPU policies to the cpuClock index and the RAM devfreq node
// to the ramClock index (either may be negative to skip). On any write
// failure the already-pinned nodes are rolled back and an error returned.
// Both indices negative returns a nil lock and no error.
func (c *Controller) Lock(cpuClock, ramClock int) (*FrequencyLock, error) {
	if cpuClock < 0 && ramClock < 0 {
		return nil, nil
	}

	logger := logging.GetLogger()
	lock := &FrequencyLock{ctrl: c}

	if cpuClock >= 0 {
		for _, policy := range c.profile.CPU.Policies {
			freq := clampIndex(policy.Frequencies, cpuClock)
			if err := lock.pin(policy.Path, cpuMinFile, cpuMaxFile, freq); err != nil {
				lock.Release()
				return nil, fmt.Errorf("policy %s: %w", policy.Name, err)
			}
			logger.WithFields(logrus.Fields{
				"policy":   policy.Name,
				"freq_khz": freq,
			}).Info("Pinned CPU policy frequency")
		}
	}

	if ramClock >= 0 && c.profile.RAM.Path != "" {
		freq := clampIndex(c.profile.RAM.Frequencies, ramClock)
		if err := lock.pin(c.profile.RAM.Path, ramMinFile, ramMaxFile, freq); err != nil {
			lock.Release()
			return nil, fmt.Errorf("ram node: %w", err)
		}
		logger.WithField("freq_khz", freq).Info("Pinned RAM frequency")
	}

	return lock, nil
}

// pin saves the node's current range, then writes max before min so the
// transient range never inverts.
func (l *FrequencyLock) pin(nodePath, minFile, maxFile string, freq int) error {
	dir := filepath.Join(l.ctrl.root, nodePath)

	prevMin, err := readSysfs(filepath.Join(dir, minFile))
	if err != nil {
		return err
	}
	prevMax, err := readSysfs(filepath.Join(dir, maxFile))
	if err != nil {
		return err
	}

	value := strconv.Itoa(freq)
	if err := writeSysfs(filepath.Join(dir, maxFile), value); err != nil {
		return err
	}
	if err := writeSysfs(filepath.Join(dir, minFile), value); err != nil {
		// Undo the max write before reporting; Release will not know
		// about this node.
		if werr := writeSysfs(filepath.Join(dir, maxFile), prevMax); werr != nil {
			logging.GetLogger().WithField("dir", dir).WithError(werr).Warn("Failed to roll back max frequency")
		}
		return err
	}

	l.saved = append(l.saved, savedRange{
		dir:     dir,
		minFile: minFile,
		maxFile: maxFile,
		min:     prevMin,
		max:     prevMax,
	})
	return nil
}

// Release restores every saved node's min/max range, min before max so the
// transient range never inverts. Failures are logged and skipped.
func (l *FrequencyLock) Release() {
	if l == nil {
		return
	}
	logger := logging.GetLogger()
	for i := len(l.saved) - 1; i >= 0; i-- {
		s := l.saved[i]
		if err := writeSysfs(filepath.Join(s.dir, s.minFile), s.min); err != nil {
			logger.WithField("dir", s.dir).WithError(err).Warn("Failed to restore min frequency")
		}
		if err := writeSysfs(filepath.Join(s.dir, s.maxFile), s.max); err != nil {
			logger.WithField("dir", s.dir).WithError(err).Warn("Failed to restore max frequency")
		}
	}
	l.saved = nil
}

func readSysfs(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func writeSysfs(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
