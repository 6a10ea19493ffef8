// Package config loads device profiles: the sysfs layout and frequency
// tables of the SoCs this tool knows how to drive.
package config

// CPUPolicy describes one cpufreq policy (a cluster of cores sharing a
// frequency domain) with its ascending frequency table in kHz.
type CPUPolicy struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Frequencies []int  `yaml:"frequencies"`
}

// RAMNode describes the memory-interconnect devfreq node.
type RAMNode struct {
	Path        string `yaml:"path"`
	Frequencies []int  `yaml:"frequencies"`
}

type CPUConfig struct {
	Policies []CPUPolicy `yaml:"policies"`
}

// DeviceProfile is the full hardware description for one device model.
type DeviceProfile struct {
	Device string    `yaml:"device"`
	CPU    CPUConfig `yaml:"cpu"`
	RAM    RAMNode   `yaml:"ram"`
}
