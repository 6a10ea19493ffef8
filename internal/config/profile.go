package config

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"dvfs-bench/internal/logging"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtinProfiles embed.FS

var builtinNames = map[string]string{
	"pixel9": "profiles/pixel9.yaml",
	"s24":    "profiles/s24.yaml",
}

// BuiltinProfiles returns the names of the embedded device profiles.
func BuiltinProfiles() []string {
	names := make([]string, 0, len(builtinNames))
	for name := range builtinNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDeviceProfile resolves a profile either from an explicit YAML path or
// from the embedded set by device name (case-insensitive). The path, when
// given, wins over the name.
func LoadDeviceProfile(name, path string) (*DeviceProfile, error) {
	logger := logging.GetLogger()

	var data []byte
	var err error
	switch {
	case path != "":
		data, err = os.ReadFile(path)
		if err != nil {
			logger.WithField("filepath", path).WithError(err).Error("Failed to read device profile")
			return nil, err
		}
	default:
		file, ok := builtinNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown device %q (built-in: %s)", name, strings.Join(BuiltinProfiles(), ", "))
		}
		data, err = builtinProfiles.ReadFile(file)
		if err != nil {
			return nil, err
		}
	}

	expanded := expandEnvVars(string(data))

	var profile DeviceProfile
	if err := yaml.Unmarshal([]byte(expanded), &profile); err != nil {
		logger.WithError(err).Error("Failed to parse device profile")
		return nil, err
	}

	if err := validateProfile(&profile); err != nil {
		return nil, fmt.Errorf("invalid device profile: %w", err)
	}

	return &profile, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func validateProfile(profile *DeviceProfile) error {
	if profile.Device == "" {
		return fmt.Errorf("device name is required")
	}

	if len(profile.CPU.Policies) == 0 {
		return fmt.Errorf("at least one CPU policy must be defined")
	}

	paths := make(map[string]bool)
	for _, policy := range profile.CPU.Policies {
		if policy.Name == "" {
			return fmt.Errorf("policy name is required")
		}
		if policy.Path == "" {
			return fmt.Errorf("policy %s: path is required", policy.Name)
		}
		if paths[policy.Path] {
			return fmt.Errorf("policy %s: path %s is already used", policy.Name, policy.Path)
		}
		paths[policy.Path] = true

		if len(policy.Frequencies) == 0 {
			return fmt.Errorf("policy %s: frequency table is empty", policy.Name)
		}
		for i := 1; i < len(policy.Frequencies); i++ {
			if policy.Frequencies[i] <= policy.Frequencies[i-1] {
				return fmt.Errorf("policy %s: frequency table must be strictly ascending", policy.Name)
			}
		}
	}

	if profile.RAM.Path != "" && len(profile.RAM.Frequencies) == 0 {
		return fmt.Errorf("ram: frequency table is empty")
	}

	return nil
}
