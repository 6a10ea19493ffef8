package dvfs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"dvfs-bench/internal/config"
)

func testProfile() *config.DeviceProfile {
	return &config.DeviceProfile{
		Device: "TestBoard",
		CPU: config.CPUConfig{
			Policies: []config.CPUPolicy{
				{Name: "little", Path: "sys/cpufreq/policy0", Frequencies: []int{100000, 200000, 300000}},
				{Name: "big", Path: "sys/cpufreq/policy4", Frequencies: []int{500000, 900000}},
			},
		},
		RAM: config.RAMNode{Path: "sys/devfreq/mif", Frequencies: []int{400000, 800000}},
	}
}

func writeNode(t *testing.T, root, dir, minFile, maxFile, min, max string) {
	t.Helper()
	full := filepath.Join(root, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(full, minFile), []byte(min), 0o644); err != nil {
		t.Fatalf("write min: %v", err)
	}
	if err := os.WriteFile(filepath.Join(full, maxFile), []byte(max), 0o644); err != nil {
		t.Fatalf("write max: %v", err)
	}
}

func readNode(t *testing.T, root, dir, file string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, dir, file))
	if err != nil {
		t.Fatalf("read %s/%s: %v", dir, file, err)
	}
	return string(data)
}

func testRoot(t *testing.T) string {
	root := t.TempDir()
	writeNode(t, root, "sys/cpufreq/policy0", "scaling_min_freq", "scaling_max_freq", "100000\n", "300000\n")
	writeNode(t, root, "sys/cpufreq/policy4", "scaling_min_freq", "scaling_max_freq", "500000\n", "900000\n")
	writeNode(t, root, "sys/devfreq/mif", "min_freq", "max_freq", "400000\n", "800000\n")
	return root
}

func TestCandidateFrequenciesClampPerPolicy(t *testing.T) {
	c := NewController(testProfile(), t.TempDir())
	if got := c.CandidateFrequencies(-1); got != nil {
		t.Fatalf("negative index must yield nil, got %v", got)
	}
	if got, want := c.CandidateFrequencies(1), []int{200000, 900000}; !reflect.DeepEqual(got, want) {
		t.Fatalf("index 1 = %v, want %v", got, want)
	}
	// Beyond both tables: each policy clamps to its own top entry.
	if got, want := c.CandidateFrequencies(10), []int{300000, 900000}; !reflect.DeepEqual(got, want) {
		t.Fatalf("index 10 = %v, want %v", got, want)
	}
}

func TestLockPinsAndReleaseRestores(t *testing.T) {
	root := testRoot(t)
	c := NewController(testProfile(), root)

	lock, err := c.Lock(1, 0)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if lock == nil {
		t.Fatalf("Lock returned nil lock")
	}

	if got := readNode(t, root, "sys/cpufreq/policy0", "scaling_min_freq"); got != "200000" {
		t.Fatalf("policy0 min = %q, want 200000", got)
	}
	if got := readNode(t, root, "sys/cpufreq/policy0", "scaling_max_freq"); got != "200000" {
		t.Fatalf("policy0 max = %q, want 200000", got)
	}
	if got := readNode(t, root, "sys/devfreq/mif", "max_freq"); got != "400000" {
		t.Fatalf("ram max = %q, want 400000", got)
	}

	lock.Release()

	if got := readNode(t, root, "sys/cpufreq/policy0", "scaling_min_freq"); got != "100000" {
		t.Fatalf("policy0 min not restored: %q", got)
	}
	if got := readNode(t, root, "sys/cpufreq/policy0", "scaling_max_freq"); got != "300000" {
		t.Fatalf("policy0 max not restored: %q", got)
	}
	if got := readNode(t, root, "sys/devfreq/mif", "min_freq"); got != "400000" {
		t.Fatalf("ram min not restored: %q", got)
	}
}

func TestLockRollsBackOnPartialFailure(t *testing.T) {
	root := t.TempDir()
	// Only policy0 exists; pinning policy4 must fail and roll policy0 back.
	writeNode(t, root, "sys/cpufreq/policy0", "scaling_min_freq", "scaling_max_freq", "100000\n", "300000\n")
	c := NewController(testProfile(), root)

	lock, err := c.Lock(0, -1)
	if err == nil {
		lock.Release()
		t.Fatalf("Lock must fail when a policy node is missing")
	}

	if got := readNode(t, root, "sys/cpufreq/policy0", "scaling_min_freq"); got != "100000" {
		t.Fatalf("policy0 min not rolled back: %q", got)
	}
	if got := readNode(t, root, "sys/cpufreq/policy0", "scaling_max_freq"); got != "300000" {
		t.Fatalf("policy0 max not rolled back: %q", got)
	}
}

func TestLockSkippedWhenBothClocksNegative(t *testing.T) {
	c := NewController(testProfile(), t.TempDir())
	lock, err := c.Lock(-1, -1)
	if err != nil {
		t.Fatalf("Lock(-1,-1): %v", err)
	}
	if lock != nil {
		t.Fatalf("Lock(-1,-1) must return a nil lock")
	}
	lock.Release() // nil receiver must be safe
}

func TestLockCPUOnlyLeavesRAMAlone(t *testing.T) {
	root := testRoot(t)
	c := NewController(testProfile(), root)

	lock, err := c.Lock(0, -1)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer lock.Release()

	if got := readNode(t, root, "sys/devfreq/mif", "min_freq"); got != "400000\n" {
		t.Fatalf("ram node touched: %q", got)
	}
}
