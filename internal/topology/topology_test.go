package topology

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestParseCPUListRangesAndSingles(t *testing.T) {
	got := ParseCPUList("0-3,6,9-10")
	want := []int{0, 1, 2, 3, 6, 9, 10}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCPUList = %v, want %v", got, want)
	}
}

func TestParseCPUListDeduplicatesAndSorts(t *testing.T) {
	got := ParseCPUList("4,1-2,2,0")
	want := []int{0, 1, 2, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCPUList = %v, want %v", got, want)
	}
}

func TestParseCPUListDanglingRangeClampsToLowerBound(t *testing.T) {
	got := ParseCPUList("7-")
	want := []int{7}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCPUList(\"7-\") = %v, want %v", got, want)
	}
}

func TestParseCPUListRejectsMalformedInput(t *testing.T) {
	for _, s := range []string{"", "  ", "a", "1,b", "3-1", "-2", "1,,2", "1-2-3"} {
		if got := ParseCPUList(s); got != nil {
			t.Fatalf("ParseCPUList(%q) = %v, want nil", s, got)
		}
	}
}

func TestOnlineCPUsReadsSysfs(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sys", "devices", "system", "cpu")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "online"), []byte("0-7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := OnlineCPUs(root)
	if len(got) != 8 || got[0] != 0 || got[7] != 7 {
		t.Fatalf("OnlineCPUs = %v, want 0..7", got)
	}
}

func TestOnlineCPUsMissingFile(t *testing.T) {
	if got := OnlineCPUs(t.TempDir()); got != nil {
		t.Fatalf("OnlineCPUs on empty root = %v, want nil", got)
	}
}

func TestWorkerCountClampAndFallback(t *testing.T) {
	cores := []int{0, 1, 2, 3}
	if n := WorkerCount(-1, cores); n != 4 {
		t.Fatalf("default request: got %d, want 4", n)
	}
	if n := WorkerCount(2, cores); n != 2 {
		t.Fatalf("explicit request: got %d, want 2", n)
	}
	if n := WorkerCount(16, cores); n != 4 {
		t.Fatalf("oversized request must clamp: got %d, want 4", n)
	}
	if n := WorkerCount(-1, nil); n != runtime.NumCPU() {
		t.Fatalf("fallback: got %d, want %d", n, runtime.NumCPU())
	}
	if n := WorkerCount(1, nil); n != 1 {
		t.Fatalf("fallback with request: got %d, want 1", n)
	}
	if n := WorkerCount(0, cores); n != 4 {
		t.Fatalf("zero request: got %d, want 4", n)
	}
}
