// Package tracing supervises a perfetto capture running alongside a load
// window, either as a managed background child or as a detached session
// that survives this process.
package tracing

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"dvfs-bench/internal/logging"

	"github.com/sirupsen/logrus"
)

const perfettoBinary = "perfetto"

// Handle identifies a running capture. Exactly one of proc or DetachKey is
// set depending on how the capture was started.
type Handle struct {
	proc      *os.Process
	DetachKey string
	rooted    bool
}

// Rooted reports whether an su binary is available, in which case perfetto
// is invoked through it so the capture gets full trace-point access.
func Rooted() bool {
	for _, path := range []string{"/system/bin/su", "/system/xbin/su"} {
		info, err := os.Stat(path)
		if err == nil && info.Mode()&0o111 != 0 {
			return true
		}
	}
	return false
}

func buildArgs(configPath, outPath string, extra ...string) []string {
	args := []string{"--txt", "-c", configPath, "-o", outPath}
	return append(args, extra...)
}

func command(rooted bool, args []string) *exec.Cmd {
	if rooted {
		return exec.Command("su", "-c", perfettoBinary+" "+strings.Join(args, " "))
	}
	return exec.Command(perfettoBinary, args...)
}

// StartBackground launches perfetto as a child of this process. The capture
// runs until StopBackground sends it SIGTERM, which makes perfetto finalize
// the trace file.
func StartBackground(configPath, outPath string, rooted bool) (*Handle, error) {
	cmd := command(rooted, buildArgs(configPath, outPath))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start perfetto: %w", err)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"pid":    cmd.Process.Pid,
		"config": configPath,
		"output": outPath,
		"rooted": rooted,
	}).Info("Perfetto capture started")

	return &Handle{proc: cmd.Process, rooted: rooted}, nil
}

// StopBackground terminates a background capture and waits for perfetto to
// flush the trace.
func StopBackground(h *Handle) error {
	if h == nil || h.proc == nil {
		return fmt.Errorf("no background capture to stop")
	}
	if err := h.proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal perfetto: %w", err)
	}
	state, err := h.proc.Wait()
	if err != nil {
		return fmt.Errorf("failed to wait for perfetto: %w", err)
	}
	logging.GetLogger().WithField("state", state.String()).Info("Perfetto capture stopped")
	return nil
}

// StartDetached starts a capture that keeps running after this process
// exits, registered under the given session key.
func StartDetached(configPath, outPath, key string, rooted bool) (*Handle, error) {
	if key == "" {
		return nil, fmt.Errorf("detached capture needs a session key")
	}
	cmd := command(rooted, buildArgs(configPath, outPath, "--detach="+key))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to start detached perfetto: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"key":    key,
		"config": configPath,
		"output": outPath,
	}).Info("Detached perfetto capture started")

	return &Handle{DetachKey: key, rooted: rooted}, nil
}

// StopDetached reattaches to a detached session and stops it.
func StopDetached(h *Handle) error {
	if h == nil || h.DetachKey == "" {
		return fmt.Errorf("no detached capture to stop")
	}
	cmd := command(h.rooted, []string{"--attach=" + h.DetachKey, "--stop"})
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to stop detached perfetto: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	logging.GetLogger().WithField("key", h.DetachKey).Info("Detached perfetto capture stopped")
	return nil
}
