package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dvfs-bench/internal/config"
	"dvfs-bench/internal/dvfs"
	"dvfs-bench/internal/logging"
	"dvfs-bench/internal/phase"
	"dvfs-bench/internal/recorder"
	"dvfs-bench/internal/run"
	"dvfs-bench/internal/tracing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// engineFlags are the flags shared by the load-generating subcommands.
type engineFlags struct {
	threads        int
	duration       int
	device         string
	output         string
	cpuClock       int
	ramClock       int
	nopin          bool
	profile        string
	perfettoConfig string
	perfettoOut    string
}

func addEngineFlags(cmd *cobra.Command, f *engineFlags, defaultDuration int) {
	cmd.Flags().IntVarP(&f.threads, "threads", "t", -1, "number of worker threads (default: # of online CPUs)")
	cmd.Flags().IntVarP(&f.duration, "duration", "d", defaultDuration, "run duration in seconds (0 = run until interrupted)")
	cmd.Flags().StringVar(&f.device, "device", "Pixel9", "device profile name [Pixel9 | S24]")
	cmd.Flags().StringVarP(&f.output, "output", "o", "output", "output directory path")
	cmd.Flags().IntVarP(&f.cpuClock, "cpu-clock", "c", -1, "CPU clock index to lock (-1 = off)")
	cmd.Flags().IntVarP(&f.ramClock, "ram-clock", "r", -1, "RAM clock index to lock (-1 = off)")
	cmd.Flags().BoolVar(&f.nopin, "nopin", false, "do NOT pin worker threads to specific cores")
	cmd.Flags().StringVar(&f.profile, "profile", "", "path to a device profile YAML (overrides --device)")
	cmd.Flags().StringVar(&f.perfettoConfig, "perfetto-config", "", "perfetto trace config to run alongside the load")
	cmd.Flags().StringVar(&f.perfettoOut, "perfetto-out", "", "perfetto trace output path (default: <output>/trace.perfetto-trace)")
}

func validateEngineFlags(f *engineFlags) error {
	if f.duration < 0 {
		return fmt.Errorf("duration must not be negative, got %d", f.duration)
	}
	if f.device == "" && f.profile == "" {
		return fmt.Errorf("either --device or --profile is required")
	}
	if f.output == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}

// runLoad wires the DVFS controller, recorder, optional tracer, and the
// load engine together for one run.
func runLoad(f *engineFlags, active, idle phase.Phase) error {
	logger := logging.GetLogger()

	if err := validateEngineFlags(f); err != nil {
		return err
	}

	prof, err := config.LoadDeviceProfile(f.device, f.profile)
	if err != nil {
		return fmt.Errorf("failed to load device profile: %w", err)
	}

	if err := os.MkdirAll(f.output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctrl := dvfs.NewController(prof, "/")
	if f.cpuClock >= 0 {
		logger.WithFields(logrus.Fields{
			"cpu_clock":   f.cpuClock,
			"frequencies": ctrl.CandidateFrequencies(f.cpuClock),
		}).Info("Resolved CPU frequency configuration")
	}

	rec := recorder.New(recorder.Config{
		OutputDir:  f.output,
		Device:     prof.Device,
		CPUClock:   f.cpuClock,
		RAMClock:   f.ramClock,
		Root:       "/",
		Profile:    prof,
		EnablePerf: true,
	})

	var trace *tracing.Handle
	if f.perfettoConfig != "" {
		out := f.perfettoOut
		if out == "" {
			out = filepath.Join(f.output, "trace.perfetto-trace")
		}
		trace, err = tracing.StartBackground(f.perfettoConfig, out, tracing.Rooted())
		if err != nil {
			logger.WithError(err).Warn("Failed to start perfetto, continuing without trace")
			trace = nil
		}
	}

	eng := run.New(run.Config{
		Threads:  f.threads,
		Duration: time.Duration(f.duration) * time.Second,
		Active:   active,
		Idle:     idle,
		Pin:      !f.nopin,
		CPUClock: f.cpuClock,
		RAMClock: f.ramClock,
	}, frequencyAdapter{ctrl}, rec)

	runErr := eng.Run()

	if trace != nil {
		if err := tracing.StopBackground(trace); err != nil {
			logger.WithError(err).Warn("Failed to stop perfetto")
		}
	}

	return runErr
}

// frequencyAdapter narrows *dvfs.Controller to the engine's interface.
type frequencyAdapter struct {
	ctrl *dvfs.Controller
}

func (a frequencyAdapter) Lock(cpuClock, ramClock int) (run.FrequencyLock, error) {
	lock, err := a.ctrl.Lock(cpuClock, ramClock)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, nil
	}
	return lock, nil
}
