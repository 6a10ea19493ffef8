// Package recorder samples hardware state (clock frequencies, thermal
// zones, perf counters) for the full span of a load window and persists it
// to a text trace, a compressed run artifact, and optional remote sinks.
package recorder

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dvfs-bench/internal/config"
	"dvfs-bench/internal/logging"
	"dvfs-bench/internal/signals"
	"dvfs-bench/internal/topology"

	"github.com/sirupsen/logrus"
)

const defaultSamplePeriod = 100 * time.Millisecond

// Sink receives each sample as it is taken. Sinks are best-effort: a write
// failure is logged and sampling continues.
type Sink interface {
	Write(sample *Sample) error
	Close() error
}

// Config describes one recording session.
type Config struct {
	OutputDir    string
	Device       string
	CPUClock     int
	RAMClock     int
	SamplePeriod time.Duration
	Root         string // filesystem root for sysfs reads, "/" in production
	Profile      *config.DeviceProfile
	EnablePerf   bool
}

// RunArtifact is the gzip-compressed JSON summary written at shutdown.
type RunArtifact struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	Device   string `json:"device"`
	CPUClock int    `json:"cpu_clock"`
	RAMClock int    `json:"ram_clock"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Samples []*Sample `json:"samples"`
}

// Recorder runs the sampling goroutine. It starts before the load workers
// and stops only after they have joined, so the recorded window always
// covers the full load window.
type Recorder struct {
	cfg Config

	file    *os.File
	writer  *bufio.Writer
	perf    *perfReader
	sinks   []Sink
	samples []*Sample
	start   time.Time

	wg sync.WaitGroup
}

func New(cfg Config) *Recorder {
	if cfg.SamplePeriod <= 0 {
		cfg.SamplePeriod = defaultSamplePeriod
	}
	if cfg.Root == "" {
		cfg.Root = "/"
	}
	return &Recorder{cfg: cfg}
}

// TracePath returns the text trace location for this configuration. The
// name encodes the clock indices so sweeps over frequency points do not
// overwrite each other.
func (r *Recorder) TracePath() string {
	return filepath.Join(r.cfg.OutputDir, fmt.Sprintf("kernel_hard_%d_%d.txt", r.cfg.CPUClock, r.cfg.RAMClock))
}

// Start opens the outputs and spawns the sampling goroutine. An unwritable
// output directory is a fatal setup error; an unavailable perf subsystem or
// remote sink only degrades the sample contents.
func (r *Recorder) Start(shutdown *signals.Flag) error {
	logger := logging.GetLogger()

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(r.TracePath())
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	r.file = file
	r.writer = bufio.NewWriter(file)

	fmt.Fprintf(r.writer, "# device=%s cpu_clock=%d ram_clock=%d period_ms=%d\n",
		r.cfg.Device, r.cfg.CPUClock, r.cfg.RAMClock, r.cfg.SamplePeriod.Milliseconds())

	if r.cfg.EnablePerf {
		cpus := topology.OnlineCPUs(r.cfg.Root)
		if len(cpus) == 0 {
			cpus = []int{0}
		}
		pr, err := newPerfReader(cpus)
		if err != nil {
			logger.WithError(err).Warn("Perf counters unavailable, recording without them")
		} else {
			r.perf = pr
		}
	}

	if sink, err := newInfluxSinkFromEnv(); err != nil {
		logger.WithError(err).Warn("InfluxDB sink not started")
	} else if sink != nil {
		r.sinks = append(r.sinks, sink)
	}
	if sink, err := newMQTTSinkFromEnv(); err != nil {
		logger.WithError(err).Warn("MQTT sink not started")
	} else if sink != nil {
		r.sinks = append(r.sinks, sink)
	}

	r.start = time.Now()
	r.wg.Add(1)
	go r.loop(shutdown)

	logger.WithFields(logrus.Fields{
		"trace":     r.TracePath(),
		"period":    r.cfg.SamplePeriod,
		"perf":      r.perf != nil,
		"num_sinks": len(r.sinks),
	}).Info("Recorder started")
	return nil
}

// Join blocks until the sampling goroutine has stopped and all outputs are
// flushed and closed.
func (r *Recorder) Join() {
	r.wg.Wait()
}

func (r *Recorder) loop(shutdown *signals.Flag) {
	defer r.wg.Done()
	defer r.flush()

	logger := logging.GetRecorderLogger()

	ticker := time.NewTicker(r.cfg.SamplePeriod)
	defer ticker.Stop()

	for !shutdown.IsSet() {
		sample := r.readSample()
		r.samples = append(r.samples, sample)
		r.writeTraceLine(sample)
		for _, sink := range r.sinks {
			if err := sink.Write(sample); err != nil {
				logger.WithError(err).Warn("Sink write failed")
			}
		}
		<-ticker.C
	}
}

func (r *Recorder) readSample() *Sample {
	sample := &Sample{
		Timestamp:  time.Now(),
		CPUFreqKHz: readCPUFrequencies(r.cfg.Root, r.cfg.Profile),
		RAMFreqKHz: readRAMFrequency(r.cfg.Root, r.cfg.Profile),
		TempMilliC: readThermalZones(r.cfg.Root),
	}
	sample.ElapsedMS = sample.Timestamp.Sub(r.start).Milliseconds()
	if r.perf != nil {
		r.perf.collect(sample)
	}
	return sample
}

// writeTraceLine appends one space-separated row, policy columns in profile
// order so the file stays machine-parseable.
func (r *Recorder) writeTraceLine(sample *Sample) {
	fmt.Fprintf(r.writer, "%d", sample.ElapsedMS)
	for _, policy := range r.cfg.Profile.CPU.Policies {
		fmt.Fprintf(r.writer, " %d", sample.CPUFreqKHz[policy.Name])
	}
	fmt.Fprintf(r.writer, " %d %d %d\n", sample.RAMFreqKHz, sample.Cycles, sample.Instructions)
}

func (r *Recorder) flush() {
	logger := logging.GetLogger()

	if r.writer != nil {
		if err := r.writer.Flush(); err != nil {
			logger.WithError(err).Warn("Failed to flush trace file")
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close trace file")
		}
	}

	if path, err := r.writeArtifact(); err != nil {
		logger.WithError(err).Warn("Failed to write run artifact")
	} else {
		logger.WithFields(logrus.Fields{
			"path":    path,
			"samples": len(r.samples),
		}).Info("Run artifact written")
	}

	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close sink")
		}
	}
	if r.perf != nil {
		r.perf.Close()
	}
}

// writeArtifact writes the gzip-compressed JSON artifact atomically: encode
// into a temp file in the output dir, then rename into place.
func (r *Recorder) writeArtifact() (string, error) {
	artifact := &RunArtifact{
		Version:   1,
		CreatedAt: time.Now(),
		Device:    r.cfg.Device,
		CPUClock:  r.cfg.CPUClock,
		RAMClock:  r.cfg.RAMClock,
		StartTime: r.start,
		EndTime:   time.Now(),
		Samples:   r.samples,
	}

	name := fmt.Sprintf("run_%s_%d_%d_%s.json.gz",
		r.cfg.Device, r.cfg.CPUClock, r.cfg.RAMClock,
		artifact.CreatedAt.UTC().Format("20060102T150405Z"))
	finalPath := filepath.Join(r.cfg.OutputDir, name)

	tmp, err := os.CreateTemp(r.cfg.OutputDir, name+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(tmp)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact); err != nil {
		_ = gz.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	ok = true
	return finalPath, nil
}
