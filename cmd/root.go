package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"dvfs-bench/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var logLevel string

var rootCmd = &cobra.Command{
	Use:     "dvfs-bench",
	Version: Version,
	Short:   "SoC DVFS load generation and telemetry tool",
	Long: "A tool for characterizing a mobile SoC's thermal/DVFS behavior: drives phased CPU load,\n" +
		"pins CPU/RAM clocks through sysfs, and records hardware state for the full load window",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			if err := logging.SetLogLevel(logLevel); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
}

func Execute() error {
	loadEnvironment()
	return rootCmd.Execute()
}

// loadEnvironment picks up optional telemetry sink settings (INFLUXDB_*,
// MQTT_*) from a .env file next to the working directory or the binary.
func loadEnvironment() {
	logger := logging.GetLogger()

	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
		return
	}

	if execPath, err := os.Executable(); err == nil {
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
			} else {
				logger.WithField("file", envFile).Debug("Loaded environment variables")
			}
		}
	}
}
