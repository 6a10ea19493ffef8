package cmd

import (
	"time"

	"dvfs-bench/internal/phase"

	"github.com/spf13/cobra"
)

var joltFlags engineFlags
var joltWarmup int
var joltPulse int

var joltCmd = &cobra.Command{
	Use:   "jolt",
	Short: "Run the warm-up/pulse load pattern",
	Long: "Alternates a long warm-up load with short idle pulses. Warm-up and pulse\n" +
		"lengths are independent; the pattern repeats until the duration elapses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(&joltFlags,
			phase.Phase{Name: "WARMUP", Duration: time.Duration(joltWarmup) * time.Second},
			phase.Phase{Name: "PULSE", Duration: time.Duration(joltPulse) * time.Second},
		)
	},
}

func init() {
	addEngineFlags(joltCmd, &joltFlags, 120)
	joltCmd.Flags().IntVarP(&joltWarmup, "warmup", "w", 30, "warm-up phase length in seconds")
	joltCmd.Flags().IntVarP(&joltPulse, "pulse", "u", 2, "pulse (idle) phase length in seconds")
	rootCmd.AddCommand(joltCmd)
}
