package cmd

import (
	"time"

	"dvfs-bench/internal/phase"

	"github.com/spf13/cobra"
)

var burnFlags engineFlags
var burnBurst int
var burnPause int

var burnCmd = &cobra.Command{
	Use:   "burn",
	Short: "Run the burst/pause load pattern",
	Long: "Alternates full-load bursts with idle pauses on every online core until the\n" +
		"duration elapses or the run is interrupted, recording hardware state throughout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(&burnFlags,
			phase.Phase{Name: "BURST", Duration: time.Duration(burnBurst) * time.Second},
			phase.Phase{Name: "PAUSE", Duration: time.Duration(burnPause) * time.Second},
		)
	},
}

func init() {
	addEngineFlags(burnCmd, &burnFlags, 60)
	burnCmd.Flags().IntVarP(&burnBurst, "burst", "b", 10, "burst phase length in seconds")
	burnCmd.Flags().IntVarP(&burnPause, "pause", "p", 5, "pause phase length in seconds")
	rootCmd.AddCommand(burnCmd)
}
