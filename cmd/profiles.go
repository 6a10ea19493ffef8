package cmd

import (
	"fmt"
	"strings"

	"dvfs-bench/internal/config"
	"dvfs-bench/internal/dvfs"

	"github.com/spf13/cobra"
)

var profilesDevice string
var profilesPath string
var profilesCPUClock int

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show device profiles and resolved frequency candidates",
	Long: "Prints the built-in device profiles, and for a given device and clock index the\n" +
		"per-cluster frequencies a run would pin, so an operator can validate a sweep\n" +
		"before starting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if profilesDevice == "" && profilesPath == "" {
			fmt.Printf("Built-in device profiles: %s\n", strings.Join(config.BuiltinProfiles(), ", "))
			return nil
		}

		profile, err := config.LoadDeviceProfile(profilesDevice, profilesPath)
		if err != nil {
			return err
		}

		fmt.Printf("Device: %s\n", profile.Device)
		for _, policy := range profile.CPU.Policies {
			fmt.Printf("  policy %-8s %s (%d points: %d..%d kHz)\n",
				policy.Name, policy.Path, len(policy.Frequencies),
				policy.Frequencies[0], policy.Frequencies[len(policy.Frequencies)-1])
		}
		if profile.RAM.Path != "" {
			fmt.Printf("  ram    %s (%d points: %d..%d kHz)\n",
				profile.RAM.Path, len(profile.RAM.Frequencies),
				profile.RAM.Frequencies[0], profile.RAM.Frequencies[len(profile.RAM.Frequencies)-1])
		}

		if profilesCPUClock >= 0 {
			ctrl := dvfs.NewController(profile, "/")
			fmt.Printf("CPU clock index %d resolves to:", profilesCPUClock)
			for i, freq := range ctrl.CandidateFrequencies(profilesCPUClock) {
				fmt.Printf(" %s=%d", profile.CPU.Policies[i].Name, freq)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	profilesCmd.Flags().StringVar(&profilesDevice, "device", "", "device profile name to inspect")
	profilesCmd.Flags().StringVar(&profilesPath, "profile", "", "path to a device profile YAML")
	profilesCmd.Flags().IntVarP(&profilesCPUClock, "cpu-clock", "c", -1, "CPU clock index to resolve")
	rootCmd.AddCommand(profilesCmd)
}
