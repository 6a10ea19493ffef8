package cmd

import (
	"dvfs-bench/internal/infer"

	"github.com/spf13/cobra"
)

var inferOpts infer.Options

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Run the synthetic transformer inference workload",
	Long: "Simulates LLM inference over dummy weights: a compute-bound GEMM prefill\n" +
		"stage followed by a memory-bound GEMV decode stage, with throughput logging.\n" +
		"Runs free of the phase engine and thread pinning",
	RunE: func(cmd *cobra.Command, args []string) error {
		return infer.Run(inferOpts)
	},
}

func init() {
	inferCmd.Flags().StringVarP(&inferOpts.ModelPath, "model", "m", "model_weights.bin", "filename of the dummy model")
	inferCmd.Flags().IntVarP(&inferOpts.Queries, "num-queries", "q", 10, "number of inference queries")
	inferCmd.Flags().IntVarP(&inferOpts.Layers, "num-layers", "l", 24, "number of transformer layers")
	inferCmd.Flags().IntVar(&inferOpts.HiddenDim, "hidden-dim", 256, "hidden dimension")
	inferCmd.Flags().IntVarP(&inferOpts.FFNDim, "ffn-size", "f", 588, "feed-forward dimension")
	inferCmd.Flags().IntVarP(&inferOpts.Prompt, "input-tokens", "i", 64, "prompt length in tokens")
	inferCmd.Flags().IntVarP(&inferOpts.Output, "output-tokens", "o", 256, "generated token count")
	inferCmd.Flags().IntVarP(&inferOpts.Threads, "threads", "t", 4, "number of threads per matrix operation")
	rootCmd.AddCommand(inferCmd)
}
