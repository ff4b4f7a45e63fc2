package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/sampler"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

var (
	seedCount int
	seedSeed  int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Print a Latin hypercube seed design",
	Long: `Generates the space-filling seed design for the configured bounds and
prints it as JSON, without evaluating anything. Useful for inspecting the
initial batch or feeding an external pipeline manually.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		n := seedCount
		if n <= 0 {
			n = cfg.Campaign.InitialSamples
		}
		seed := seedSeed
		if seed == 0 {
			seed = cfg.Campaign.Seed
		}

		points, err := sampler.Generate(n, cfg.Bounds, utils.NewRandSource(seed))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 0, "number of design points (defaults to initial_samples)")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 0, "random seed (overrides config)")
}
