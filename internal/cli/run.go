package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/campaign"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/latticed"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/store/sqlite"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/logger"
)

var (
	runBudget int
	runSeed   int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one campaign in the foreground",
	Long: `Runs a single optimization campaign to budget exhaustion and prints the
summary as JSON. The observation log is durable: interrupting the run (Ctrl-C)
and invoking it again resumes where it stopped, with exact budget accounting.`,
	Example: `  # Run with the stock synthetic evaluator
  latticed run -c config.yaml

  # Override the iteration budget and seed
  latticed run -c config.yaml --budget 50 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runBudget > 0 {
			cfg.Campaign.IterationBudget = runBudget
		}
		if runSeed != 0 {
			cfg.Campaign.Seed = runSeed
		}

		timeout, err := cfg.Evaluator.GetTimeout()
		if err != nil {
			return err
		}

		obsStore, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer obsStore.Close()

		eval, err := latticed.BuildEvaluator(cfg.Evaluator)
		if err != nil {
			return err
		}

		runner, err := campaign.NewRunner(campaign.Config{
			Bounds:               cfg.Bounds,
			InitialSamples:       cfg.Campaign.InitialSamples,
			IterationBudget:      cfg.Campaign.IterationBudget,
			ExplorationPeriod:    cfg.Campaign.ExplorationPeriod,
			MinFitPoints:         cfg.Campaign.MinFitPoints,
			FailureWarnThreshold: cfg.Campaign.FailureWarnThreshold,
			EvaluatorTimeout:     timeout,
			Seed:                 cfg.Campaign.Seed,
		}, obsStore, eval)
		if err != nil {
			return err
		}
		runner.WithProgressReporter(func(completed int, best float64) {
			logger.Info("iteration completed", "completed", completed, "best_objective", best)
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runner.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if errors.Is(err, context.Canceled) {
			logger.Info("campaign interrupted, dataset is resumable", "evaluations", summary.TotalEvaluations)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runBudget, "budget", 0, "iteration budget (overrides config)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "random seed (overrides config)")
}
