// Package cli defines the latticed command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/config"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "latticed",
	Short: "Bayesian design-space exploration for graded gyroid lattices",
	Long: `latticed drives an adaptive sampling loop over gyroid lattice designs:
a Latin hypercube seed set, a Gaussian-process surrogate over observed
specific stiffness and a log-expected-improvement acquisition policy decide
which design the external geometry/meshing/FE pipeline evaluates next.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig loads the configuration file (or defaults) and applies the
// global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))
	return cfg, nil
}
