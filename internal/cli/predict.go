package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/store/sqlite"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/surrogate"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

var (
	predictPorosity float64
	predictGrading  float64
	predictPeriods  int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Query the surrogate at a design point",
	Long: `Fits the Gaussian-process surrogate over the stored observation log and
prints the predictive mean and standard deviation at the given design point.
No evaluator call is made.`,
	Example: `  latticed predict -c config.yaml --porosity 0.55 --grading 2.0 --periods 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		point := models.ParameterVector{
			Porosity: predictPorosity,
			Grading:  predictGrading,
			Periods:  predictPeriods,
		}
		if !cfg.Bounds.Contains(point) {
			return fmt.Errorf("design point %s is outside the configured bounds", point)
		}

		obsStore, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer obsStore.Close()

		obs, err := obsStore.Load(context.Background())
		if err != nil {
			return err
		}

		gp := surrogate.NewGP(cfg.Bounds, cfg.Campaign.MinFitPoints)
		fitted, err := gp.Fit(obs)
		if err != nil {
			return err
		}
		pred, err := fitted.Predict(point)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"point":   point,
			"mean":    pred.Mean,
			"std_dev": pred.StdDev,
		})
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().Float64Var(&predictPorosity, "porosity", 0, "target porosity of the query design")
	predictCmd.Flags().Float64Var(&predictGrading, "grading", 0, "wall-thickness grading ratio of the query design")
	predictCmd.Flags().IntVar(&predictPeriods, "periods", 0, "unit cells per edge of the query design")
}
