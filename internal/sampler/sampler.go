// Package sampler produces space-filling initial designs over the bounded
// gyroid parameter domain.
package sampler

import (
	"fmt"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

// Generate returns n parameter vectors drawn by Latin hypercube sampling.
// Each dimension is stratified into n equal-probability bins with exactly one
// sample per bin, and the bin-to-sample assignment is permuted independently
// per dimension so the joint set fills the cube without axis alignment.
// Periods are rounded to the nearest integer after stratification.
//
// Persistence of the returned points is the caller's responsibility; Generate
// has no side effects.
func Generate(n int, bounds models.Bounds, rng *utils.RandSource) ([]models.ParameterVector, error) {
	if n <= 0 {
		return nil, &models.InvalidBoundsError{
			Dimension: "samples",
			Reason:    fmt.Sprintf("sample count must be positive, got %d", n),
		}
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = utils.NewRandSource(0)
	}

	ranges := bounds.Ranges()
	coords := make([][models.NumDims]float64, n)
	for d := 0; d < models.NumDims; d++ {
		perm := rng.Perm(n)
		binWidth := ranges[d].Width() / float64(n)
		for i, bin := range perm {
			// One uniform draw inside the assigned bin.
			coords[i][d] = ranges[d].Min + (float64(bin)+rng.Float64())*binWidth
		}
	}

	points := make([]models.ParameterVector, n)
	for i := range coords {
		points[i] = bounds.Vector(coords[i])
	}
	return points, nil
}
