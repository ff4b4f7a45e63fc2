package acquisition

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/surrogate"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// maximize finds the design with the highest log-EI via a grid-then-refine
// search: rawSamples uniform candidates scored directly, then the top
// restarts candidates polished with Nelder-Mead over the continuous
// relaxation (periods are rounded on emission by Bounds.Vector).
//
// Tie-break: a candidate only displaces the incumbent with a strictly
// greater score, so the first point reached in generation order wins.
func (p *Policy) maximize(model surrogate.Fitted, bounds models.Bounds, bestObjective float64) (Selection, error) {
	ranges := bounds.Ranges()

	score := func(coords [models.NumDims]float64) float64 {
		pred, err := model.Predict(bounds.Vector(coords))
		if err != nil {
			return math.Inf(-1)
		}
		return LogEI(pred.Mean, pred.StdDev, bestObjective)
	}

	type candidate struct {
		coords [models.NumDims]float64
		score  float64
	}
	candidates := make([]candidate, p.rawSamples)
	for i := range candidates {
		var c [models.NumDims]float64
		for d := 0; d < models.NumDims; d++ {
			c[d] = p.rng.UniformFloat64(ranges[d].Min, ranges[d].Max)
		}
		candidates[i] = candidate{coords: c, score: score(c)}
	}

	// Stable sort keeps generation order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	best := candidates[0]
	for i := 0; i < p.restarts && i < len(candidates); i++ {
		start := candidates[i]
		if math.IsInf(start.score, -1) {
			break
		}
		refined, refinedScore := refine(start.coords, ranges, score)
		if refinedScore > best.score {
			best = candidate{coords: refined, score: refinedScore}
		}
	}

	if math.IsInf(best.score, -1) {
		// Acquisition surface is flat at -inf (the model is certain no
		// point improves on the incumbent). Fall back to exploration.
		return Selection{Point: p.randomWithin(bounds), Random: true}, nil
	}

	return Selection{Point: bounds.Vector(best.coords), Score: best.score}, nil
}

// refine runs a bounded Nelder-Mead polish from start, maximizing score.
// Coordinates are clamped into the domain before scoring, so the simplex
// cannot escape the bounds.
func refine(start [models.NumDims]float64, ranges [models.NumDims]models.Range, score func([models.NumDims]float64) float64) ([models.NumDims]float64, float64) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			var c [models.NumDims]float64
			for d := range c {
				c[d] = ranges[d].Clamp(x[d])
			}
			return -score(c)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 80,
		FuncEvaluations: 300,
	}

	result, err := optimize.Minimize(problem, start[:], settings, &optimize.NelderMead{})
	if err != nil || result == nil {
		return start, score(start)
	}

	var out [models.NumDims]float64
	for d := range out {
		out[d] = ranges[d].Clamp(result.X[d])
	}
	return out, score(out)
}
