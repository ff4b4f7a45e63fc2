package surrogate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

// lengthScaleGrid is the candidate set searched by marginal likelihood when
// fitting. Scales are in normalized (unit cube) coordinates.
var lengthScaleGrid = []float64{0.1, 0.2, 0.3, 0.5, 1.0}

// baseNoise is the starting observation-noise variance on standardized
// targets. It absorbs solver floating-point and mesh-discretization jitter;
// Fit escalates it when the covariance matrix is numerically singular.
const baseNoise = 1e-6

// GP is a Gaussian-process surrogate with a Matern 5/2 kernel. Inputs are
// normalized to the unit cube via the design bounds and targets are
// standardized, so dimensions with very different numeric ranges (periods in
// {1..8} vs porosity in [0,1]) contribute comparably to the covariance.
type GP struct {
	bounds    models.Bounds
	minPoints int
}

// NewGP creates a Gaussian-process surrogate over the given design bounds.
// minPoints below 2 is raised to 2: one point cannot constrain a regression.
func NewGP(bounds models.Bounds, minPoints int) *GP {
	if minPoints < 2 {
		minPoints = 2
	}
	return &GP{bounds: bounds, minPoints: minPoints}
}

// Name returns the surrogate name.
func (g *GP) Name() string {
	return "gp-matern52"
}

// normalize maps a design into unit-cube coordinates.
func (g *GP) normalize(p models.ParameterVector) []float64 {
	ranges := g.bounds.Ranges()
	coords := p.Coords()
	out := make([]float64, models.NumDims)
	for i := range coords {
		out[i] = (coords[i] - ranges[i].Min) / ranges[i].Width()
	}
	return out
}

// Fit trains the process on the successful observations. Failed observations
// in the input are skipped. The kernel length scale is chosen by maximizing
// the log marginal likelihood over a fixed grid.
func (g *GP) Fit(obs []models.Observation) (Fitted, error) {
	var xs [][]float64
	var ys []float64
	for _, o := range obs {
		if !o.Succeeded() {
			continue
		}
		xs = append(xs, g.normalize(o.Params))
		ys = append(ys, o.Objective)
	}
	n := len(xs)
	if n < g.minPoints {
		return nil, &InsufficientDataError{Have: n, Need: g.minPoints}
	}

	yMean := utils.Mean(ys)
	yStd := utils.StdDev(ys)
	if yStd < 1e-12 {
		yStd = 1.0
	}
	z := mat.NewVecDense(n, nil)
	for i, y := range ys {
		z.SetVec(i, (y-yMean)/yStd)
	}

	var best *fittedGP
	bestLML := math.Inf(-1)
	for noise := baseNoise; noise <= 1e-2; noise *= 100 {
		for _, ls := range lengthScaleGrid {
			kernel := NewMatern52(ls, 1.0)
			cand, lml, ok := factorize(xs, z, kernel, noise)
			if !ok {
				continue
			}
			if lml > bestLML {
				bestLML = lml
				best = cand
			}
		}
		if best != nil {
			break
		}
	}
	if best == nil {
		return nil, fmt.Errorf("gp fit: covariance matrix not positive definite for any candidate length scale")
	}

	best.gp = g
	best.yMean = yMean
	best.yStd = yStd
	return best, nil
}

// factorize builds and factors the training covariance for one kernel,
// returning the candidate fit and its log marginal likelihood.
func factorize(xs [][]float64, z *mat.VecDense, kernel Kernel, noise float64) (*fittedGP, float64, bool) {
	n := len(xs)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := kernel.Eval(xs[i], xs[j])
			if i == j {
				v += noise
			}
			cov.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, 0, false
	}

	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, z); err != nil {
		return nil, 0, false
	}

	lml := -0.5*mat.Dot(z, alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
	return &fittedGP{
		xs:     xs,
		kernel: kernel,
		chol:   chol,
		alpha:  alpha,
	}, lml, true
}

// fittedGP is a trained Gaussian process. It is immutable after Fit.
type fittedGP struct {
	gp     *GP
	xs     [][]float64
	kernel Kernel
	chol   mat.Cholesky
	alpha  *mat.VecDense
	yMean  float64
	yStd   float64
}

// Predict returns the predictive mean and standard deviation at p,
// de-normalized back to the objective's native units.
func (f *fittedGP) Predict(p models.ParameterVector) (Prediction, error) {
	x := f.gp.normalize(p)
	n := len(f.xs)

	kstar := mat.NewVecDense(n, nil)
	for i, xi := range f.xs {
		kstar.SetVec(i, f.kernel.Eval(x, xi))
	}

	meanZ := mat.Dot(kstar, f.alpha)

	v := mat.NewVecDense(n, nil)
	if err := f.chol.SolveVecTo(v, kstar); err != nil {
		return Prediction{}, fmt.Errorf("gp predict: %w", err)
	}
	variance := f.kernel.Eval(x, x) - mat.Dot(kstar, v)
	if variance < 0 {
		variance = 0
	}

	return Prediction{
		Mean:   f.yMean + f.yStd*meanZ,
		StdDev: f.yStd * math.Sqrt(variance),
	}, nil
}
