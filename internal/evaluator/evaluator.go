// Package evaluator defines the boundary to the external
// geometry -> meshing -> finite-element pipeline that scores a design.
package evaluator

import (
	"context"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// Evaluator produces the observed objective (specific stiffness) for one
// design. Calls may take tens of minutes and may fail on degenerate
// geometry, meshing failure or solver non-convergence; a returned error is
// recorded by the optimization loop as a failed observation, never
// propagated as a loop failure. Implementations must respect ctx
// cancellation and deadlines.
type Evaluator interface {
	Evaluate(ctx context.Context, p models.ParameterVector) (float64, error)
	Name() string
}

// Func adapts a plain function to the Evaluator interface. Used for
// synthetic objectives and tests.
type Func func(ctx context.Context, p models.ParameterVector) (float64, error)

// Evaluate calls f.
func (f Func) Evaluate(ctx context.Context, p models.ParameterVector) (float64, error) {
	return f(ctx, p)
}

// Name returns the adapter name.
func (f Func) Name() string {
	return "func"
}

// Synthetic returns an analytic evaluator approximating the specific
// stiffness response of a graded gyroid: stiffness rises with solid fraction
// and cell count and falls with grading-induced thinning. It exists so the
// service can run end to end without the external pipeline attached.
func Synthetic() Evaluator {
	return Func(func(_ context.Context, p models.ParameterVector) (float64, error) {
		solid := 1 - p.Porosity
		return 120*solid*solid + 4*float64(p.Periods) - 3*(p.Grading-1), nil
	})
}
