// Package surrogate fits probabilistic regression models that stand in for
// the expensive evaluator pipeline.
package surrogate

import (
	"fmt"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// Prediction is a predictive distribution at one query point, in the
// objective's native units (specific stiffness).
type Prediction struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Fitted is a trained surrogate. It is derived, ephemeral state: fully
// reproducible by refitting from the dataset and never mutated in place.
type Fitted interface {
	// Predict returns the predictive mean and uncertainty for a query
	// design without invoking the evaluator.
	Predict(p models.ParameterVector) (Prediction, error)
}

// Model fits a surrogate from successful observations. Implementations are
// interchangeable behind this contract; the optimization loop refits from
// scratch each iteration.
type Model interface {
	Fit(obs []models.Observation) (Fitted, error)
	Name() string
}

// InsufficientDataError indicates too few successful observations to fit a
// non-degenerate regression. It is recoverable: the loop falls back to a
// random draw instead of a model-guided one.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for surrogate fit: have %d successful observations, need %d", e.Have, e.Need)
}
