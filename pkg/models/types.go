package models

import (
	"fmt"
	"math"
)

// ParameterVector identifies one candidate gyroid lattice design.
// Values are immutable once created; treat instances as values.
type ParameterVector struct {
	// Porosity is the target void fraction of the lattice, as a fraction in (0, 1).
	Porosity float64 `json:"porosity" yaml:"porosity"`
	// Grading is the ratio of bottom to top wall thickness along Z.
	Grading float64 `json:"grading" yaml:"grading"`
	// Periods is the number of gyroid unit cells per edge of the sample cube.
	Periods int `json:"periods" yaml:"periods"`
}

// Coords returns the vector as a raw coordinate slice in the fixed
// (porosity, grading, periods) dimension order.
func (p ParameterVector) Coords() []float64 {
	return []float64{p.Porosity, p.Grading, float64(p.Periods)}
}

// String implements fmt.Stringer for log output.
func (p ParameterVector) String() string {
	return fmt.Sprintf("porosity=%.4f grading=%.4f periods=%d", p.Porosity, p.Grading, p.Periods)
}

// Range is a closed interval over one design dimension.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Width returns the length of the interval.
func (r Range) Width() float64 {
	return r.Max - r.Min
}

// Clamp clamps v into the interval.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Bounds describes the bounded design domain, one range per dimension.
type Bounds struct {
	Porosity Range `json:"porosity" yaml:"porosity"`
	Grading  Range `json:"grading" yaml:"grading"`
	Periods  Range `json:"periods" yaml:"periods"`
}

// NumDims is the dimensionality of the design space.
const NumDims = 3

// Ranges returns the bounds as a slice in coordinate order.
func (b Bounds) Ranges() [NumDims]Range {
	return [NumDims]Range{b.Porosity, b.Grading, b.Periods}
}

// Validate checks that every dimension is a non-degenerate interval and
// that the periods range admits at least one integer value.
// It returns an *InvalidBoundsError describing the first violation found.
func (b Bounds) Validate() error {
	names := [NumDims]string{"porosity", "grading", "periods"}
	for i, r := range b.Ranges() {
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
			return &InvalidBoundsError{Dimension: names[i], Min: r.Min, Max: r.Max, Reason: "bound is NaN"}
		}
		if r.Min >= r.Max {
			return &InvalidBoundsError{Dimension: names[i], Min: r.Min, Max: r.Max, Reason: "min must be strictly less than max"}
		}
	}
	if math.Ceil(b.Periods.Min) > math.Floor(b.Periods.Max) {
		return &InvalidBoundsError{Dimension: "periods", Min: b.Periods.Min, Max: b.Periods.Max, Reason: "range contains no integer"}
	}
	return nil
}

// Vector assembles a ParameterVector from raw coordinates, clamping each
// coordinate into bounds and rounding periods to the nearest integer.
func (b Bounds) Vector(coords [NumDims]float64) ParameterVector {
	periods := math.Round(b.Periods.Clamp(coords[2]))
	return ParameterVector{
		Porosity: b.Porosity.Clamp(coords[0]),
		Grading:  b.Grading.Clamp(coords[1]),
		Periods:  int(b.Periods.Clamp(periods)),
	}
}

// Contains reports whether p lies within the bounds on every dimension.
func (b Bounds) Contains(p ParameterVector) bool {
	if p.Porosity < b.Porosity.Min || p.Porosity > b.Porosity.Max {
		return false
	}
	if p.Grading < b.Grading.Min || p.Grading > b.Grading.Max {
		return false
	}
	fp := float64(p.Periods)
	return fp >= b.Periods.Min && fp <= b.Periods.Max
}

// DefaultBounds returns the stock gyroid design domain.
func DefaultBounds() Bounds {
	return Bounds{
		Porosity: Range{Min: 0.30, Max: 0.85},
		Grading:  Range{Min: 1.0, Max: 4.0},
		Periods:  Range{Min: 1, Max: 8},
	}
}

// ObservationStatus tags the outcome of one evaluator call.
type ObservationStatus string

const (
	// ObservationSuccess marks an evaluation that produced a valid objective.
	ObservationSuccess ObservationStatus = "success"
	// ObservationFailed marks an evaluation that failed anywhere in the
	// geometry, meshing or solver pipeline, or that timed out.
	ObservationFailed ObservationStatus = "failed"
)

// Observation is one recorded evaluation result. Failed observations are
// retained in the dataset (they consume an exploration-schedule slot) but
// are excluded from surrogate fitting.
type Observation struct {
	Params          ParameterVector   `json:"params"`
	Objective       float64           `json:"objective"`
	Status          ObservationStatus `json:"status"`
	Note            string            `json:"note,omitempty"`
	CreatedAtUnixMs int64             `json:"created_at_unix_ms"`
}

// Succeeded reports whether the observation carries a usable objective.
func (o Observation) Succeeded() bool {
	return o.Status == ObservationSuccess
}

// InvalidBoundsError indicates a malformed design domain. It is fatal and
// must be rejected before any optimization loop starts.
type InvalidBoundsError struct {
	Dimension string
	Min       float64
	Max       float64
	Reason    string
}

func (e *InvalidBoundsError) Error() string {
	return fmt.Sprintf("invalid bounds for %s [%g, %g]: %s", e.Dimension, e.Min, e.Max, e.Reason)
}

// DomainError indicates an acquisition query over an unusable domain.
// It signals a configuration bug and is never swallowed.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string {
	return "domain error: " + e.Reason
}
