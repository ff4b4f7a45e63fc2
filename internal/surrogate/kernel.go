package surrogate

import "math"

// Kernel is a covariance function over normalized design coordinates.
type Kernel interface {
	// Eval returns the covariance between two points.
	Eval(a, b []float64) float64
	// Name returns the name of the kernel.
	Name() string
}

// Matern52 is the Matern 5/2 covariance, a standard choice for smooth but
// not infinitely differentiable physical responses.
type Matern52 struct {
	// LengthScale is the correlation length in normalized coordinates.
	LengthScale float64
	// Variance is the signal variance.
	Variance float64
}

// NewMatern52 creates a Matern 5/2 kernel.
func NewMatern52(lengthScale, variance float64) *Matern52 {
	if lengthScale <= 0 {
		lengthScale = 0.5
	}
	if variance <= 0 {
		variance = 1.0
	}
	return &Matern52{LengthScale: lengthScale, Variance: variance}
}

func (k *Matern52) Name() string {
	return "matern52"
}

// Eval returns the Matern 5/2 covariance between a and b.
func (k *Matern52) Eval(a, b []float64) float64 {
	var sq float64
	for i := range a {
		d := a[i] - b[i]
		sq += d * d
	}
	r := math.Sqrt(sq) / k.LengthScale
	s := math.Sqrt(5) * r
	return k.Variance * (1 + s + 5*r*r/3) * math.Exp(-s)
}
