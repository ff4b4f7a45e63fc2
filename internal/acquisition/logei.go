package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LogEI returns the log of the expected improvement of a predictive
// distribution (mean, std) over the incumbent best, for maximization.
//
// EI(x) = std * (z*Phi(z) + phi(z)) with z = (mean - best) / std. Computing
// in the log domain keeps the acquisition surface informative for points the
// model is confident are worse than the incumbent, where raw EI underflows
// to zero and a search over it would see a flat plateau.
func LogEI(mean, std, best float64) float64 {
	if std < 1e-12 {
		// Degenerate predictive distribution: improvement is deterministic.
		if imp := mean - best; imp > 0 {
			return math.Log(imp)
		}
		return math.Inf(-1)
	}
	z := (mean - best) / std
	return math.Log(std) + logH(z)
}

// logH computes log(z*Phi(z) + phi(z)) for the unit normal.
func logH(z float64) float64 {
	norm := distuv.UnitNormal
	if z > -30 {
		// Direct evaluation. The cancellation between phi(z) and
		// -z*Phi(z) costs at most a couple of digits down to z ~ -30,
		// well before phi underflows.
		return math.Log(z*norm.CDF(z) + norm.Prob(z))
	}
	// Asymptotic expansion h(z) ~ phi(z)/z^2 * (1 - 3/z^2) for z -> -inf.
	return norm.LogProb(z) - 2*math.Log(-z) + math.Log1p(-3/(z*z))
}
