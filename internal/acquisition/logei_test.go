package acquisition

import (
	"math"
	"testing"
)

func TestLogEIAtIncumbent(t *testing.T) {
	// At mean == best, EI = std * phi(0).
	got := LogEI(5, 2, 5)
	want := math.Log(2) + math.Log(1/math.Sqrt(2*math.Pi))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("LogEI at incumbent: got %g, want %g", got, want)
	}
}

func TestLogEIMonotoneInMean(t *testing.T) {
	prev := math.Inf(-1)
	for mean := -50.0; mean <= 10.0; mean += 0.5 {
		v := LogEI(mean, 1, 0)
		if !(v > prev) {
			t.Fatalf("LogEI must increase with mean: LogEI(%g)=%g, previous %g", mean, v, prev)
		}
		prev = v
	}
}

func TestLogEIStableForConfidentlyWorsePoints(t *testing.T) {
	// z = -40: raw EI underflows to zero, log EI must stay finite.
	v := LogEI(0, 1, 40)
	if math.IsInf(v, -1) || math.IsNaN(v) {
		t.Fatalf("LogEI must stay finite for very negative improvement, got %g", v)
	}
	// Roughly log(phi(-40)/1600): dominated by -z^2/2 = -800.
	if v > -700 || v < -900 {
		t.Fatalf("LogEI(0,1,40) out of expected magnitude: %g", v)
	}
}

func TestLogEIBranchContinuity(t *testing.T) {
	// The direct and asymptotic branches must agree near the switch point.
	direct := LogEI(0, 1, 29.9)
	asymptotic := LogEI(0, 1, 30.1)
	slope := (asymptotic - direct) / 0.2
	// d(logEI)/d(best) ~ z at large |z|; expect a smooth transition.
	if slope > -25 || slope < -35 {
		t.Fatalf("suspicious jump across branch switch: direct=%g asymptotic=%g", direct, asymptotic)
	}
}

func TestLogEIZeroStdDev(t *testing.T) {
	if v := LogEI(7, 0, 5); math.Abs(v-math.Log(2)) > 1e-12 {
		t.Fatalf("deterministic improvement: expected log(2), got %g", v)
	}
	if v := LogEI(3, 0, 5); !math.IsInf(v, -1) {
		t.Fatalf("deterministic non-improvement: expected -inf, got %g", v)
	}
}

func TestLogEIGrowsWithUncertainty(t *testing.T) {
	// For a point predicted worse than the incumbent, more uncertainty
	// means more expected improvement.
	narrow := LogEI(0, 0.5, 1)
	wide := LogEI(0, 2.0, 1)
	if wide <= narrow {
		t.Fatalf("LogEI should grow with stddev below the incumbent: narrow=%g wide=%g", narrow, wide)
	}
}
