// Package acquisition selects the next design to evaluate, balancing the
// surrogate's predicted quality against its uncertainty, with a periodic
// pure-random exploration override.
package acquisition

import (
	"math"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/surrogate"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

// Policy picks the next query point. A single policy instance serves one
// campaign; its random stream is the campaign's seeded source.
type Policy struct {
	// ExplorationPeriod forces a uniform random draw whenever the history
	// length is a multiple of this value. The convention is fixed: the
	// history length counts every recorded observation including the seed
	// set and failures, and the override fires when
	// historyLength % ExplorationPeriod == 0 at selection time.
	ExplorationPeriod int

	rawSamples int
	restarts   int
	rng        *utils.RandSource
}

// Selection is the outcome of one next-point decision.
type Selection struct {
	Point models.ParameterVector
	// Random reports that the point came from the random path (the
	// exploration override or the no-model fallback) rather than from
	// maximizing the acquisition score.
	Random bool
	// Score is the log expected improvement of the chosen point. It is
	// meaningless when Random is true.
	Score float64
}

// NewPolicy creates an acquisition policy with the stock search effort:
// 200 raw candidates, top 10 refined.
func NewPolicy(explorationPeriod int, rng *utils.RandSource) *Policy {
	if rng == nil {
		rng = utils.NewRandSource(0)
	}
	return &Policy{
		ExplorationPeriod: explorationPeriod,
		rawSamples:        200,
		restarts:          10,
		rng:               rng,
	}
}

// WithSearchEffort overrides the raw-candidate count and refinement restarts.
func (p *Policy) WithSearchEffort(rawSamples, restarts int) *Policy {
	if rawSamples > 0 {
		p.rawSamples = rawSamples
	}
	if restarts > 0 {
		p.restarts = restarts
	}
	return p
}

// SelectNext returns the next design to evaluate. historyLength is the
// number of evaluations completed so far, failures included; bestObjective
// is the incumbent best (ignored on the random path). A nil model forces the
// random path, which is how the loop recovers from an insufficient-data fit.
//
// The exploration override is a hard override: its correctness depends only
// on historyLength and ExplorationPeriod, never on model quality.
func (p *Policy) SelectNext(model surrogate.Fitted, bounds models.Bounds, historyLength int, bestObjective float64) (Selection, error) {
	if err := bounds.Validate(); err != nil {
		return Selection{}, &models.DomainError{Reason: err.Error()}
	}

	if p.ExplorationPeriod > 0 && historyLength%p.ExplorationPeriod == 0 {
		return Selection{Point: p.randomWithin(bounds), Random: true}, nil
	}
	if model == nil {
		return Selection{Point: p.randomWithin(bounds), Random: true}, nil
	}

	return p.maximize(model, bounds, bestObjective)
}

// randomWithin draws a uniform design within bounds.
func (p *Policy) randomWithin(bounds models.Bounds) models.ParameterVector {
	lo := int(math.Ceil(bounds.Periods.Min))
	hi := int(math.Floor(bounds.Periods.Max))
	if hi < lo {
		hi = lo
	}
	return models.ParameterVector{
		Porosity: p.rng.UniformFloat64(bounds.Porosity.Min, bounds.Porosity.Max),
		Grading:  p.rng.UniformFloat64(bounds.Grading.Min, bounds.Grading.Max),
		Periods:  p.rng.IntBetween(lo, hi),
	}
}
