// Package dataset holds the accumulating table of evaluated designs.
package dataset

import (
	"context"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// Store is the durable append-only observation log backing a Dataset.
// Append must be durable before the next loop iteration starts; Load returns
// all records in insertion order so a crashed campaign can resume.
type Store interface {
	Load(ctx context.Context) ([]models.Observation, error)
	Append(ctx context.Context, obs models.Observation) error
	Close() error
}

// Dataset is an ordered, append-only sequence of observations. Insertion
// order is evaluation order; the exploration schedule is indexed by Len, so
// failed observations still occupy a slot. The optimization loop is the sole
// writer.
type Dataset struct {
	obs []models.Observation
}

// New creates a Dataset from previously recorded observations.
func New(obs []models.Observation) *Dataset {
	d := &Dataset{obs: make([]models.Observation, len(obs))}
	copy(d.obs, obs)
	return d
}

// Append adds one observation. Observations are never mutated or removed.
func (d *Dataset) Append(obs models.Observation) {
	d.obs = append(d.obs, obs)
}

// Len returns the total number of recorded observations, failures included.
func (d *Dataset) Len() int {
	return len(d.obs)
}

// All returns a copy of every observation in insertion order.
func (d *Dataset) All() []models.Observation {
	out := make([]models.Observation, len(d.obs))
	copy(out, d.obs)
	return out
}

// Successes returns the successful observations in insertion order.
func (d *Dataset) Successes() []models.Observation {
	out := make([]models.Observation, 0, len(d.obs))
	for _, o := range d.obs {
		if o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Succeeded returns the number of successful observations.
func (d *Dataset) Succeeded() int {
	n := 0
	for _, o := range d.obs {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed observations.
func (d *Dataset) Failed() int {
	return len(d.obs) - d.Succeeded()
}

// BestSoFar returns the successful observation with the maximal objective.
// It is recomputed from scratch on every call, never cached across appends.
// Ties keep the earliest observation. The second return is false when no
// successful observation exists yet.
func (d *Dataset) BestSoFar() (models.Observation, bool) {
	var best models.Observation
	found := false
	for _, o := range d.obs {
		if !o.Succeeded() {
			continue
		}
		if !found || o.Objective > best.Objective {
			best = o
			found = true
		}
	}
	return best, found
}
