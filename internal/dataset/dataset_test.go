package dataset

import (
	"testing"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

func obs(objective float64, status models.ObservationStatus) models.Observation {
	return models.Observation{
		Params:    models.ParameterVector{Porosity: 0.5, Grading: 2, Periods: 3},
		Objective: objective,
		Status:    status,
	}
}

func TestAppendAndCounts(t *testing.T) {
	d := New(nil)
	if d.Len() != 0 {
		t.Fatalf("expected empty dataset")
	}

	d.Append(obs(10, models.ObservationSuccess))
	d.Append(obs(0, models.ObservationFailed))
	d.Append(obs(12, models.ObservationSuccess))

	if d.Len() != 3 {
		t.Fatalf("expected 3 observations, got %d", d.Len())
	}
	if d.Succeeded() != 2 {
		t.Fatalf("expected 2 successes, got %d", d.Succeeded())
	}
	if d.Failed() != 1 {
		t.Fatalf("expected 1 failure, got %d", d.Failed())
	}
	if len(d.Successes()) != 2 {
		t.Fatalf("expected 2 successful observations")
	}
}

func TestBestSoFarIgnoresFailures(t *testing.T) {
	d := New(nil)
	d.Append(obs(5, models.ObservationSuccess))
	// A failed observation with a large recorded objective must never win.
	d.Append(models.Observation{Objective: 1e9, Status: models.ObservationFailed})
	d.Append(obs(7, models.ObservationSuccess))

	best, ok := d.BestSoFar()
	if !ok {
		t.Fatalf("expected a best observation")
	}
	if best.Objective != 7 {
		t.Fatalf("expected best 7, got %g", best.Objective)
	}
}

func TestBestSoFarEmpty(t *testing.T) {
	d := New(nil)
	if _, ok := d.BestSoFar(); ok {
		t.Fatalf("empty dataset must not report a best observation")
	}
	d.Append(obs(1, models.ObservationFailed))
	if _, ok := d.BestSoFar(); ok {
		t.Fatalf("all-failed dataset must not report a best observation")
	}
}

func TestBestSoFarIdempotent(t *testing.T) {
	records := []models.Observation{
		obs(3, models.ObservationSuccess),
		obs(9, models.ObservationSuccess),
		obs(9, models.ObservationSuccess),
		obs(1, models.ObservationFailed),
		obs(4, models.ObservationSuccess),
	}
	d := New(records)

	first, ok := d.BestSoFar()
	if !ok {
		t.Fatalf("expected a best observation")
	}
	for i := 0; i < 10; i++ {
		again, _ := d.BestSoFar()
		if again != first {
			t.Fatalf("BestSoFar must be stable across recomputations: %+v vs %+v", again, first)
		}
	}

	// Rebuilding the dataset from a snapshot yields the same best.
	snapshot := d.All()
	rebuilt := New(snapshot)
	best, _ := rebuilt.BestSoFar()
	if best != first {
		t.Fatalf("best from snapshot differs: %+v vs %+v", best, first)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	d := New(nil)
	d.Append(obs(2, models.ObservationSuccess))
	snapshot := d.All()
	snapshot[0].Objective = 999

	best, _ := d.BestSoFar()
	if best.Objective != 2 {
		t.Fatalf("mutating a snapshot must not affect the dataset")
	}
}
