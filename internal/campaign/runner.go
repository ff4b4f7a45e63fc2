// Package campaign drives the Bayesian-optimization loop over the gyroid
// design space: seed the dataset, then repeatedly fit a surrogate, select a
// next point, evaluate it through the external pipeline and persist the
// result.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/acquisition"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/dataset"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/evaluator"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/metrics"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/sampler"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/surrogate"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/logger"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

// State is the optimization loop lifecycle state.
type State string

const (
	StateInitializing State = "initializing"
	StateIterating    State = "iterating"
	StateTerminated   State = "terminated"
)

// Config holds the loop parameters. Validate rejects malformed values
// before any evaluator call is made.
type Config struct {
	Bounds               models.Bounds
	InitialSamples       int
	IterationBudget      int
	ExplorationPeriod    int
	MinFitPoints         int
	FailureWarnThreshold int
	// EvaluatorTimeout bounds one pipeline call; a timed-out call is
	// recorded as a failed observation, not a loop failure. Zero disables
	// the deadline.
	EvaluatorTimeout time.Duration
	// Seed drives the sampler, the exploration override and the
	// acquisition restarts. Zero derives a seed from the clock.
	Seed int64
}

// Validate checks the configuration. Bounds violations surface as
// *models.InvalidBoundsError.
func (c *Config) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.InitialSamples <= 0 {
		return fmt.Errorf("initial samples must be positive, got %d", c.InitialSamples)
	}
	if c.IterationBudget < 0 {
		return fmt.Errorf("iteration budget cannot be negative, got %d", c.IterationBudget)
	}
	if c.ExplorationPeriod <= 0 {
		return fmt.Errorf("exploration period must be positive, got %d", c.ExplorationPeriod)
	}
	if c.MinFitPoints < 2 {
		return fmt.Errorf("min fit points must be at least 2, got %d", c.MinFitPoints)
	}
	if c.FailureWarnThreshold <= 0 {
		return fmt.Errorf("failure warn threshold must be positive, got %d", c.FailureWarnThreshold)
	}
	return nil
}

// Summary is the user-visible result of a campaign run. Failed attempts are
// reported separately and are never dropped from the schedule accounting.
type Summary struct {
	State               State               `json:"state"`
	TotalEvaluations    int                 `json:"total_evaluations"`
	Succeeded           int                 `json:"succeeded"`
	Failed              int                 `json:"failed"`
	IterationsCompleted int                 `json:"iterations_completed"`
	RandomSelections    int                 `json:"random_selections"`
	Best                *models.Observation `json:"best,omitempty"`
	Warnings            []string            `json:"warnings,omitempty"`
	DurationMs          int64               `json:"duration_ms"`
}

// Runner executes one campaign. It is the sole writer of the dataset; the
// loop is strictly sequential because each selection depends on the
// surrogate fit over all prior observations.
type Runner struct {
	cfg    Config
	store  dataset.Store
	eval   evaluator.Evaluator
	model  surrogate.Model
	policy *acquisition.Policy
	rng    *utils.RandSource

	collector *metrics.Collector
	log       *slog.Logger
	progress  func(completed int, best float64)

	mu               sync.RWMutex
	state            State
	data             *dataset.Dataset
	randomSelections int
	warnings         []string
}

// NewRunner creates a campaign runner. Configuration and bounds errors are
// fatal here, before any pipeline call.
func NewRunner(cfg Config, store dataset.Store, eval evaluator.Evaluator) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("observation store is required")
	}
	if eval == nil {
		return nil, fmt.Errorf("evaluator is required")
	}

	rng := utils.NewRandSource(cfg.Seed)
	return &Runner{
		cfg:    cfg,
		store:  store,
		eval:   eval,
		model:  surrogate.NewGP(cfg.Bounds, cfg.MinFitPoints),
		policy: acquisition.NewPolicy(cfg.ExplorationPeriod, rng),
		rng:    rng,
		log:    logger.Default,
		state:  StateInitializing,
	}, nil
}

// WithModel swaps the surrogate implementation.
func (r *Runner) WithModel(m surrogate.Model) *Runner {
	r.model = m
	return r
}

// WithPolicy swaps the acquisition policy.
func (r *Runner) WithPolicy(p *acquisition.Policy) *Runner {
	r.policy = p
	return r
}

// WithMetrics attaches a Prometheus collector.
func (r *Runner) WithMetrics(c *metrics.Collector) *Runner {
	r.collector = c
	return r
}

// WithLogger overrides the default logger.
func (r *Runner) WithLogger(log *slog.Logger) *Runner {
	r.log = log
	return r
}

// WithProgressReporter registers a callback invoked after each completed
// iteration with the completed count and the incumbent best objective.
func (r *Runner) WithProgressReporter(fn func(completed int, best float64)) *Runner {
	r.progress = fn
	return r
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes the loop to budget exhaustion, resuming from whatever the
// store already holds. The stop signal is checked between iterations, never
// mid-evaluation; on cancellation the dataset is left consistent and
// resumable and the partial summary is returned alongside ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	r.setState(StateInitializing)

	existing, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observation log: %w", err)
	}
	r.mu.Lock()
	r.data = dataset.New(existing)
	r.mu.Unlock()

	if r.data.Len() < r.cfg.InitialSamples {
		if err := r.seed(ctx); err != nil {
			return r.summary(start), err
		}
	}

	r.setState(StateIterating)
	consecFailures := 0
	for r.completed() < r.cfg.IterationBudget {
		select {
		case <-ctx.Done():
			return r.summary(start), ctx.Err()
		default:
		}

		sel, err := r.selectNext()
		if err != nil {
			// DomainError: configuration bug, surfaced immediately.
			return r.summary(start), err
		}

		obs, err := r.evaluate(ctx, sel.Point, fmt.Sprintf("iter_%d", r.completed()+1))
		if err != nil {
			return r.summary(start), err
		}
		if err := r.record(ctx, obs); err != nil {
			return r.summary(start), err
		}

		r.mu.Lock()
		if sel.Random {
			r.randomSelections++
		}
		r.mu.Unlock()
		if r.collector != nil {
			r.collector.RecordIteration(sel.Random)
		}

		if obs.Succeeded() {
			consecFailures = 0
		} else {
			consecFailures++
			if consecFailures == r.cfg.FailureWarnThreshold {
				warning := fmt.Sprintf("%d consecutive evaluator failures", consecFailures)
				r.log.Warn("evaluator failure streak", "count", consecFailures, "last_point", obs.Params.String())
				r.mu.Lock()
				r.warnings = append(r.warnings, warning)
				r.mu.Unlock()
			}
		}

		if best, ok := r.data.BestSoFar(); ok {
			if r.collector != nil {
				r.collector.SetBestObjective(best.Objective)
			}
			if r.progress != nil {
				r.progress(r.completed(), best.Objective)
			}
		}
	}

	r.setState(StateTerminated)
	summary := r.summary(start)
	r.log.Info("campaign terminated",
		"iterations", summary.IterationsCompleted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"random_selections", summary.RandomSelections,
	)
	return summary, nil
}

// completed returns the number of finished loop iterations, derived from
// the dataset length so resumed campaigns keep exact budget accounting.
func (r *Runner) completed() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return utils.Max(0, r.data.Len()-r.cfg.InitialSamples)
}

// seed evaluates the Latin hypercube design. The design is a deterministic
// function of the campaign seed, so a run interrupted mid-seed resumes with
// the same remaining points.
func (r *Runner) seed(ctx context.Context) error {
	points, err := sampler.Generate(r.cfg.InitialSamples, r.cfg.Bounds, r.rng)
	if err != nil {
		return err
	}

	for _, p := range points[r.data.Len():] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		obs, err := r.evaluate(ctx, p, "seed")
		if err != nil {
			return err
		}
		if err := r.record(ctx, obs); err != nil {
			return err
		}
	}
	return nil
}

// selectNext fits the surrogate and asks the policy for the next design.
// An insufficient-data fit is recoverable: the policy falls back to a
// uniform random draw.
func (r *Runner) selectNext() (acquisition.Selection, error) {
	var fitted surrogate.Fitted
	fitted, err := r.model.Fit(r.data.Successes())
	if err != nil {
		var ide *surrogate.InsufficientDataError
		if errors.As(err, &ide) {
			r.log.Debug("surrogate fit skipped", "reason", err.Error())
		} else {
			r.log.Warn("surrogate fit failed, forcing random sample", "error", err)
		}
		fitted = nil
	}

	best, ok := r.data.BestSoFar()
	if !ok {
		fitted = nil
	}
	return r.policy.SelectNext(fitted, r.cfg.Bounds, r.data.Len(), best.Objective)
}

// evaluate runs one pipeline call under the configured deadline, absorbing
// evaluator failures and timeouts into a failed observation. It returns an
// error only when the surrounding run context was cancelled, so a shutdown
// never fabricates a failed record.
func (r *Runner) evaluate(ctx context.Context, p models.ParameterVector, note string) (models.Observation, error) {
	evalCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.cfg.EvaluatorTimeout > 0 {
		evalCtx, cancel = context.WithTimeout(ctx, r.cfg.EvaluatorTimeout)
	}
	defer cancel()

	evalStart := time.Now()
	objective, err := r.eval.Evaluate(evalCtx, p)
	elapsed := time.Since(evalStart)

	obs := models.Observation{
		Params:          p,
		Status:          models.ObservationSuccess,
		Objective:       objective,
		Note:            note,
		CreatedAtUnixMs: time.Now().UTC().UnixMilli(),
	}
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not an evaluator verdict.
			return models.Observation{}, ctx.Err()
		}
		obs.Status = models.ObservationFailed
		obs.Objective = 0
		r.log.Info("evaluation failed", "point", p.String(), "note", note, "error", err)
	} else {
		r.log.Info("evaluation completed", "point", p.String(), "note", note, "objective", objective, "elapsed", elapsed.String())
	}

	if r.collector != nil {
		r.collector.RecordEvaluation(obs.Status, elapsed)
	}
	return obs, nil
}

// record appends the observation durably, then to the in-memory dataset.
func (r *Runner) record(ctx context.Context, obs models.Observation) error {
	if err := r.store.Append(ctx, obs); err != nil {
		return fmt.Errorf("persist observation: %w", err)
	}
	r.mu.Lock()
	r.data.Append(obs)
	r.mu.Unlock()
	return nil
}

// summary snapshots the run outcome.
func (r *Runner) summary(start time.Time) *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Summary{
		State:            r.state,
		DurationMs:       time.Since(start).Milliseconds(),
		RandomSelections: r.randomSelections,
		Warnings:         append([]string(nil), r.warnings...),
	}
	if r.data != nil {
		s.TotalEvaluations = r.data.Len()
		s.Succeeded = r.data.Succeeded()
		s.Failed = r.data.Failed()
		s.IterationsCompleted = utils.Max(0, r.data.Len()-r.cfg.InitialSamples)
		if best, ok := r.data.BestSoFar(); ok {
			s.Best = &best
		}
	}
	return s
}

// Snapshot returns a copy of the current dataset for monitoring callers.
// Readers never see the live slice being appended to.
func (r *Runner) Snapshot() []models.Observation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil
	}
	return r.data.All()
}
