package latticed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/campaign"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/dataset"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/evaluator"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/metrics"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/store/sqlite"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/config"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/logger"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignExists    = errors.New("campaign already exists")
	ErrCampaignTerminal  = errors.New("campaign is terminal")
	ErrCampaignIDMissing = errors.New("campaign_id is required")
)

// CampaignExecutor runs campaigns asynchronously with per-campaign
// cancellation. Each campaign gets its own durable observation log so a
// restarted service can resume any of them.
type CampaignExecutor struct {
	store     *CampaignStore
	cfg       *config.Config
	collector *metrics.Collector

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewCampaignExecutor(store *CampaignStore, cfg *config.Config, collector *metrics.Collector) *CampaignExecutor {
	return &CampaignExecutor{
		store:     store,
		cfg:       cfg,
		collector: collector,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Start begins executing a campaign asynchronously and returns the updated
// record (running) or an error.
func (e *CampaignExecutor) Start(id string) (CampaignRecord, error) {
	if id == "" {
		return CampaignRecord{}, ErrCampaignIDMissing
	}

	rec, ok := e.store.Get(id)
	if !ok {
		return CampaignRecord{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	if rec.Status == StatusRunning {
		return rec, nil
	}
	if rec.Status.Terminal() {
		return CampaignRecord{}, fmt.Errorf("%w: %s", ErrCampaignTerminal, id)
	}

	obsStore, err := sqlite.Open(e.campaignDBPath(id))
	if err != nil {
		return CampaignRecord{}, fmt.Errorf("open observation log: %w", err)
	}

	eval, err := BuildEvaluator(e.cfg.Evaluator)
	if err != nil {
		obsStore.Close()
		return CampaignRecord{}, err
	}

	runner, err := campaign.NewRunner(rec.Config, obsStore, eval)
	if err != nil {
		obsStore.Close()
		return CampaignRecord{}, err
	}
	if e.collector != nil {
		runner.WithMetrics(e.collector)
	}
	if err := e.store.SetRunner(id, runner); err != nil {
		obsStore.Close()
		return CampaignRecord{}, err
	}

	updated, err := e.store.SetStatus(id, StatusRunning, "")
	if err != nil {
		obsStore.Close()
		return CampaignRecord{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[id]; exists {
		old()
	}
	e.cancels[id] = cancel
	e.mu.Unlock()

	go e.runCampaign(ctx, id, runner, obsStore)
	return updated, nil
}

// Stop requests cancellation for a running campaign. The loop observes the
// signal between iterations, so the dataset stays consistent and resumable.
func (e *CampaignExecutor) Stop(id string) (CampaignRecord, error) {
	if id == "" {
		return CampaignRecord{}, ErrCampaignIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(id, StatusCancelled, "")
	if err != nil {
		return CampaignRecord{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	return updated, nil
}

func (e *CampaignExecutor) cleanup(id string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
		delete(e.cancels, id)
	}
	e.mu.Unlock()
}

func (e *CampaignExecutor) runCampaign(ctx context.Context, id string, runner *campaign.Runner, obsStore dataset.Store) {
	defer e.cleanup(id)
	defer func() {
		if err := obsStore.Close(); err != nil {
			logger.Error("failed to close observation log", "campaign_id", id, "error", err)
		}
	}()

	summary, err := runner.Run(ctx)
	if summary != nil {
		if setErr := e.store.SetSummary(id, summary); setErr != nil {
			logger.Error("failed to store summary", "campaign_id", id, "error", setErr)
		}
	}

	switch {
	case err == nil:
		if _, setErr := e.store.SetStatus(id, StatusCompleted, ""); setErr != nil {
			logger.Error("failed to set completed status", "campaign_id", id, "error", setErr)
			return
		}
		logger.Info("campaign completed", "campaign_id", id,
			"evaluations", summary.TotalEvaluations,
			"random_selections", summary.RandomSelections)
	case errors.Is(err, context.Canceled):
		logger.Info("campaign cancelled", "campaign_id", id)
		// Status was already set by Stop.
	default:
		logger.Error("campaign failed", "campaign_id", id, "error", err)
		if _, setErr := e.store.SetStatus(id, StatusFailed, err.Error()); setErr != nil {
			logger.Error("failed to set failed status", "campaign_id", id, "error", setErr)
		}
	}
}

// campaignDBPath derives a per-campaign database file from the configured
// storage path, e.g. data/lattice.db -> data/lattice-<id>.db.
func (e *CampaignExecutor) campaignDBPath(id string) string {
	base := e.cfg.Storage.Path
	if base == "" {
		base = "lattice.db"
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".db"
	}
	return stem + "-" + id + ext
}

// BuildEvaluator constructs the configured pipeline boundary. It is shared
// by the service executor and the CLI.
func BuildEvaluator(ec config.EvaluatorConfig) (evaluator.Evaluator, error) {
	switch ec.Type {
	case "synthetic", "":
		return evaluator.Synthetic(), nil
	case "http":
		if ec.URL == "" {
			return nil, fmt.Errorf("evaluator url is required for http type")
		}
		backoff, err := buildBackoff(ec)
		if err != nil {
			return nil, err
		}
		return evaluator.NewHTTPClient(ec.URL, ec.MaxRetries, backoff), nil
	default:
		return nil, fmt.Errorf("unknown evaluator type: %q", ec.Type)
	}
}

func buildBackoff(ec config.EvaluatorConfig) (utils.BackoffStrategy, error) {
	base := time.Duration(ec.BackoffBaseMs) * time.Millisecond
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	switch ec.Backoff {
	case "constant":
		return utils.NewConstantBackoff(base), nil
	case "linear":
		return utils.NewLinearBackoff(base, 30*time.Second), nil
	case "exponential", "":
		return utils.NewExponentialBackoff(base, 30*time.Second, 2.0, nil), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy: %q", ec.Backoff)
	}
}
