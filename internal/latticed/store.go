// Package latticed is the service layer: an in-memory campaign registry, an
// executor that drives campaigns asynchronously, and the HTTP surface for
// monitoring them.
package latticed

import (
	"fmt"
	"sync"
	"time"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/campaign"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

type CampaignStatus string

const (
	StatusPending   CampaignStatus = "pending"
	StatusRunning   CampaignStatus = "running"
	StatusCompleted CampaignStatus = "completed"
	StatusFailed    CampaignStatus = "failed"
	StatusCancelled CampaignStatus = "cancelled"
)

func (s CampaignStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CampaignRecord tracks one campaign through its lifecycle. Runner is set
// when execution starts and stays available afterwards so the dataset and
// surrogate remain queryable.
//
// Accessors return value snapshots taken under the store lock; callers never
// see a record the executor goroutine is still mutating. The Runner and
// Summary pointers inside a snapshot are safe to use: the runner is
// internally synchronized and a summary is never modified once set.
type CampaignRecord struct {
	ID              string
	Status          CampaignStatus
	Config          campaign.Config
	Summary         *campaign.Summary
	Error           string
	CreatedAtUnixMs int64
	StartedAtUnixMs int64
	EndedAtUnixMs   int64

	Runner *campaign.Runner
}

type CampaignStore struct {
	mu        sync.RWMutex
	campaigns map[string]*CampaignRecord
	order     []string
}

func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		campaigns: make(map[string]*CampaignRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *CampaignStore) Create(id string, cfg campaign.Config) (CampaignRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = utils.GenerateCampaignID()
	}
	if _, exists := s.campaigns[id]; exists {
		return CampaignRecord{}, fmt.Errorf("%w: %s", ErrCampaignExists, id)
	}

	rec := &CampaignRecord{
		ID:              id,
		Status:          StatusPending,
		Config:          cfg,
		CreatedAtUnixMs: nowUnixMs(),
	}
	s.campaigns[id] = rec
	s.order = append(s.order, id)
	return *rec, nil
}

func (s *CampaignStore) Get(id string) (CampaignRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.campaigns[id]
	if !ok {
		return CampaignRecord{}, false
	}
	return *rec, true
}

// ListFiltered returns campaign snapshots in creation order, optionally
// filtered by status, with offset/limit pagination.
func (s *CampaignStore) ListFiltered(limit, offset int, status CampaignStatus) []CampaignRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	out := make([]CampaignRecord, 0, utils.Min(limit, len(s.order)))
	skipped := 0
	for _, id := range s.order {
		rec := s.campaigns[id]
		if status != "" && rec.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, *rec)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *CampaignStore) SetRunner(id string, r *campaign.Runner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign not found: %s", id)
	}
	rec.Runner = r
	return nil
}

func (s *CampaignStore) SetStatus(id string, status CampaignStatus, errMsg string) (CampaignRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.campaigns[id]
	if !ok {
		return CampaignRecord{}, fmt.Errorf("campaign not found: %s", id)
	}

	rec.Status = status
	if errMsg != "" {
		rec.Error = errMsg
	}

	switch status {
	case StatusRunning:
		if rec.StartedAtUnixMs == 0 {
			rec.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		rec.EndedAtUnixMs = nowUnixMs()
	}
	return *rec, nil
}

func (s *CampaignStore) SetSummary(id string, summary *campaign.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign not found: %s", id)
	}
	rec.Summary = summary
	return nil
}

// Observations returns the campaign's recorded dataset, or nil before the
// runner is attached.
func (s *CampaignStore) Observations(id string) ([]models.Observation, bool) {
	s.mu.RLock()
	rec, ok := s.campaigns[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if rec.Runner == nil {
		return nil, true
	}
	return rec.Runner.Snapshot(), true
}
