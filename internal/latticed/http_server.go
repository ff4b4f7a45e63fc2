package latticed

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/campaign"
	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/surrogate"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/config"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/logger"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *CampaignStore
	Executor *CampaignExecutor
	cfg      *config.Config
}

func NewHTTPServer(store *CampaignStore, executor *CampaignExecutor, cfg *config.Config, gatherer prometheus.Gatherer) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
		cfg:      cfg,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/campaigns", s.handleCampaigns)
	s.mux.HandleFunc("/v1/campaigns/", s.handleCampaignByID)
	s.mux.HandleFunc("/v1/predict", s.handlePredict)
	if gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCampaigns handles /v1/campaigns
func (s *HTTPServer) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateCampaign(w, r)
	case http.MethodGet:
		s.handleListCampaigns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCampaignByID handles /v1/campaigns/{id} and related endpoints
func (s *HTTPServer) handleCampaignByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/campaigns/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "campaign ID is required")
		return
	}

	if strings.HasSuffix(path, ":start") {
		id := strings.TrimSuffix(path, ":start")
		if r.Method == http.MethodPost {
			s.handleStartCampaign(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, ":stop") {
		id := strings.TrimSuffix(path, ":stop")
		if r.Method == http.MethodPost {
			s.handleStopCampaign(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/observations") {
		id := strings.TrimSuffix(path, "/observations")
		if r.Method == http.MethodGet {
			s.handleObservations(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetCampaign(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// createCampaignRequest carries per-campaign overrides; anything omitted
// falls back to the service configuration.
type createCampaignRequest struct {
	CampaignID        string         `json:"campaign_id,omitempty"`
	Bounds            *models.Bounds `json:"bounds,omitempty"`
	InitialSamples    *int           `json:"initial_samples,omitempty"`
	IterationBudget   *int           `json:"iteration_budget,omitempty"`
	ExplorationPeriod *int           `json:"exploration_period,omitempty"`
	Seed              *int64         `json:"seed,omitempty"`
	Start             bool           `json:"start,omitempty"`
}

// handleCreateCampaign handles POST /v1/campaigns
func (s *HTTPServer) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg, err := s.campaignConfig(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Create(req.CampaignID, cfg)
	if err != nil {
		if errors.Is(err, ErrCampaignExists) {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if req.Start {
		rec, err = s.Executor.Start(rec.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	logger.Info("campaign created", "campaign_id", rec.ID, "started", req.Start)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"campaign": convertCampaignToJSON(rec),
	})
}

// campaignConfig merges request overrides over the service defaults and
// validates the result before anything is registered.
func (s *HTTPServer) campaignConfig(req createCampaignRequest) (campaign.Config, error) {
	timeout, err := s.cfg.Evaluator.GetTimeout()
	if err != nil {
		return campaign.Config{}, err
	}

	cfg := campaign.Config{
		Bounds:               s.cfg.Bounds,
		InitialSamples:       s.cfg.Campaign.InitialSamples,
		IterationBudget:      s.cfg.Campaign.IterationBudget,
		ExplorationPeriod:    s.cfg.Campaign.ExplorationPeriod,
		MinFitPoints:         s.cfg.Campaign.MinFitPoints,
		FailureWarnThreshold: s.cfg.Campaign.FailureWarnThreshold,
		EvaluatorTimeout:     timeout,
		Seed:                 s.cfg.Campaign.Seed,
	}
	if req.Bounds != nil {
		cfg.Bounds = *req.Bounds
	}
	if req.InitialSamples != nil {
		cfg.InitialSamples = *req.InitialSamples
	}
	if req.IterationBudget != nil {
		cfg.IterationBudget = *req.IterationBudget
	}
	if req.ExplorationPeriod != nil {
		cfg.ExplorationPeriod = *req.ExplorationPeriod
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg, cfg.Validate()
}

// handleListCampaigns handles GET /v1/campaigns with pagination and filtering
func (s *HTTPServer) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = utils.Clamp(parsed, 1, 1000)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var statusFilter CampaignStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		statusFilter = parseCampaignStatus(statusStr)
		if statusFilter == "" {
			s.writeError(w, http.StatusBadRequest, "unknown status filter: "+statusStr)
			return
		}
	}

	recs := s.store.ListFiltered(limit, offset, statusFilter)
	campaignsJSON := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		campaignsJSON = append(campaignsJSON, convertCampaignToJSON(rec))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"campaigns": campaignsJSON,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(recs),
		},
	})
}

func parseCampaignStatus(statusStr string) CampaignStatus {
	switch strings.ToLower(statusStr) {
	case "pending":
		return StatusPending
	case "running":
		return StatusRunning
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	default:
		return ""
	}
}

// handleGetCampaign handles GET /v1/campaigns/{id}
func (s *HTTPServer) handleGetCampaign(w http.ResponseWriter, _ *http.Request, id string) {
	rec, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"campaign": convertCampaignToJSON(rec),
	})
}

// handleStartCampaign handles POST /v1/campaigns/{id}:start
func (s *HTTPServer) handleStartCampaign(w http.ResponseWriter, _ *http.Request, id string) {
	rec, err := s.Executor.Start(id)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrCampaignIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCampaignTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("campaign started", "campaign_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"campaign": convertCampaignToJSON(rec),
	})
}

// handleStopCampaign handles POST /v1/campaigns/{id}:stop
func (s *HTTPServer) handleStopCampaign(w http.ResponseWriter, _ *http.Request, id string) {
	rec, err := s.Executor.Stop(id)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrCampaignIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("campaign stop requested", "campaign_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"campaign": convertCampaignToJSON(rec),
	})
}

// handleObservations handles GET /v1/campaigns/{id}/observations
func (s *HTTPServer) handleObservations(w http.ResponseWriter, _ *http.Request, id string) {
	obs, ok := s.store.Observations(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	obsJSON := make([]map[string]any, 0, len(obs))
	for _, o := range obs {
		obsJSON = append(obsJSON, convertObservationToJSON(o))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"campaign_id":  id,
		"observations": obsJSON,
	})
}

type predictRequest struct {
	CampaignID string  `json:"campaign_id"`
	Porosity   float64 `json:"porosity"`
	Grading    float64 `json:"grading"`
	Periods    int     `json:"periods"`
}

// handlePredict handles POST /v1/predict: an instant surrogate query that
// never touches the evaluation pipeline.
func (s *HTTPServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.CampaignID == "" {
		s.writeError(w, http.StatusBadRequest, "campaign_id is required")
		return
	}

	rec, ok := s.store.Get(req.CampaignID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if rec.Runner == nil {
		s.writeError(w, http.StatusPreconditionFailed, "campaign has no observations yet")
		return
	}

	point := models.ParameterVector{
		Porosity: req.Porosity,
		Grading:  req.Grading,
		Periods:  req.Periods,
	}
	if !rec.Config.Bounds.Contains(point) {
		s.writeError(w, http.StatusBadRequest, "query point is outside the campaign bounds")
		return
	}

	gp := surrogate.NewGP(rec.Config.Bounds, rec.Config.MinFitPoints)
	fitted, err := gp.Fit(rec.Runner.Snapshot())
	if err != nil {
		var ide *surrogate.InsufficientDataError
		if errors.As(err, &ide) {
			s.writeError(w, http.StatusPreconditionFailed, err.Error())
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	pred, err := fitted.Predict(point)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"campaign_id": req.CampaignID,
		"point":       convertPointToJSON(point),
		"mean":        pred.Mean,
		"std_dev":     pred.StdDev,
	})
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func convertCampaignToJSON(rec CampaignRecord) map[string]any {
	out := map[string]any{
		"id":                 rec.ID,
		"status":             string(rec.Status),
		"created_at_unix_ms": rec.CreatedAtUnixMs,
		"started_at_unix_ms": rec.StartedAtUnixMs,
		"ended_at_unix_ms":   rec.EndedAtUnixMs,
		"error":              rec.Error,
		"config": map[string]any{
			"initial_samples":    rec.Config.InitialSamples,
			"iteration_budget":   rec.Config.IterationBudget,
			"exploration_period": rec.Config.ExplorationPeriod,
			"seed":               rec.Config.Seed,
			"bounds": map[string]any{
				"porosity": []float64{rec.Config.Bounds.Porosity.Min, rec.Config.Bounds.Porosity.Max},
				"grading":  []float64{rec.Config.Bounds.Grading.Min, rec.Config.Bounds.Grading.Max},
				"periods":  []float64{rec.Config.Bounds.Periods.Min, rec.Config.Bounds.Periods.Max},
			},
		},
	}
	if rec.Summary != nil {
		out["summary"] = convertSummaryToJSON(rec.Summary)
	}
	return out
}

func convertSummaryToJSON(s *campaign.Summary) map[string]any {
	out := map[string]any{
		"state":                string(s.State),
		"total_evaluations":    s.TotalEvaluations,
		"succeeded":            s.Succeeded,
		"failed":               s.Failed,
		"iterations_completed": s.IterationsCompleted,
		"random_selections":    s.RandomSelections,
		"duration_ms":          s.DurationMs,
	}
	if s.Best != nil {
		out["best"] = convertObservationToJSON(*s.Best)
	}
	if len(s.Warnings) > 0 {
		out["warnings"] = s.Warnings
	}
	return out
}

func convertObservationToJSON(o models.Observation) map[string]any {
	return map[string]any{
		"params":             convertPointToJSON(o.Params),
		"objective":          o.Objective,
		"status":             string(o.Status),
		"note":               o.Note,
		"created_at_unix_ms": o.CreatedAtUnixMs,
	}
}

func convertPointToJSON(p models.ParameterVector) map[string]any {
	return map[string]any{
		"porosity": p.Porosity,
		"grading":  p.Grading,
		"periods":  p.Periods,
	}
}
