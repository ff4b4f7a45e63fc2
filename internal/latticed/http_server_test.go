package latticed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjl33/Gyroid-Lattice-Optimization/internal/metrics"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/config"
)

func testServer(t *testing.T) (*HTTPServer, *CampaignStore) {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "lattice.db")
	cfg.Campaign.InitialSamples = 4
	cfg.Campaign.IterationBudget = 2
	cfg.Campaign.Seed = 7
	cfg.Evaluator.Type = "synthetic"

	reg := prometheus.NewRegistry()
	store := NewCampaignStore()
	executor := NewCampaignExecutor(store, cfg, metrics.NewCollector(reg))
	return NewHTTPServer(store, executor, cfg, reg), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	decoded := make(map[string]any)
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func waitForStatus(t *testing.T, store *CampaignStore, id string, want CampaignStatus) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := store.Get(id); ok && rec.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, _ := store.Get(id)
	t.Fatalf("campaign %s never reached %q (last status %q, error %q)", id, want, rec.Status, rec.Error)
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rr, body := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestCreateAndGetCampaign(t *testing.T) {
	srv, _ := testServer(t)

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"campaign_id": "camp-1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %v", rr.Code, body)
	}
	created := body["campaign"].(map[string]any)
	if created["id"] != "camp-1" || created["status"] != "pending" {
		t.Fatalf("created campaign = %v", created)
	}

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns/camp-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	got := body["campaign"].(map[string]any)
	if got["id"] != "camp-1" {
		t.Fatalf("got campaign = %v", got)
	}

	// Duplicate IDs conflict.
	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"campaign_id": "camp-1",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", rr.Code)
	}
}

func TestCreateCampaignRejectsInvalidOverrides(t *testing.T) {
	srv, _ := testServer(t)

	cases := []map[string]any{
		{"initial_samples": 0},
		{"exploration_period": 0},
		{"bounds": map[string]any{
			"porosity": map[string]any{"min": 0.9, "max": 0.3},
			"grading":  map[string]any{"min": 1.0, "max": 4.0},
			"periods":  map[string]any{"min": 1, "max": 8},
		}},
	}
	for i, req := range cases {
		rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d (%v), want 400", i, rr.Code, body)
		}
	}
}

func TestCampaignRunsToCompletion(t *testing.T) {
	srv, store := testServer(t)

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"campaign_id": "camp-run",
		"start":       true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %v", rr.Code, body)
	}

	waitForStatus(t, store, "camp-run", StatusCompleted)

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns/camp-run", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	summary, ok := body["campaign"].(map[string]any)["summary"].(map[string]any)
	if !ok {
		t.Fatalf("completed campaign has no summary: %v", body)
	}
	if got := summary["total_evaluations"].(float64); got != 6 {
		t.Fatalf("total evaluations = %v, want 6", got)
	}

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns/camp-run/observations", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("observations status = %d", rr.Code)
	}
	obs := body["observations"].([]any)
	if len(obs) != 6 {
		t.Fatalf("observations = %d, want 6", len(obs))
	}
}

func TestPredictEndpoint(t *testing.T) {
	srv, store := testServer(t)

	_, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"campaign_id": "camp-predict",
		"start":       true,
	})
	waitForStatus(t, store, "camp-predict", StatusCompleted)

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/predict", map[string]any{
		"campaign_id": "camp-predict",
		"porosity":    0.5,
		"grading":     2.0,
		"periods":     4,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("predict status = %d: %v", rr.Code, body)
	}
	if _, ok := body["mean"].(float64); !ok {
		t.Fatalf("predict body = %v", body)
	}
	if std := body["std_dev"].(float64); std < 0 {
		t.Fatalf("std_dev = %v, want non-negative", std)
	}

	// Out-of-bounds query point.
	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/predict", map[string]any{
		"campaign_id": "camp-predict",
		"porosity":    0.05,
		"grading":     2.0,
		"periods":     4,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out-of-bounds predict status = %d, want 400", rr.Code)
	}

	// Campaign with no data yet.
	_, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"campaign_id": "camp-empty",
	})
	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/predict", map[string]any{
		"campaign_id": "camp-empty",
		"porosity":    0.5,
		"grading":     2.0,
		"periods":     4,
	})
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("empty campaign predict status = %d, want 412", rr.Code)
	}
}

func TestStopAndTerminalStart(t *testing.T) {
	srv, store := testServer(t)

	_, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
		"campaign_id": "camp-stop",
	})

	rr, body := doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns/camp-stop:stop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stop status = %d: %v", rr.Code, body)
	}
	if rec, _ := store.Get("camp-stop"); rec.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", rec.Status)
	}

	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns/camp-stop:start", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("start on terminal campaign status = %d, want 409", rr.Code)
	}

	rr, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns/missing:stop", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("stop on missing campaign status = %d, want 404", rr.Code)
	}
}

func TestListCampaignsFiltered(t *testing.T) {
	srv, store := testServer(t)

	for i := 0; i < 3; i++ {
		_, _ = doJSON(t, srv.Handler(), http.MethodPost, "/v1/campaigns", map[string]any{
			"campaign_id": fmt.Sprintf("camp-%d", i),
		})
	}
	if _, err := store.SetStatus("camp-1", StatusCancelled, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	rr, body := doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns?status=pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	campaigns := body["campaigns"].([]any)
	if len(campaigns) != 2 {
		t.Fatalf("filtered list = %d entries, want 2", len(campaigns))
	}

	rr, body = doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns?limit=1&offset=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("paginated list status = %d", rr.Code)
	}
	campaigns = body["campaigns"].([]any)
	if len(campaigns) != 1 {
		t.Fatalf("paginated list = %d entries, want 1", len(campaigns))
	}

	rr, _ = doJSON(t, srv.Handler(), http.MethodGet, "/v1/campaigns?status=bogus", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bogus status filter = %d, want 400", rr.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rr.Code)
	}
}
