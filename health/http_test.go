package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLivenessHandler(t *testing.T) {
	handler := LivenessHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("Body = %v, want 'OK'", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "text/plain" {
		t.Errorf("Content-Type = %v, want 'text/plain'", rec.Header().Get("Content-Type"))
	}
}

func TestReadinessHandler_Healthy(t *testing.T) {
	agg := NewAggregator()
	agg.Register("test", healthyChecker("test"))

	handler := ReadinessHandler(agg)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("Body = %v, want 'OK'", rec.Body.String())
	}
}

func TestReadinessHandler_Degraded(t *testing.T) {
	agg := NewAggregator()
	agg.Register("test", NewCheckerFunc("test", func(ctx context.Context) Result {
		return Degraded("saturated")
	}))

	handler := ReadinessHandler(agg)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d (degraded should still be OK)", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "DEGRADED" {
		t.Errorf("Body = %v, want 'DEGRADED'", rec.Body.String())
	}
}

func TestReadinessHandler_Unhealthy(t *testing.T) {
	agg := NewAggregator()
	agg.Register("test", NewCheckerFunc("test", func(ctx context.Context) Result {
		return Unhealthy("circuit open", ErrCircuitOpen)
	}))

	handler := ReadinessHandler(agg)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec.Body.String() != "UNHEALTHY" {
		t.Errorf("Body = %v, want 'UNHEALTHY'", rec.Body.String())
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("circuit", NewCheckerFunc("circuit", func(ctx context.Context) Result {
		return Healthy("closed").WithDetails(map[string]any{"state": "closed"})
	}))
	agg.Register("limiter", NewCheckerFunc("limiter", func(ctx context.Context) Result {
		return Degraded("saturated")
	}))

	handler := DetailedHandler(agg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %v, want 'application/json'", rec.Header().Get("Content-Type"))
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("response status = %q, want 'degraded'", resp.Status)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(resp.Checks))
	}
	if resp.Checks["circuit"].Details["state"] != "closed" {
		t.Errorf("circuit details = %v, want state=closed", resp.Checks["circuit"].Details)
	}
}

func TestDetailedHandler_Unhealthy(t *testing.T) {
	agg := NewAggregator()
	agg.Register("down", NewCheckerFunc("down", func(ctx context.Context) Result {
		return Unhealthy("probe failed", ErrCheckFailed)
	}))

	handler := DetailedHandler(agg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Checks["down"].Error == "" {
		t.Error("expected error message in check response")
	}
}

func TestSingleCheckHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("circuit", healthyChecker("circuit"))

	handler := SingleCheckHandler(agg, "circuit")

	req := httptest.NewRequest(http.MethodGet, "/health/circuit", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want 'healthy'", resp.Status)
	}
}

func TestSingleCheckHandler_NotFound(t *testing.T) {
	agg := NewAggregator()

	handler := SingleCheckHandler(agg, "missing")

	req := httptest.NewRequest(http.MethodGet, "/health/missing", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterHandlers(t *testing.T) {
	agg := NewAggregator()
	agg.Register("test", healthyChecker("test"))

	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s Status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
