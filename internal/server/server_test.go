package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leaddash/internal/config"
	"leaddash/internal/models"
)

type stubService struct{}

func (stubService) Dashboard(_ context.Context, hours int) (models.DashboardResponse, error) {
	return models.DashboardResponse{Hours: hours}, nil
}

func (stubService) RejectionCounts(context.Context, int) ([]models.ReasonCount, error) {
	return []models.ReasonCount{{Reason: "Duplicate Lead", Count: 1, Percentage: 100}}, nil
}

func (stubService) LatestLeads(context.Context) (models.LatestLeadsResponse, error) {
	return models.LatestLeadsResponse{}, nil
}

func (stubService) LeadSearch(context.Context, int) (models.LeadSearchResponse, error) {
	return models.LeadSearchResponse{}, nil
}

func (stubService) LeadJourney(context.Context) (models.JourneyResponse, error) {
	return models.JourneyResponse{Hours: 72}, nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

func newTestServer(rateLimit int) *Server {
	cfg := &config.Config{ServerAddr: ":0", RateLimit: rateLimit}
	s := New(cfg, nil)
	s.RegisterRoutes(stubService{}, stubPinger{}, config.DefaultWindows)
	return s
}

func TestRoutesRegistered(t *testing.T) {
	s := newTestServer(1000)

	paths := []string{
		"/healthz",
		"/readyz",
		"/metrics",
		"/api/dashboard?hours=24",
		"/api/latest-leads",
		"/api/lead-search/latest?limit=5",
		"/api/lead-journey",
		"/api/rejections.csv",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, path, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	s := newTestServer(1000)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(1000)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if id := resp.Header.Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want a uuid", id)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(2)

	var last int
	for i := 0; i < 3; i++ {
		resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 on the third request, got %d", last)
	}
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	s := newTestServer(1000)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("metrics body missing runtime metrics: %.200s", body)
	}
}
