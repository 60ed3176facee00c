package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leaddash/internal/handlers/api"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(svc api.DashboardService, store api.Pinger, windows []int) {
	// Initialize handlers
	dashboardHandler := api.NewDashboardHandler(svc, windows, s.logger)
	probeHandler := api.NewProbeHandler(store)

	// Probes and metrics
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Dashboard API
	apiGroup := s.App.Group("/api")
	apiGroup.Get("/dashboard", dashboardHandler.Dashboard)
	apiGroup.Get("/latest-leads", dashboardHandler.LatestLeads)
	apiGroup.Get("/lead-search/latest", dashboardHandler.LeadSearch)
	apiGroup.Get("/lead-journey", dashboardHandler.LeadJourney)
	apiGroup.Get("/rejections.csv", dashboardHandler.RejectionsCSV)
}
