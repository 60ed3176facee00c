package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"leaddash/internal/models"
	"leaddash/internal/validation"
)

// DashboardService is the read side of the dashboard service.
type DashboardService interface {
	Dashboard(ctx context.Context, hours int) (models.DashboardResponse, error)
	RejectionCounts(ctx context.Context, hours int) ([]models.ReasonCount, error)
	LatestLeads(ctx context.Context) (models.LatestLeadsResponse, error)
	LeadSearch(ctx context.Context, limit int) (models.LeadSearchResponse, error)
	LeadJourney(ctx context.Context) (models.JourneyResponse, error)
}

// DashboardHandler serves the dashboard datasets as JSON and CSV.
type DashboardHandler struct {
	svc     DashboardService
	windows []int
	logger  *slog.Logger
}

// NewDashboardHandler creates a dashboard handler accepting the given time
// windows in hours.
func NewDashboardHandler(svc DashboardService, windows []int, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		svc:     svc,
		windows: windows,
		logger:  logger.With("component", "api"),
	}
}

// dashboardVersion identifies one cached dashboard bundle.
type dashboardVersion struct {
	Hours    int                  `json:"hours"`
	CachedAt time.Time            `json:"cached_at"`
	Data     models.DashboardData `json:"data"`
}

// Dashboard returns the aggregated dashboard for ?hours=N.
func (h *DashboardHandler) Dashboard(c fiber.Ctx) error {
	hours := validation.ParseWindow(c.Query("hours"), h.windows)

	resp, err := h.svc.Dashboard(c.Context(), hours)
	if err != nil {
		h.logger.Error("failed to load dashboard", "hours", hours, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to load dashboard")
	}

	return jsonCached(c, resp, dashboardVersion{
		Hours:    resp.Hours,
		CachedAt: resp.CachedAt,
		Data:     resp.DashboardData,
	})
}

// LatestLeads returns the newest decided leads.
func (h *DashboardHandler) LatestLeads(c fiber.Ctx) error {
	resp, err := h.svc.LatestLeads(c.Context())
	if err != nil {
		h.logger.Error("failed to load latest leads", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to load latest leads")
	}
	return jsonCached(c, resp, resp.Leads)
}

// LeadSearch returns up to ?limit=N of the newest decided leads.
func (h *DashboardHandler) LeadSearch(c fiber.Ctx) error {
	limit := validation.ParseLimit(c.Query("limit"))

	resp, err := h.svc.LeadSearch(c.Context(), limit)
	if err != nil {
		h.logger.Error("failed to search leads", "limit", limit, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to search leads")
	}
	return jsonCached(c, resp, resp)
}

// LeadJourney returns every lead of the journey window.
func (h *DashboardHandler) LeadJourney(c fiber.Ctx) error {
	resp, err := h.svc.LeadJourney(c.Context())
	if err != nil {
		h.logger.Error("failed to load lead journey", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to load lead journey")
	}
	return jsonCached(c, resp, resp.Entries)
}

// RejectionsCSV exports the unfiltered rejection reason counts for ?hours=N.
func (h *DashboardHandler) RejectionsCSV(c fiber.Ctx) error {
	hours := validation.ParseWindow(c.Query("hours"), h.windows)

	counts, err := h.svc.RejectionCounts(c.Context(), hours)
	if err != nil {
		h.logger.Error("failed to load rejection counts", "hours", hours, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to load rejection counts")
	}

	body, err := encodeReasonsCSV(counts)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to encode csv")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="rejections_%dh.csv"`, hours))
	return c.Send(body)
}

func encodeReasonsCSV(counts []models.ReasonCount) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"reason", "count", "percentage"}); err != nil {
		return nil, err
	}
	for _, rc := range counts {
		record := []string{
			rc.Reason,
			strconv.Itoa(rc.Count),
			strconv.FormatFloat(rc.Percentage, 'f', 1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
