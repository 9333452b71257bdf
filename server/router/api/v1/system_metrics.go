package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/gamenoti/plugin/timeout"
	"github.com/hrygo/gamenoti/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64   `json:"total_requests"`
	SuccessRate   float64 `json:"success_rate"`
	P50LatencyMs  int64   `json:"p50_latency_ms"`
	P95LatencyMs  int64   `json:"p95_latency_ms"`
	ErrorCount    int64   `json:"error_count"`
	OCRCalls      int64   `json:"ocr_calls"`
	CacheHits     int64   `json:"cache_hits"`
	TimesFound    int64   `json:"times_found"`
	EmptyResults  int64   `json:"empty_results"`

	Operations map[string]*observability.OperationSnapshot `json:"operations"`
}

// HealthResponse is the body of GET /api/v1/healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Mode     string `json:"mode"`
	OCR      bool   `json:"ocr"`
	Timezone string `json:"timezone"`
}

// GetMetricsOverview returns the in-process extraction metrics.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snap := s.AlarmService.Metrics().Snapshot()
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		P50LatencyMs:  snap.P50LatencyMs,
		P95LatencyMs:  snap.P95LatencyMs,
		ErrorCount:    snap.RequestFailed,
		OCRCalls:      snap.OCRCalls,
		CacheHits:     snap.CacheHits,
		TimesFound:    snap.TimesFound,
		EmptyResults:  snap.EmptyResults,
		Operations:    snap.Operations,
	})
}

// Healthz reports liveness and whether image extraction can run.
// GET /api/v1/healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	ocr := s.AlarmService.OCREnabled()
	if ocr && s.OCRProbe != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout.HealthProbeTimeout)
		defer cancel()
		ocr = s.OCRProbe.IsAvailable(ctx)
	}

	status := "ok"
	if s.AlarmService.OCREnabled() && !ocr {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:   status,
		Version:  s.Profile.Version,
		Mode:     s.Profile.Mode,
		OCR:      ocr,
		Timezone: s.Profile.Timezone,
	})
}
