// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailmark-ai/trailmark-go/internal/application/services"
	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/analysis"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
)

// HistoryHandlers contains the ingest, session-read, and dispatch handlers.
type HistoryHandlers struct {
	ingestService     *services.IngestService
	derivationService *services.DerivationService
	dispatchService   *services.DispatchService
	visits            services.VisitStore
	analyzed          services.AnalyzedStore
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewHistoryHandlers creates history handlers with injected dependencies
func NewHistoryHandlers(ingestService *services.IngestService, derivationService *services.DerivationService, dispatchService *services.DispatchService, visits services.VisitStore, analyzed services.AnalyzedStore, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *HistoryHandlers {
	return &HistoryHandlers{
		ingestService:     ingestService,
		derivationService: derivationService,
		dispatchService:   dispatchService,
		visits:            visits,
		analyzed:          analyzed,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// visitEventRequest is one raw event in an ingest payload.
type visitEventRequest struct {
	URL       string  `json:"url" binding:"required"`
	Title     string  `json:"title"`
	VisitTime float64 `json:"visit_time"`
}

// PostVisits handles POST /api/v1/visits - ingests a batch of raw events.
func (h *HistoryHandlers) PostVisits(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_visits_request")
	defer marker.Complete()
	h.logger.Ingest().Debug("Received ingest request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var req struct {
		Visits []visitEventRequest `json:"visits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Ingest().Error("Malformed ingest payload", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "visits array required"})
		return
	}

	events := make([]history.RawVisitEvent, len(req.Visits))
	for i, visit := range req.Visits {
		events[i] = history.RawVisitEvent{URL: visit.URL, Title: visit.Title, VisitTime: visit.VisitTime}
	}

	result, err := h.ingestService.IngestBatch(events)
	if err != nil {
		marker.SetError(err)
		h.logger.Ingest().Error("Ingest failed", "error", err.Error(), "events", len(events))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store visits"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, result)
}

// GetSessions handles GET /api/v1/sessions - the derived session read
// contract.
func (h *HistoryHandlers) GetSessions(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_sessions_request")
	defer marker.Complete()

	sessions, err := h.derivationService.GetAllSessions(time.Now().UTC())
	if err != nil {
		marker.SetError(err)
		h.logger.Sessions().Error("Session derivation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive sessions"})
		return
	}

	payloads := make([]analysis.SessionPayload, len(sessions))
	for i, session := range sessions {
		payloads[i] = analysis.BuildPayload(session)
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"sessions": payloads})
}

// historyItemResponse is one raw log entry in the read contract.
type historyItemResponse struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	VisitTime        string `json:"visit_time"`
	URLHostname      string `json:"url_hostname"`
	URLPathnameClean string `json:"url_pathname_clean"`
	URLSearchQuery   string `json:"url_search_query"`
}

// GetHistory handles GET /api/v1/history - the raw bounded visit log.
func (h *HistoryHandlers) GetHistory(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_history_request")
	defer marker.Complete()

	records, err := h.visits.FindAll()
	if err != nil {
		marker.SetError(err)
		h.logger.Ingest().Error("Failed to read visit log", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}

	items := make([]historyItemResponse, len(records))
	for i, record := range records {
		items[i] = historyItemResponse{
			URL:              record.URL,
			Title:            record.Title,
			VisitTime:        record.VisitTime().Format(time.RFC3339),
			URLHostname:      record.Hostname,
			URLPathnameClean: record.CleanedPath,
			URLSearchQuery:   record.SearchQuery,
		}
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// PostAnalyze handles POST /api/v1/analyze - a manual dispatch sweep.
// ?force=true bypasses the analyzed-set check and includes the open session.
func (h *HistoryHandlers) PostAnalyze(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_analyze_request")
	defer marker.Complete()

	force := c.Query("force") == "true"
	result, err := h.dispatchService.Sweep(c.Request.Context(), force)
	if err != nil {
		marker.SetError(err)
		h.logger.Dispatch().Error("Manual dispatch sweep failed", "error", err.Error(), "force", force)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch sweep failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, result)
}

// GetStats handles GET /api/v1/stats - log and session counters.
func (h *HistoryHandlers) GetStats(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_stats_request")
	defer marker.Complete()

	recordCount, err := h.visits.Count()
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}

	sessions, err := h.derivationService.GetAllSessions(time.Now().UTC())
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive sessions"})
		return
	}

	closedCount := 0
	openCount := 0
	for _, session := range sessions {
		if session.Status == history.StatusClosed {
			closedCount++
		} else {
			openCount++
		}
	}

	analyzedCount, err := h.analyzed.Count()
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read analyzed set"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"records":         recordCount,
		"closed_sessions": closedCount,
		"open_sessions":   openCount,
		"analyzed":        analyzedCount,
	})
}
