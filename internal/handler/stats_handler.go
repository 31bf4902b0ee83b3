package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"folio-analytics/internal/service"
	"folio-analytics/pkg/logger"
)

// StatsHandler serves the read-only reporting endpoints.
type StatsHandler struct {
	statsService service.StatsService
	logger       *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService service.StatsService, logger *logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		logger:       logger,
	}
}

// limitParam parses the optional ?limit= query parameter; 0 means default.
func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

// GetOverview handles GET /api/stats/overview
func (h *StatsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetOverviewStats(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats, h.logger)
}

// GetTopPages handles GET /api/stats/pages
func (h *StatsHandler) GetTopPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.statsService.GetTopPages(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, pages, h.logger)
}

// GetLocations handles GET /api/stats/locations
func (h *StatsHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.statsService.GetVisitorLocations(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, locations, h.logger)
}

// GetRecentVisits handles GET /api/stats/visits
func (h *StatsHandler) GetRecentVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.statsService.GetRecentVisits(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, visits, h.logger)
}

// GetTopExternalLinks handles GET /api/stats/links/top
func (h *StatsHandler) GetTopExternalLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.statsService.GetTopExternalLinks(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, links, h.logger)
}

// GetExternalLinksByPage handles GET /api/stats/links/by-page
func (h *StatsHandler) GetExternalLinksByPage(w http.ResponseWriter, r *http.Request) {
	links, err := h.statsService.GetExternalLinksByPage(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, links, h.logger)
}

// GetRecentExternalLinks handles GET /api/stats/links/recent
func (h *StatsHandler) GetRecentExternalLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.statsService.GetRecentExternalLinks(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, links, h.logger)
}

// GetActiveSessions handles GET /api/stats/sessions
func (h *StatsHandler) GetActiveSessions(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetActiveSessionStats(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats, h.logger)
}

// GetRecentActiveSessions handles GET /api/stats/sessions/recent
func (h *StatsHandler) GetRecentActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.statsService.GetRecentActiveSessions(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, sessions, h.logger)
}

// RegisterRoutes registers stats handler routes with the router
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/overview", h.GetOverview)
		r.Get("/pages", h.GetTopPages)
		r.Get("/locations", h.GetLocations)
		r.Get("/visits", h.GetRecentVisits)
		r.Get("/links/top", h.GetTopExternalLinks)
		r.Get("/links/by-page", h.GetExternalLinksByPage)
		r.Get("/links/recent", h.GetRecentExternalLinks)
		r.Get("/sessions", h.GetActiveSessions)
		r.Get("/sessions/recent", h.GetRecentActiveSessions)
	})
}
