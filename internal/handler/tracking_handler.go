package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/service"
	"folio-analytics/pkg/errors"
	"folio-analytics/pkg/logger"
)

// TrackingHandler handles the fire-and-forget tracking endpoints. Store
// failures are logged but never surfaced: a broken analytics backend must not
// break the site embedding the tracking script.
type TrackingHandler struct {
	visitService      service.VisitService
	engagementService service.EngagementService
	logger            *logger.Logger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(visitService service.VisitService, engagementService service.EngagementService, logger *logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		visitService:      visitService,
		engagementService: engagementService,
		logger:            logger,
	}
}

// TrackPageView handles POST /api/track/pageview
func (h *TrackingHandler) TrackPageView(w http.ResponseWriter, r *http.Request) {
	var req domain.PageLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}
	if req.Path == "" {
		writeError(w, errors.NewValidationError("path is required", nil), h.logger)
		return
	}

	req.RawAddress = getRealIPAddress(r)
	if req.UserAgent == nil {
		if ua := r.UserAgent(); ua != "" {
			req.UserAgent = &ua
		}
	}

	browserSessionID, err := h.visitService.TrackVisit(r.Context(), &req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to track page view")
		browserSessionID = req.BrowserSessionID
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"browser_session_id": browserSessionID,
	}, h.logger)
}

// TrackInteraction handles POST /api/track/interaction
func (h *TrackingHandler) TrackInteraction(w http.ResponseWriter, r *http.Request) {
	var req domain.InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	req.RawAddress = getRealIPAddress(r)

	if err := h.engagementService.TrackActivity(r.Context(), &req); err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Type == errors.ErrorTypeValidation {
			writeError(w, appErr, h.logger)
			return
		}
		h.logger.WithError(err).Error("Failed to track interaction")
	}

	writeJSON(w, http.StatusOK, nil, h.logger)
}

// TrackHeartbeat handles POST /api/track/heartbeat
func (h *TrackingHandler) TrackHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req domain.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	if err := h.engagementService.UpdatePageEngagement(r.Context(), &req); err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Type == errors.ErrorTypeValidation {
			writeError(w, appErr, h.logger)
			return
		}
		h.logger.WithError(err).Error("Failed to apply heartbeat")
	}

	writeJSON(w, http.StatusOK, nil, h.logger)
}

// TrackExternalLink handles POST /api/track/external-link
func (h *TrackingHandler) TrackExternalLink(w http.ResponseWriter, r *http.Request) {
	var req domain.ExternalLinkClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	req.RawAddress = getRealIPAddress(r)

	if err := h.engagementService.TrackExternalLinkClick(r.Context(), &req); err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Type == errors.ErrorTypeValidation {
			writeError(w, appErr, h.logger)
			return
		}
		h.logger.WithError(err).Error("Failed to track external link click")
	}

	writeJSON(w, http.StatusOK, nil, h.logger)
}

// RegisterRoutes registers tracking handler routes with the router
func (h *TrackingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/track", func(r chi.Router) {
		r.Post("/pageview", h.TrackPageView)
		r.Post("/interaction", h.TrackInteraction)
		r.Post("/heartbeat", h.TrackHeartbeat)
		r.Post("/external-link", h.TrackExternalLink)
	})
}
