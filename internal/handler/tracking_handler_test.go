package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/repository"
	"folio-analytics/internal/service"
	"folio-analytics/pkg/database"
	"folio-analytics/pkg/logger"
)

type noGeo struct{}

func (noGeo) Resolve(ctx context.Context, rawAddress string) domain.GeoLocation {
	return domain.GeoLocation{}
}

func newTrackingHandler(t *testing.T) *TrackingHandler {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.NewNop()
	sessionRepo := repository.NewSessionRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	linkRepo := repository.NewLinkRepository(db)

	tracker := service.NewTrackerService(sessionRepo, log, 60*time.Second)
	visit := service.NewVisitService(tracker, sessionRepo, visitRepo, noGeo{}, log)
	engagement := service.NewEngagementService(tracker, sessionRepo, engagementRepo, linkRepo, log)

	return NewTrackingHandler(visit, engagement, log)
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	req.RemoteAddr = "203.0.113.9:54321"
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestTrackPageViewReturnsSessionID(t *testing.T) {
	h := newTrackingHandler(t)

	rec := postJSON(t, h.TrackPageView, map[string]string{"path": "/about"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["browser_session_id"])
}

func TestTrackPageViewRequiresPath(t *testing.T) {
	h := newTrackingHandler(t)

	rec := postJSON(t, h.TrackPageView, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation", resp.Error.Type)
}

func TestTrackInteractionRejectsUnknownType(t *testing.T) {
	h := newTrackingHandler(t)

	rec := postJSON(t, h.TrackInteraction, map[string]string{
		"browser_session_id": "abc",
		"page_path":          "/blog",
		"interaction_type":   "hover",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackHeartbeatForDeadSessionStillSucceeds(t *testing.T) {
	h := newTrackingHandler(t)

	// No session exists; the heartbeat is a no-op but the client still
	// gets a success envelope.
	rec := postJSON(t, h.TrackHeartbeat, map[string]interface{}{
		"browser_session_id": "ghost",
		"page_path":          "/blog",
		"duration_seconds":   30,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrackExternalLinkRecordsClick(t *testing.T) {
	h := newTrackingHandler(t)

	rec := postJSON(t, h.TrackExternalLink, map[string]string{
		"url":                "https://github.com/someone/project",
		"page_path":          "/projects",
		"browser_session_id": "abc",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRealIPAddressPrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 70.41.3.18")

	assert.Equal(t, "203.0.113.9", getRealIPAddress(req))
}

func TestGetRealIPAddressFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:9999"

	assert.Equal(t, "203.0.113.9", getRealIPAddress(req))
}
