package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/repository"
	"folio-analytics/pkg/logger"
)

// visitService classifies page loads into new visits vs internal navigation
// and maintains the visit log plus page and browser session rollups.
type visitService struct {
	tracker     SessionTracker
	sessionRepo repository.SessionRepository
	visitRepo   repository.VisitRepository
	geo         GeoResolver
	logger      *logger.Logger
	now         func() time.Time
}

// NewVisitService creates a new visit service
func NewVisitService(tracker SessionTracker, sessionRepo repository.SessionRepository, visitRepo repository.VisitRepository, geo GeoResolver, logger *logger.Logger) VisitService {
	return &visitService{
		tracker:     tracker,
		sessionRepo: sessionRepo,
		visitRepo:   visitRepo,
		geo:         geo,
		logger:      logger,
		now:         time.Now,
	}
}

// TrackVisit records one page load. The load is a new visit when no alive
// active session exists for the browser session at call time; otherwise it is
// internal navigation and only freshness fields move. A single browsing burst
// across several pages counts once toward visitor totals while every load
// still feeds per-page popularity.
func (s *visitService) TrackVisit(ctx context.Context, req *domain.PageLoadRequest) (string, error) {
	if req.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	browserSessionID := req.BrowserSessionID
	if browserSessionID == "" {
		browserSessionID = uuid.NewString()
	}

	now := s.now()
	identityHash := HashIdentity(req.RawAddress)

	// Classification happens before the active session is ensured below;
	// the probe itself never creates state.
	alive, err := s.tracker.FindAlive(ctx, browserSessionID)
	if err != nil {
		return "", fmt.Errorf("failed to classify page load: %w", err)
	}
	isNewVisit := alive == nil

	// Best effort: a failed or slow lookup leaves country/city unknown and
	// never blocks the visit.
	location := s.geo.Resolve(ctx, req.RawAddress)

	if isNewVisit {
		uniqueInc := int64(0)
		seen, err := s.visitRepo.HasVisitFrom(ctx, req.Path, identityHash)
		if err != nil {
			return "", err
		}
		if !seen {
			uniqueInc = 1
		}

		visit := &domain.Visit{
			Timestamp:        now,
			Path:             req.Path,
			Referrer:         req.Referrer,
			UserAgent:        req.UserAgent,
			IdentityHash:     identityHash,
			Country:          location.Country,
			City:             location.City,
			BrowserSessionID: browserSessionID,
		}
		if err := s.visitRepo.InsertVisit(ctx, visit); err != nil {
			return "", err
		}
		if err := s.visitRepo.RecordNewVisit(ctx, req.Path, req.Title, now, uniqueInc); err != nil {
			return "", err
		}
	} else {
		if err := s.visitRepo.TouchPage(ctx, req.Path, req.Title, now); err != nil {
			return "", err
		}
	}

	bs := &domain.BrowserSession{
		ID:           browserSessionID,
		CreatedAt:    now,
		LastSeenAt:   now,
		UserAgent:    req.UserAgent,
		IdentityHash: identityHash,
		Country:      location.Country,
		City:         location.City,
	}
	if err := s.sessionRepo.UpsertBrowserSession(ctx, bs); err != nil {
		return "", err
	}

	// Ensure an alive active session exists so a follow-up load within the
	// idle window classifies as internal navigation.
	if _, err := s.tracker.GetOrCreate(ctx, browserSessionID, identityHash, req.UserAgent); err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"path":               req.Path,
		"browser_session_id": browserSessionID,
		"new_visit":          isNewVisit,
	}).Debug("Page load tracked")

	return browserSessionID, nil
}
