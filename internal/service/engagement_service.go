package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/repository"
	"folio-analytics/pkg/errors"
	"folio-analytics/pkg/logger"
)

// engagementService records interactions, client heartbeats and outbound
// link clicks against the active session in effect.
type engagementService struct {
	tracker        SessionTracker
	sessionRepo    repository.SessionRepository
	engagementRepo repository.EngagementRepository
	linkRepo       repository.LinkRepository
	logger         *logger.Logger
	now            func() time.Time
}

// NewEngagementService creates a new engagement service
func NewEngagementService(tracker SessionTracker, sessionRepo repository.SessionRepository, engagementRepo repository.EngagementRepository, linkRepo repository.LinkRepository, logger *logger.Logger) EngagementService {
	return &engagementService{
		tracker:        tracker,
		sessionRepo:    sessionRepo,
		engagementRepo: engagementRepo,
		linkRepo:       linkRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// TrackActivity records one user interaction. The interaction sustains the
// active session (creating one if needed), opens or bumps the page engagement
// row for the page, and appends to the interaction log.
func (s *engagementService) TrackActivity(ctx context.Context, req *domain.InteractionRequest) error {
	if req.BrowserSessionID == "" || req.PagePath == "" {
		return errors.NewValidationError("browser_session_id and page_path are required", nil)
	}
	if !domain.ValidInteractionType(req.InteractionType) {
		return errors.NewValidationError(fmt.Sprintf("unknown interaction type: %s", req.InteractionType), nil)
	}

	identityHash := HashIdentity(req.RawAddress)

	session, err := s.tracker.GetOrCreate(ctx, req.BrowserSessionID, identityHash, nil)
	if err != nil {
		return err
	}

	now := s.now()
	elapsed := int64(now.Sub(session.StartTime).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	if err := s.sessionRepo.TouchActivity(ctx, session.ID, now, elapsed); err != nil {
		return err
	}

	engagement, err := s.engagementRepo.FindEngagement(ctx, session.ID, req.PagePath)
	if err != nil {
		return err
	}
	if engagement == nil {
		engagement = &domain.PageEngagement{
			ActiveSessionID: session.ID,
			PagePath:        req.PagePath,
			PageTitle:       req.PageTitle,
			StartTime:       now,
		}
		if err := s.engagementRepo.CreateEngagement(ctx, engagement); err != nil {
			return err
		}
		// First engagement on this page means the session reached a new page.
		if err := s.sessionRepo.IncrementPageCount(ctx, session.ID); err != nil {
			return err
		}
	}

	// The interaction that opened the row counts too, so the bump is
	// unconditional. On a fresh row the elapsed time is zero.
	pageElapsed := int64(now.Sub(engagement.StartTime).Seconds())
	if pageElapsed < 0 {
		pageElapsed = 0
	}
	if err := s.engagementRepo.BumpEngagement(ctx, engagement.ID, now, pageElapsed); err != nil {
		return err
	}

	interaction := &domain.UserInteraction{
		ActiveSessionID: session.ID,
		Timestamp:       now,
		InteractionType: req.InteractionType,
		PagePath:        req.PagePath,
		Details:         req.Details,
	}
	return s.engagementRepo.InsertInteraction(ctx, interaction)
}

// UpdatePageEngagement applies a client heartbeat: the client-computed dwell
// duration is stored as reported and scroll depth only ever ratchets upward.
// A heartbeat with no alive session or no engagement row is a silent no-op so
// late heartbeats after expiry cannot resurrect closed state.
func (s *engagementService) UpdatePageEngagement(ctx context.Context, req *domain.HeartbeatRequest) error {
	if req.BrowserSessionID == "" || req.PagePath == "" {
		return errors.NewValidationError("browser_session_id and page_path are required", nil)
	}
	if req.DurationSeconds < 0 {
		return errors.NewValidationError("duration_seconds must not be negative", nil)
	}
	if req.ScrollDepth != nil && (*req.ScrollDepth < 0 || *req.ScrollDepth > 100) {
		return errors.NewValidationError("scroll_depth must be between 0 and 100", nil)
	}

	session, err := s.tracker.FindAlive(ctx, req.BrowserSessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	engagement, err := s.engagementRepo.FindEngagement(ctx, session.ID, req.PagePath)
	if err != nil {
		return err
	}
	if engagement == nil {
		return nil
	}

	return s.engagementRepo.ApplyClientReport(ctx, engagement.ID, req.DurationSeconds, req.ScrollDepth, s.now())
}

// TrackExternalLinkClick appends one outbound link click with the link's
// domain extracted server-side.
func (s *engagementService) TrackExternalLinkClick(ctx context.Context, req *domain.ExternalLinkClickRequest) error {
	if req.URL == "" || req.PagePath == "" {
		return errors.NewValidationError("url and page_path are required", nil)
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Hostname() == "" {
		return errors.NewValidationError("url must be absolute", nil)
	}

	click := &domain.ExternalLinkClick{
		Timestamp:        s.now(),
		URL:              req.URL,
		Domain:           parsed.Hostname(),
		PagePath:         req.PagePath,
		BrowserSessionID: req.BrowserSessionID,
		IdentityHash:     HashIdentity(req.RawAddress),
		ClickContext:     req.Context,
	}
	return s.linkRepo.InsertClick(ctx, click)
}
