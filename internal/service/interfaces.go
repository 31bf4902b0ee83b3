package service

import (
	"context"

	"folio-analytics/internal/domain"
)

// GeoResolver resolves a raw client address to a best-effort location.
// Implementations never fail the caller: lookup errors collapse to a
// location with nil fields.
type GeoResolver interface {
	Resolve(ctx context.Context, rawAddress string) domain.GeoLocation
}

// SessionTracker is the active session state machine: it decides when a
// burst of activity starts a new active session vs continues an alive one.
type SessionTracker interface {
	// GetOrCreate returns the alive active session for the browser session,
	// superseding any stale one and creating a fresh row if necessary.
	GetOrCreate(ctx context.Context, browserSessionID, identityHash string, userAgent *string) (*domain.ActiveSession, error)

	// FindAlive returns the alive active session or nil, without mutating
	// anything. This is the read-only classification probe.
	FindAlive(ctx context.Context, browserSessionID string) (*domain.ActiveSession, error)
}

// VisitService classifies page loads and maintains visit/page/session rollups.
type VisitService interface {
	// TrackVisit records one page load and returns the browser session id in
	// effect (server-issued when the client supplied none).
	TrackVisit(ctx context.Context, req *domain.PageLoadRequest) (string, error)
}

// EngagementService records interactions, heartbeats and outbound clicks.
type EngagementService interface {
	TrackActivity(ctx context.Context, req *domain.InteractionRequest) error
	UpdatePageEngagement(ctx context.Context, req *domain.HeartbeatRequest) error
	TrackExternalLinkClick(ctx context.Context, req *domain.ExternalLinkClickRequest) error
}

// ReaperService periodically closes out idle active sessions.
type ReaperService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// SweepOnce runs one reaping pass and returns how many sessions closed.
	SweepOnce(ctx context.Context) (int64, error)
}

// StatsService is the read-only reporting surface for dashboards.
type StatsService interface {
	GetOverviewStats(ctx context.Context) (*domain.OverviewStats, error)
	GetTopPages(ctx context.Context, limit int) ([]*domain.Page, error)
	GetVisitorLocations(ctx context.Context, limit int) ([]domain.LocationStat, error)
	GetRecentVisits(ctx context.Context, limit int) ([]*domain.Visit, error)
	GetTopExternalLinks(ctx context.Context, limit int) ([]domain.LinkStat, error)
	GetExternalLinksByPage(ctx context.Context, limit int) ([]domain.PageLinkStat, error)
	GetRecentExternalLinks(ctx context.Context, limit int) ([]*domain.ExternalLinkClick, error)
	GetActiveSessionStats(ctx context.Context) (*domain.ActiveSessionStats, error)
	GetRecentActiveSessions(ctx context.Context, limit int) ([]*domain.ActiveSession, error)

	// ExecuteReadOnlyQuery runs a caller-supplied SELECT after best-effort
	// keyword gating; anything else fails with a forbidden_operation error.
	ExecuteReadOnlyQuery(ctx context.Context, query string) (*domain.QueryResult, error)
}

// Services aggregates all service interfaces
type Services struct {
	Geo        GeoResolver
	Tracker    SessionTracker
	Visit      VisitService
	Engagement EngagementService
	Reaper     ReaperService
	Stats      StatsService
}
