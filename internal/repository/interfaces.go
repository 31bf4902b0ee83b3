package repository

import (
	"context"
	"time"

	"folio-analytics/internal/domain"
)

// SessionRepository covers active session and browser session state.
type SessionRepository interface {
	// FindAliveSession returns the most recent active session for the
	// browser session whose last activity is at or after cutoff, or nil.
	FindAliveSession(ctx context.Context, browserSessionID string, cutoff time.Time) (*domain.ActiveSession, error)

	// RotateActiveSession deactivates any stale active rows for the browser
	// session and inserts a fresh one, inside a single transaction. A stale
	// row that never recorded activity after its start collapses to zero
	// duration rather than inheriting wall-clock idle time.
	RotateActiveSession(ctx context.Context, browserSessionID, identityHash string, userAgent *string, now time.Time) (*domain.ActiveSession, error)

	// TouchActivity bumps the interaction counter and refreshes end_time and
	// the server-recomputed elapsed duration for one active session.
	TouchActivity(ctx context.Context, sessionID int64, now time.Time, elapsedSeconds int64) error

	// IncrementPageCount bumps the per-session distinct page counter.
	IncrementPageCount(ctx context.Context, sessionID int64) error

	// CloseExpired flags every active session idle since before cutoff as
	// inactive, applying the zero-duration normalization. Returns the number
	// of sessions closed.
	CloseExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// UpsertBrowserSession inserts the browser session or, on conflict,
	// refreshes last_seen_at, bumps page_count and fills geo fields only if
	// they are still null.
	UpsertBrowserSession(ctx context.Context, bs *domain.BrowserSession) error
}

// VisitRepository covers the visit log and per-page rollups.
type VisitRepository interface {
	// InsertVisit appends an immutable visit record.
	InsertVisit(ctx context.Context, v *domain.Visit) error

	// HasVisitFrom reports whether this identity already has a visit for the path.
	HasVisitFrom(ctx context.Context, path, identityHash string) (bool, error)

	// RecordNewVisit upserts the page rollup for a new-visit page load:
	// increments total_visit_count, adds uniqueInc to unique_visitor_count,
	// touches last_visit_time, keeps an existing title over a null one.
	RecordNewVisit(ctx context.Context, path string, title *string, now time.Time, uniqueInc int64) error

	// TouchPage updates last_visit_time and title for internal navigation
	// without moving any counter.
	TouchPage(ctx context.Context, path string, title *string, now time.Time) error

	// RefreshPageDurations recomputes pages.avg_duration from engagements.
	RefreshPageDurations(ctx context.Context) error
}

// EngagementRepository covers page engagements and the interaction log.
type EngagementRepository interface {
	// FindEngagement returns the most recent engagement row for the
	// (active session, path) pair, or nil.
	FindEngagement(ctx context.Context, sessionID int64, pagePath string) (*domain.PageEngagement, error)

	// CreateEngagement starts a new engagement row.
	CreateEngagement(ctx context.Context, e *domain.PageEngagement) error

	// BumpEngagement applies the server-side interaction update: increments
	// interaction_count, refreshes end_time and the recomputed duration.
	BumpEngagement(ctx context.Context, id int64, now time.Time, elapsedSeconds int64) error

	// ApplyClientReport stores the client-computed duration and ratchets
	// scroll_depth to the running maximum.
	ApplyClientReport(ctx context.Context, id int64, durationSeconds int64, scrollDepth *int, now time.Time) error

	// InsertInteraction appends one interaction log entry.
	InsertInteraction(ctx context.Context, i *domain.UserInteraction) error
}

// LinkRepository covers outbound link clicks.
type LinkRepository interface {
	InsertClick(ctx context.Context, c *domain.ExternalLinkClick) error
}

// StatsRepository is the read-only reporting surface.
type StatsRepository interface {
	Overview(ctx context.Context) (*domain.OverviewStats, error)
	TopPages(ctx context.Context, limit int) ([]*domain.Page, error)
	VisitorLocations(ctx context.Context, limit int) ([]domain.LocationStat, error)
	RecentVisits(ctx context.Context, limit int) ([]*domain.Visit, error)
	TopExternalLinks(ctx context.Context, limit int) ([]domain.LinkStat, error)
	ExternalLinksByPage(ctx context.Context, limit int) ([]domain.PageLinkStat, error)
	RecentExternalLinks(ctx context.Context, limit int) ([]*domain.ExternalLinkClick, error)
	ActiveSessionStats(ctx context.Context, cutoff time.Time) (*domain.ActiveSessionStats, error)
	RecentActiveSessions(ctx context.Context, limit int) ([]*domain.ActiveSession, error)

	// ExecuteReadOnly runs an already-vetted SELECT and returns its rows.
	// Gating non-SELECT statements is the caller's job.
	ExecuteReadOnly(ctx context.Context, query string) (*domain.QueryResult, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Session    SessionRepository
	Visit      VisitRepository
	Engagement EngagementRepository
	Link       LinkRepository
	Stats      StatsRepository
}
