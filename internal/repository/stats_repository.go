package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/pkg/database"
)

// statsRepository serves the read-only reporting queries from DuckDB
type statsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) StatsRepository {
	return &statsRepository{db: db}
}

// Overview returns the headline dashboard numbers. Empty tables yield zero
// values, not errors.
func (r *statsRepository) Overview(ctx context.Context) (*domain.OverviewStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM visits),
			(SELECT COALESCE(SUM(page_count), 0) FROM browser_sessions),
			(SELECT COUNT(DISTINCT identity_hash) FROM visits),
			(SELECT MAX(last_seen_at) FROM browser_sessions)
	`

	var (
		stats      domain.OverviewStats
		lastUpdate sql.NullTime
	)
	err := r.db.Conn().QueryRowContext(ctx, query).Scan(
		&stats.TotalVisits,
		&stats.TotalPageViews,
		&stats.UniqueVisitors,
		&lastUpdate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get overview stats: %w", err)
	}
	if lastUpdate.Valid {
		stats.LastUpdate = lastUpdate.Time
	}

	return &stats, nil
}

// TopPages returns pages ordered by total visit count.
func (r *statsRepository) TopPages(ctx context.Context, limit int) ([]*domain.Page, error) {
	query := `
		SELECT path, title, first_visit_time, last_visit_time, total_visit_count, unique_visitor_count, avg_duration
		FROM pages
		ORDER BY total_visit_count DESC, last_visit_time DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top pages: %w", err)
	}
	defer rows.Close()

	var pages []*domain.Page
	for rows.Next() {
		var (
			p     domain.Page
			title sql.NullString
		)
		err := rows.Scan(&p.Path, &title, &p.FirstVisitTime, &p.LastVisitTime, &p.TotalVisitCount, &p.UniqueVisitorCount, &p.AvgDuration)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		if title.Valid {
			t := title.String
			p.Title = &t
		}
		pages = append(pages, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading page rows: %w", err)
	}
	return pages, nil
}

// VisitorLocations groups visits by resolved country and city. Unresolved
// addresses land in an "Unknown" bucket.
func (r *statsRepository) VisitorLocations(ctx context.Context, limit int) ([]domain.LocationStat, error) {
	query := `
		SELECT COALESCE(country, 'Unknown'), COALESCE(city, 'Unknown'), COUNT(*)
		FROM visits
		GROUP BY 1, 2
		ORDER BY 3 DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query visitor locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.LocationStat
	for rows.Next() {
		var loc domain.LocationStat
		if err := rows.Scan(&loc.Country, &loc.City, &loc.VisitCount); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading location rows: %w", err)
	}
	return locations, nil
}

// RecentVisits returns the newest visits first.
func (r *statsRepository) RecentVisits(ctx context.Context, limit int) ([]*domain.Visit, error) {
	query := `
		SELECT id, ts, path, referrer, user_agent, identity_hash, country, city, browser_session_id, duration
		FROM visits
		ORDER BY ts DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent visits: %w", err)
	}
	defer rows.Close()

	var visits []*domain.Visit
	for rows.Next() {
		var (
			v                   domain.Visit
			referrer, userAgent sql.NullString
			country, city       sql.NullString
		)
		err := rows.Scan(&v.ID, &v.Timestamp, &v.Path, &referrer, &userAgent, &v.IdentityHash, &country, &city, &v.BrowserSessionID, &v.Duration)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit row: %w", err)
		}
		v.Referrer = nullableString(referrer)
		v.UserAgent = nullableString(userAgent)
		v.Country = nullableString(country)
		v.City = nullableString(city)
		visits = append(visits, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading visit rows: %w", err)
	}
	return visits, nil
}

// TopExternalLinks aggregates outbound clicks by URL.
func (r *statsRepository) TopExternalLinks(ctx context.Context, limit int) ([]domain.LinkStat, error) {
	query := `
		SELECT url, domain, COUNT(*)
		FROM external_link_clicks
		GROUP BY url, domain
		ORDER BY 3 DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top external links: %w", err)
	}
	defer rows.Close()

	var links []domain.LinkStat
	for rows.Next() {
		var link domain.LinkStat
		if err := rows.Scan(&link.URL, &link.Domain, &link.ClickCount); err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading link rows: %w", err)
	}
	return links, nil
}

// ExternalLinksByPage aggregates outbound clicks by originating page.
func (r *statsRepository) ExternalLinksByPage(ctx context.Context, limit int) ([]domain.PageLinkStat, error) {
	query := `
		SELECT page_path, COUNT(*)
		FROM external_link_clicks
		GROUP BY page_path
		ORDER BY 2 DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query external links by page: %w", err)
	}
	defer rows.Close()

	var stats []domain.PageLinkStat
	for rows.Next() {
		var s domain.PageLinkStat
		if err := rows.Scan(&s.PagePath, &s.ClickCount); err != nil {
			return nil, fmt.Errorf("failed to scan page link row: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading page link rows: %w", err)
	}
	return stats, nil
}

// RecentExternalLinks returns the newest outbound clicks first.
func (r *statsRepository) RecentExternalLinks(ctx context.Context, limit int) ([]*domain.ExternalLinkClick, error) {
	query := `
		SELECT id, ts, url, domain, page_path, browser_session_id, identity_hash, click_context
		FROM external_link_clicks
		ORDER BY ts DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent external links: %w", err)
	}
	defer rows.Close()

	var clicks []*domain.ExternalLinkClick
	for rows.Next() {
		var (
			c       domain.ExternalLinkClick
			context sql.NullString
		)
		err := rows.Scan(&c.ID, &c.Timestamp, &c.URL, &c.Domain, &c.PagePath, &c.BrowserSessionID, &c.IdentityHash, &context)
		if err != nil {
			return nil, fmt.Errorf("failed to scan external link row: %w", err)
		}
		c.ClickContext = nullableString(context)
		clicks = append(clicks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading external link rows: %w", err)
	}
	return clicks, nil
}

// ActiveSessionStats summarizes the session table with a bucketed duration
// histogram, the cheap stand-in for percentiles on the dashboard.
func (r *statsRepository) ActiveSessionStats(ctx context.Context, cutoff time.Time) (*domain.ActiveSessionStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_active AND COALESCE(end_time, start_time) >= ?),
			COUNT(*),
			COALESCE(AVG(total_duration), 0),
			COALESCE(AVG(page_count), 0),
			COUNT(*) FILTER (WHERE total_duration < 30),
			COUNT(*) FILTER (WHERE total_duration >= 30 AND total_duration < 60),
			COUNT(*) FILTER (WHERE total_duration >= 60 AND total_duration < 300),
			COUNT(*) FILTER (WHERE total_duration >= 300)
		FROM active_sessions
	`

	var (
		stats          domain.ActiveSessionStats
		b1, b2, b3, b4 int64
	)
	err := r.db.Conn().QueryRowContext(ctx, query, cutoff).Scan(
		&stats.AliveCount,
		&stats.TotalSessions,
		&stats.AvgDuration,
		&stats.AvgPageCount,
		&b1, &b2, &b3, &b4,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get active session stats: %w", err)
	}

	stats.DurationHistogram = []domain.DurationBucket{
		{Label: "<30s", Count: b1},
		{Label: "30-60s", Count: b2},
		{Label: "1-5m", Count: b3},
		{Label: ">5m", Count: b4},
	}
	return &stats, nil
}

// RecentActiveSessions returns the newest sessions first.
func (r *statsRepository) RecentActiveSessions(ctx context.Context, limit int) ([]*domain.ActiveSession, error) {
	query := `
		SELECT ` + activeSessionColumns + `
		FROM active_sessions
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ActiveSession
	for rows.Next() {
		session, err := scanActiveSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan active session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading active session rows: %w", err)
	}
	return sessions, nil
}

// ExecuteReadOnly runs a vetted SELECT and returns generic columns and rows.
func (r *statsRepository) ExecuteReadOnly(ctx context.Context, query string) (*domain.QueryResult, error) {
	rows, err := r.db.Conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &domain.QueryResult{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading result rows: %w", err)
	}
	return result, nil
}

// nullableString converts a sql.NullString to an optional string.
func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
