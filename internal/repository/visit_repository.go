package repository

import (
	"context"
	"fmt"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/pkg/database"
)

// visitRepository handles the visit log and page rollups in DuckDB
type visitRepository struct {
	db *database.DB
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *database.DB) VisitRepository {
	return &visitRepository{db: db}
}

// InsertVisit appends an immutable visit record.
func (r *visitRepository) InsertVisit(ctx context.Context, v *domain.Visit) error {
	query := `
		INSERT INTO visits (ts, path, referrer, user_agent, identity_hash, country, city, browser_session_id, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.Conn().QueryRowContext(ctx, query,
		v.Timestamp,
		v.Path,
		v.Referrer,
		v.UserAgent,
		v.IdentityHash,
		v.Country,
		v.City,
		v.BrowserSessionID,
		v.Duration,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// HasVisitFrom reports whether this identity already has a visit for the path.
func (r *visitRepository) HasVisitFrom(ctx context.Context, path, identityHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM visits WHERE path = ? AND identity_hash = ?)`

	var exists bool
	err := r.db.Conn().QueryRowContext(ctx, query, path, identityHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check prior visits: %w", err)
	}
	return exists, nil
}

// RecordNewVisit upserts the page rollup for a new-visit page load.
func (r *visitRepository) RecordNewVisit(ctx context.Context, path string, title *string, now time.Time, uniqueInc int64) error {
	query := `
		INSERT INTO pages (path, title, first_visit_time, last_visit_time, total_visit_count, unique_visitor_count)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (path) DO UPDATE SET
			total_visit_count = pages.total_visit_count + 1,
			unique_visitor_count = pages.unique_visitor_count + excluded.unique_visitor_count,
			last_visit_time = excluded.last_visit_time,
			title = COALESCE(excluded.title, pages.title)
	`

	if _, err := r.db.Conn().ExecContext(ctx, query, path, title, now, now, uniqueInc); err != nil {
		return fmt.Errorf("failed to record new visit on page: %w", err)
	}
	return nil
}

// TouchPage refreshes last_visit_time and title for internal navigation. An
// existing page keeps its counters; a path seen for the first time seeds
// total_visit_count at 1 so the page still registers as viewed once.
func (r *visitRepository) TouchPage(ctx context.Context, path string, title *string, now time.Time) error {
	query := `
		INSERT INTO pages (path, title, first_visit_time, last_visit_time, total_visit_count, unique_visitor_count)
		VALUES (?, ?, ?, ?, 1, 0)
		ON CONFLICT (path) DO UPDATE SET
			last_visit_time = excluded.last_visit_time,
			title = COALESCE(excluded.title, pages.title)
	`

	if _, err := r.db.Conn().ExecContext(ctx, query, path, title, now, now); err != nil {
		return fmt.Errorf("failed to touch page: %w", err)
	}
	return nil
}

// RefreshPageDurations recomputes avg_duration from recorded engagements.
func (r *visitRepository) RefreshPageDurations(ctx context.Context) error {
	query := `
		UPDATE pages
		SET avg_duration = agg.avg_duration
		FROM (
			SELECT page_path, AVG(duration) AS avg_duration
			FROM page_engagements
			GROUP BY page_path
		) AS agg
		WHERE pages.path = agg.page_path
	`

	if _, err := r.db.Conn().ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to refresh page durations: %w", err)
	}
	return nil
}
