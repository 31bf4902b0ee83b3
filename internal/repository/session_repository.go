package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/pkg/database"
)

// sessionRepository handles active session and browser session state in DuckDB
type sessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) SessionRepository {
	return &sessionRepository{db: db}
}

const activeSessionColumns = `id, browser_session_id, identity_hash, start_time, end_time,
	total_duration, page_count, interaction_count, user_agent, is_active`

func scanActiveSession(row interface {
	Scan(dest ...interface{}) error
}) (*domain.ActiveSession, error) {
	var (
		s         domain.ActiveSession
		endTime   sql.NullTime
		userAgent sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.BrowserSessionID,
		&s.IdentityHash,
		&s.StartTime,
		&endTime,
		&s.TotalDuration,
		&s.PageCount,
		&s.InteractionCount,
		&userAgent,
		&s.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	if userAgent.Valid {
		ua := userAgent.String
		s.UserAgent = &ua
	}
	return &s, nil
}

// FindAliveSession returns the most recent unexpired active session, or nil.
func (r *sessionRepository) FindAliveSession(ctx context.Context, browserSessionID string, cutoff time.Time) (*domain.ActiveSession, error) {
	query := `
		SELECT ` + activeSessionColumns + `
		FROM active_sessions
		WHERE browser_session_id = ?
		  AND is_active
		  AND COALESCE(end_time, start_time) >= ?
		ORDER BY start_time DESC
		LIMIT 1
	`

	session, err := scanActiveSession(r.db.Conn().QueryRowContext(ctx, query, browserSessionID, cutoff))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find alive session: %w", err)
	}

	return session, nil
}

// RotateActiveSession supersedes stale rows and creates a fresh active
// session in one transaction. A superseded row that never saw a second
// heartbeat keeps end_time = start_time and total_duration = 0.
func (r *sessionRepository) RotateActiveSession(ctx context.Context, browserSessionID, identityHash string, userAgent *string, now time.Time) (*domain.ActiveSession, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deactivate := `
		UPDATE active_sessions
		SET total_duration = CASE WHEN end_time IS NULL THEN 0 ELSE total_duration END,
		    end_time = COALESCE(end_time, start_time),
		    is_active = false
		WHERE browser_session_id = ? AND is_active
	`
	if _, err := tx.ExecContext(ctx, deactivate, browserSessionID); err != nil {
		return nil, fmt.Errorf("failed to deactivate stale sessions: %w", err)
	}

	insert := `
		INSERT INTO active_sessions (browser_session_id, identity_hash, start_time, user_agent, is_active)
		VALUES (?, ?, ?, ?, true)
		RETURNING ` + activeSessionColumns

	session, err := scanActiveSession(tx.QueryRowContext(ctx, insert, browserSessionID, identityHash, now, userAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to insert active session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session rotation: %w", err)
	}

	return session, nil
}

// TouchActivity bumps interaction_count and refreshes end_time plus the
// recomputed elapsed duration.
func (r *sessionRepository) TouchActivity(ctx context.Context, sessionID int64, now time.Time, elapsedSeconds int64) error {
	query := `
		UPDATE active_sessions
		SET interaction_count = interaction_count + 1,
		    end_time = ?,
		    total_duration = ?
		WHERE id = ?
	`

	if _, err := r.db.Conn().ExecContext(ctx, query, now, elapsedSeconds, sessionID); err != nil {
		return fmt.Errorf("failed to touch active session: %w", err)
	}
	return nil
}

// IncrementPageCount bumps the distinct page counter for one active session.
func (r *sessionRepository) IncrementPageCount(ctx context.Context, sessionID int64) error {
	query := `UPDATE active_sessions SET page_count = page_count + 1 WHERE id = ?`

	if _, err := r.db.Conn().ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to increment page count: %w", err)
	}
	return nil
}

// CloseExpired flags idle sessions inactive with the same zero-duration
// normalization as RotateActiveSession, and rolls the finalized durations
// into the owning browser session rollups.
func (r *sessionRepository) CloseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	accumulate := `
		UPDATE browser_sessions
		SET total_duration = browser_sessions.total_duration + closed.finalized
		FROM (
			SELECT browser_session_id,
			       SUM(CASE WHEN end_time IS NULL THEN 0 ELSE total_duration END) AS finalized
			FROM active_sessions
			WHERE is_active AND COALESCE(end_time, start_time) < ?
			GROUP BY browser_session_id
		) AS closed
		WHERE browser_sessions.id = closed.browser_session_id
	`
	if _, err := tx.ExecContext(ctx, accumulate, cutoff); err != nil {
		return 0, fmt.Errorf("failed to accumulate session durations: %w", err)
	}

	deactivate := `
		UPDATE active_sessions
		SET total_duration = CASE WHEN end_time IS NULL THEN 0 ELSE total_duration END,
		    end_time = COALESCE(end_time, start_time),
		    is_active = false
		WHERE is_active AND COALESCE(end_time, start_time) < ?
	`
	result, err := tx.ExecContext(ctx, deactivate, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired sessions: %w", err)
	}

	closed, err := result.RowsAffected()
	if err != nil {
		closed = 0
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reap: %w", err)
	}
	return closed, nil
}

// UpsertBrowserSession inserts or refreshes the long-lived browser session
// rollup. Geo fields are first-write-wins: an existing country/city is never
// overwritten by a later resolution.
func (r *sessionRepository) UpsertBrowserSession(ctx context.Context, bs *domain.BrowserSession) error {
	query := `
		INSERT INTO browser_sessions (id, created_at, last_seen_at, page_count, total_duration, user_agent, identity_hash, country, city)
		VALUES (?, ?, ?, 1, 0, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			page_count = browser_sessions.page_count + 1,
			user_agent = COALESCE(excluded.user_agent, browser_sessions.user_agent),
			country = COALESCE(browser_sessions.country, excluded.country),
			city = COALESCE(browser_sessions.city, excluded.city)
	`

	_, err := r.db.Conn().ExecContext(ctx, query,
		bs.ID,
		bs.CreatedAt,
		bs.LastSeenAt,
		bs.UserAgent,
		bs.IdentityHash,
		bs.Country,
		bs.City,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert browser session: %w", err)
	}
	return nil
}
