package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/pkg/database"
)

// engagementRepository handles page engagements and the interaction log in DuckDB
type engagementRepository struct {
	db *database.DB
}

// NewEngagementRepository creates a new engagement repository
func NewEngagementRepository(db *database.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

// FindEngagement returns the most recent engagement row for the pair, or nil.
func (r *engagementRepository) FindEngagement(ctx context.Context, sessionID int64, pagePath string) (*domain.PageEngagement, error) {
	query := `
		SELECT id, active_session_id, page_path, page_title, start_time, end_time,
		       duration, interaction_count, scroll_depth
		FROM page_engagements
		WHERE active_session_id = ? AND page_path = ?
		ORDER BY start_time DESC
		LIMIT 1
	`

	var (
		e       domain.PageEngagement
		title   sql.NullString
		endTime sql.NullTime
	)
	err := r.db.Conn().QueryRowContext(ctx, query, sessionID, pagePath).Scan(
		&e.ID,
		&e.ActiveSessionID,
		&e.PagePath,
		&title,
		&e.StartTime,
		&endTime,
		&e.Duration,
		&e.InteractionCount,
		&e.ScrollDepth,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find page engagement: %w", err)
	}

	if title.Valid {
		t := title.String
		e.PageTitle = &t
	}
	if endTime.Valid {
		t := endTime.Time
		e.EndTime = &t
	}
	return &e, nil
}

// CreateEngagement starts a new engagement row for the pair.
func (r *engagementRepository) CreateEngagement(ctx context.Context, e *domain.PageEngagement) error {
	query := `
		INSERT INTO page_engagements (active_session_id, page_path, page_title, start_time, interaction_count, scroll_depth)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.Conn().QueryRowContext(ctx, query,
		e.ActiveSessionID,
		e.PagePath,
		e.PageTitle,
		e.StartTime,
		e.InteractionCount,
		e.ScrollDepth,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create page engagement: %w", err)
	}
	return nil
}

// BumpEngagement applies the server-side interaction update.
func (r *engagementRepository) BumpEngagement(ctx context.Context, id int64, now time.Time, elapsedSeconds int64) error {
	query := `
		UPDATE page_engagements
		SET interaction_count = interaction_count + 1,
		    end_time = ?,
		    duration = ?
		WHERE id = ?
	`

	if _, err := r.db.Conn().ExecContext(ctx, query, now, elapsedSeconds, id); err != nil {
		return fmt.Errorf("failed to bump page engagement: %w", err)
	}
	return nil
}

// ApplyClientReport stores the heartbeat duration and ratchets scroll depth.
// The client-computed duration wins over server recomputation here; scroll
// depth only ever moves up.
func (r *engagementRepository) ApplyClientReport(ctx context.Context, id int64, durationSeconds int64, scrollDepth *int, now time.Time) error {
	query := `
		UPDATE page_engagements
		SET duration = ?,
		    scroll_depth = GREATEST(scroll_depth, COALESCE(?, scroll_depth)),
		    end_time = ?
		WHERE id = ?
	`

	if _, err := r.db.Conn().ExecContext(ctx, query, durationSeconds, scrollDepth, now, id); err != nil {
		return fmt.Errorf("failed to apply client engagement report: %w", err)
	}
	return nil
}

// InsertInteraction appends one interaction log entry.
func (r *engagementRepository) InsertInteraction(ctx context.Context, i *domain.UserInteraction) error {
	query := `
		INSERT INTO user_interactions (active_session_id, ts, interaction_type, page_path, details)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.Conn().QueryRowContext(ctx, query,
		i.ActiveSessionID,
		i.Timestamp,
		i.InteractionType,
		i.PagePath,
		i.Details,
	).Scan(&i.ID)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}
