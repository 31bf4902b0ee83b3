package repository

import (
	"context"
	"fmt"

	"folio-analytics/internal/domain"
	"folio-analytics/pkg/database"
)

// linkRepository handles outbound link clicks in DuckDB
type linkRepository struct {
	db *database.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *database.DB) LinkRepository {
	return &linkRepository{db: db}
}

// InsertClick appends one outbound link click record.
func (r *linkRepository) InsertClick(ctx context.Context, c *domain.ExternalLinkClick) error {
	query := `
		INSERT INTO external_link_clicks (ts, url, domain, page_path, browser_session_id, identity_hash, click_context)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.Conn().QueryRowContext(ctx, query,
		c.Timestamp,
		c.URL,
		c.Domain,
		c.PagePath,
		c.BrowserSessionID,
		c.IdentityHash,
		c.ClickContext,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert external link click: %w", err)
	}
	return nil
}
