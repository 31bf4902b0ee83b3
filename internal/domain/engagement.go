package domain

import (
	"time"
)

// Interaction types accepted by the engagement recorder.
const (
	InteractionClick     = "click"
	InteractionScroll    = "scroll"
	InteractionKeypress  = "keypress"
	InteractionMousemove = "mousemove"
	InteractionFocus     = "focus"
)

// ValidInteractionType reports whether t is one of the known interaction types.
func ValidInteractionType(t string) bool {
	switch t {
	case InteractionClick, InteractionScroll, InteractionKeypress, InteractionMousemove, InteractionFocus:
		return true
	}
	return false
}

// PageEngagement tracks dwell time, interaction count and scroll depth for
// one page within one active session. ScrollDepth is a monotonic maximum.
type PageEngagement struct {
	ID               int64      `json:"id" db:"id"`
	ActiveSessionID  int64      `json:"active_session_id" db:"active_session_id"`
	PagePath         string     `json:"page_path" db:"page_path"`
	PageTitle        *string    `json:"page_title,omitempty" db:"page_title"`
	StartTime        time.Time  `json:"start_time" db:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty" db:"end_time"`
	Duration         int64      `json:"duration" db:"duration"`
	InteractionCount int        `json:"interaction_count" db:"interaction_count"`
	ScrollDepth      int        `json:"scroll_depth" db:"scroll_depth"`
}

// UserInteraction is one append-only interaction log entry.
type UserInteraction struct {
	ID              int64     `json:"id" db:"id"`
	ActiveSessionID int64     `json:"active_session_id" db:"active_session_id"`
	Timestamp       time.Time `json:"timestamp" db:"ts"`
	InteractionType string    `json:"interaction_type" db:"interaction_type"`
	PagePath        string    `json:"page_path" db:"page_path"`
	Details         *string   `json:"details,omitempty" db:"details"`
}

// ExternalLinkClick is one append-only outbound link click record.
type ExternalLinkClick struct {
	ID               int64     `json:"id" db:"id"`
	Timestamp        time.Time `json:"timestamp" db:"ts"`
	URL              string    `json:"url" db:"url"`
	Domain           string    `json:"domain" db:"domain"`
	PagePath         string    `json:"page_path" db:"page_path"`
	BrowserSessionID string    `json:"browser_session_id" db:"browser_session_id"`
	IdentityHash     string    `json:"identity_hash" db:"identity_hash"`
	ClickContext     *string   `json:"click_context,omitempty" db:"click_context"`
}
