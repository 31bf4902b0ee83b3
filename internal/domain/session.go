package domain

import (
	"time"
)

// BrowserSession is the long-lived rollup for one client-held session token.
// A return visitor keeps the same browser session across many active sessions.
type BrowserSession struct {
	ID            string    `json:"id" db:"id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	LastSeenAt    time.Time `json:"last_seen_at" db:"last_seen_at"`
	PageCount     int64     `json:"page_count" db:"page_count"`
	TotalDuration int64     `json:"total_duration" db:"total_duration"`
	UserAgent     *string   `json:"user_agent,omitempty" db:"user_agent"`
	IdentityHash  string    `json:"identity_hash" db:"identity_hash"`
	Country       *string   `json:"country,omitempty" db:"country"`
	City          *string   `json:"city,omitempty" db:"city"`
}

// ActiveSession is one continuous burst of activity within a browser session.
// At most one row per browser_session_id may have IsActive set at any instant.
type ActiveSession struct {
	ID               int64      `json:"id" db:"id"`
	BrowserSessionID string     `json:"browser_session_id" db:"browser_session_id"`
	IdentityHash     string     `json:"identity_hash" db:"identity_hash"`
	StartTime        time.Time  `json:"start_time" db:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty" db:"end_time"`
	TotalDuration    int64      `json:"total_duration" db:"total_duration"`
	PageCount        int        `json:"page_count" db:"page_count"`
	InteractionCount int        `json:"interaction_count" db:"interaction_count"`
	UserAgent        *string    `json:"user_agent,omitempty" db:"user_agent"`
	IsActive         bool       `json:"is_active" db:"is_active"`
}

// LastActivity is the coalesce(end_time, start_time) timestamp liveness is
// measured against.
func (s *ActiveSession) LastActivity() time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return s.StartTime
}

// AliveAt is the single liveness predicate used everywhere: the stored
// is_active flag lags behind real liveness until the reaper catches up, so
// readers must apply both checks.
func (s *ActiveSession) AliveAt(now time.Time, idleWindow time.Duration) bool {
	return s.IsActive && now.Sub(s.LastActivity()) <= idleWindow
}
