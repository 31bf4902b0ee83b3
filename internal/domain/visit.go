package domain

import (
	"time"
)

// Visit is an immutable record of one new-visit page load. Internal
// navigation within an alive active session does not produce a Visit.
type Visit struct {
	ID               int64     `json:"id" db:"id"`
	Timestamp        time.Time `json:"timestamp" db:"ts"`
	Path             string    `json:"path" db:"path"`
	Referrer         *string   `json:"referrer,omitempty" db:"referrer"`
	UserAgent        *string   `json:"user_agent,omitempty" db:"user_agent"`
	IdentityHash     string    `json:"identity_hash" db:"identity_hash"`
	Country          *string   `json:"country,omitempty" db:"country"`
	City             *string   `json:"city,omitempty" db:"city"`
	BrowserSessionID string    `json:"browser_session_id" db:"browser_session_id"`
	Duration         int64     `json:"duration" db:"duration"`
}

// Page is the mutable per-path rollup. TotalVisitCount moves only on
// new-visit classification; LastVisitTime and Title move on every load.
type Page struct {
	Path               string    `json:"path" db:"path"`
	Title              *string   `json:"title,omitempty" db:"title"`
	FirstVisitTime     time.Time `json:"first_visit_time" db:"first_visit_time"`
	LastVisitTime      time.Time `json:"last_visit_time" db:"last_visit_time"`
	TotalVisitCount    int64     `json:"total_visit_count" db:"total_visit_count"`
	UniqueVisitorCount int64     `json:"unique_visitor_count" db:"unique_visitor_count"`
	AvgDuration        float64   `json:"avg_duration" db:"avg_duration"`
}
