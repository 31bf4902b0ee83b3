package domain

import (
	"time"
)

// OverviewStats are the headline numbers for the dashboard.
type OverviewStats struct {
	TotalVisits    int64     `json:"total_visits"`
	TotalPageViews int64     `json:"total_page_views"`
	UniqueVisitors int64     `json:"unique_visitors"`
	LastUpdate     time.Time `json:"last_update"`
}

// LocationStat is a country/city bucket of visits.
type LocationStat struct {
	Country    string `json:"country"`
	City       string `json:"city"`
	VisitCount int64  `json:"visit_count"`
}

// LinkStat aggregates external link clicks by domain or URL.
type LinkStat struct {
	URL        string `json:"url"`
	Domain     string `json:"domain"`
	ClickCount int64  `json:"click_count"`
}

// PageLinkStat aggregates external link clicks by originating page.
type PageLinkStat struct {
	PagePath   string `json:"page_path"`
	ClickCount int64  `json:"click_count"`
}

// DurationBucket is one bar of the session duration histogram.
type DurationBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ActiveSessionStats summarizes the rolling window of active sessions.
type ActiveSessionStats struct {
	AliveCount        int64            `json:"alive_count"`
	TotalSessions     int64            `json:"total_sessions"`
	AvgDuration       float64          `json:"avg_duration"`
	AvgPageCount      float64          `json:"avg_page_count"`
	DurationHistogram []DurationBucket `json:"duration_histogram"`
}

// QueryResult is the shape returned by the read-only ad-hoc query endpoint.
type QueryResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// LiveStats is the payload pushed to websocket subscribers.
type LiveStats struct {
	Overview *OverviewStats      `json:"overview"`
	Sessions *ActiveSessionStats `json:"sessions"`
	SentAt   time.Time           `json:"sent_at"`
}
