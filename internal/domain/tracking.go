package domain

// GeoLocation is the best-effort resolution of a raw client address.
// Unresolvable addresses leave both fields nil.
type GeoLocation struct {
	Country *string `json:"country"`
	City    *string `json:"city"`
}

// PageLoadRequest carries one page load from the tracking script.
type PageLoadRequest struct {
	Path             string  `json:"path"`
	Title            *string `json:"title,omitempty"`
	Referrer         *string `json:"referrer,omitempty"`
	UserAgent        *string `json:"user_agent,omitempty"`
	RawAddress       string  `json:"-"`
	BrowserSessionID string  `json:"browser_session_id"`
}

// InteractionRequest carries one user interaction event.
type InteractionRequest struct {
	BrowserSessionID string  `json:"browser_session_id"`
	RawAddress       string  `json:"-"`
	PagePath         string  `json:"page_path"`
	InteractionType  string  `json:"interaction_type"`
	PageTitle        *string `json:"page_title,omitempty"`
	Details          *string `json:"details,omitempty"`
}

// HeartbeatRequest carries a periodic client-computed engagement update.
// DurationSeconds is the client's elapsed time on the page; ScrollDepth is a
// percentage and only ever ratchets upward server-side.
type HeartbeatRequest struct {
	BrowserSessionID string `json:"browser_session_id"`
	PagePath         string `json:"page_path"`
	DurationSeconds  int64  `json:"duration_seconds"`
	ScrollDepth      *int   `json:"scroll_depth,omitempty"`
}

// ExternalLinkClickRequest carries one outbound link click.
type ExternalLinkClickRequest struct {
	URL              string  `json:"url"`
	PagePath         string  `json:"page_path"`
	BrowserSessionID string  `json:"browser_session_id"`
	RawAddress       string  `json:"-"`
	Context          *string `json:"context,omitempty"`
}
