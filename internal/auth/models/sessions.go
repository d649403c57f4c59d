package models

import "time"

// SessionSummary is the per-session view returned by session listings.
type SessionSummary struct {
	Device       string    `json:"device"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsCurrent    bool      `json:"is_current"`
}

// SessionsResult wraps a session listing.
type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
}
