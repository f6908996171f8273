package domain

import "time"

// APIKey is the stored form of an extension key. Only the SHA-256 hash of
// the issued secret is kept; the plaintext is returned to the caller once at
// issue time. One active key per user: re-issuing replaces the previous row.
type APIKey struct {
	KeyHash  string
	UserID   string
	IssuedAt time.Time
}

// Session maps an opaque token to an authenticated user for the web channel.
type Session struct {
	Token  string
	UserID string
}
