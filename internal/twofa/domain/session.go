package domain

import "time"

// Session is the per-login server-side state created when the password
// step succeeds. ShowSetup is the read-once flag that makes the next
// render of the 2FA page show the first-time setup view; consuming it
// clears it in the same transaction.
type Session struct {
	ID            string
	TokenHash     string // sha256 fingerprint of the opaque session token
	UserID        string
	ShowSetup     bool
	Authenticated bool // set once the TOTP challenge has been passed
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
