package domain

import "time"

// User is the security record the service owns. TOTPSecret is the
// two-factor state: a non-nil secret means 2FA is active for the
// account, nil means disabled. There is no separate enabled flag.
type User struct {
	ID            string
	Email         string // lookup key and TOTP account label
	PreferredName string
	PasswordHash  string  // argon2id PHC encoded
	TOTPSecret    *string // base32, nil when 2FA is disabled
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TOTPEnabled reports whether the user has an active shared secret.
func (u User) TOTPEnabled() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}
