package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/totpguard/internal/twofa/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrSecretAlreadySet is returned by EnableTOTPSecret when another
	// writer won the enablement race. The caller re-reads the winning
	// secret instead of overwriting it.
	ErrSecretAlreadySet = errors.New("store: totp secret already set")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement it. Sub-repositories keep concerns separated and let tests
// fake one repo at a time.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// WithTx executes fn within a transaction, committing when fn
	// returns nil and rolling back otherwise. Multi-step operations
	// that must be atomic go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Users() Users
	Sessions() Sessions
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the canonical lookup: email doubles as the
	// TOTP account label.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns all users ordered by id (creation order).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// EnableTOTPSecret sets the secret only while it is currently
	// null. Returns ErrSecretAlreadySet when a concurrent enablement
	// already won; at most one writer ever succeeds.
	EnableTOTPSecret(ctx context.Context, userID, secret string) error

	// ReplaceTOTPSecret unconditionally overwrites the secret. Used by
	// the operator CLI, which always mints a fresh secret.
	ReplaceTOTPSecret(ctx context.Context, userID, secret string) error

	// ClearTOTPSecret disables 2FA by nulling the secret.
	ClearTOTPSecret(ctx context.Context, userID string) error
}

type Sessions interface {
	// CreateSession stores a new login session.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns a session that has not expired.
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)

	// GetSessionByID returns a session that has not expired. Deleted
	// and expired sessions report ErrNotFound alike.
	GetSessionByID(ctx context.Context, sessionID string) (domain.Session, error)

	// ConsumeSetupFlag atomically reads-and-clears show_2fa_setup.
	// Returns the value the flag had before clearing; a second call
	// always reports false.
	ConsumeSetupFlag(ctx context.Context, sessionID string) (bool, error)

	// SetSetupFlag raises show_2fa_setup for the session.
	SetSetupFlag(ctx context.Context, sessionID string) error

	// MarkAuthenticated records a passed TOTP challenge.
	MarkAuthenticated(ctx context.Context, sessionID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}
