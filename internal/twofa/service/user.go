package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/totpguard/internal/twofa/domain"
	"github.com/aussiebroadwan/totpguard/internal/twofa/store"
	"github.com/aussiebroadwan/totpguard/pkg/cryptox"
	"github.com/aussiebroadwan/totpguard/pkg/idx"
	"github.com/aussiebroadwan/totpguard/pkg/passwordx"
)

var ErrEmailTaken = errors.New("email already registered")

// WeakPasswordError carries the policy violations for a rejected
// password. Violations are data for the client to render per-field,
// not an internal fault.
type WeakPasswordError struct {
	Violations []passwordx.Violation
}

func (e *WeakPasswordError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = string(v)
	}
	return "password rejected by policy: " + strings.Join(parts, ", ")
}

// UserService manages accounts: creation and password changes, both
// gated by the strong-password policy.
type UserService struct {
	Store  store.Store
	Policy passwordx.Config
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// CreateUser validates the password against policy, hashes it with
// argon2id and inserts the account. New accounts start with 2FA
// disabled.
func (s *UserService) CreateUser(ctx context.Context, email, preferredName, password string) (domain.User, error) {
	if violations := passwordx.Validate(password, s.Policy); len(violations) > 0 {
		return domain.User{}, &WeakPasswordError{Violations: violations}
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:            idx.New().String(),
		Email:         strings.ToLower(strings.TrimSpace(email)),
		PreferredName: preferredName,
		PasswordHash:  hash,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password before accepting a new
// one that satisfies policy. The current-password check runs first so
// a weak-password response never confirms the old credential.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if violations := passwordx.Validate(next, s.Policy); len(violations) > 0 {
		return &WeakPasswordError{Violations: violations}
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
