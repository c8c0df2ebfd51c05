package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/totpguard/internal/twofa/domain"
	"github.com/aussiebroadwan/totpguard/internal/twofa/store"
	"github.com/aussiebroadwan/totpguard/pkg/cryptox"
	"github.com/aussiebroadwan/totpguard/pkg/idx"
	"github.com/aussiebroadwan/totpguard/pkg/qrx"
	"github.com/aussiebroadwan/totpguard/pkg/slogx"
	"github.com/aussiebroadwan/totpguard/pkg/totpx"
)

// QR geometry per surface. The inline page image carries a quiet zone,
// the raw PNG endpoint leaves the border to the caller, and the CLI
// renders slightly larger for terminal-adjacent scanning.
const (
	qrPageSizePx   = 250
	qrPageMargin   = 10
	qrRawSizePx    = 200
	qrRawMargin    = 0
	qrCLISizePx    = 300
	qrCLIMargin    = 10
	qrPageLevel    = qrx.LevelH
	qrRawLevel     = qrx.LevelH
	qrCLILevel     = qrx.LevelH
	sessionTokenSz = cryptox.TokenSize256
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTOTPCode    = errors.New("invalid TOTP code")
	ErrTOTPNotEnabled     = errors.New("TOTP not enabled for this user")
	ErrSessionExpired     = errors.New("session expired or unknown")
)

// LifecycleService owns the per-user 2FA state machine: Disabled
// (secret null), PendingSetup (secret set, setup flag raised on the
// login session) and Active. The secret column is the single source of
// truth; views and URIs are always derived from a fresh read.
type LifecycleService struct {
	Store  store.Store
	Issuer string // issuer name in provisioning URIs (e.g., "TotpGuard")

	// AutoProvision enables minting a secret during password login for
	// users who have none yet.
	AutoProvision bool

	SessionTTL time.Duration
}

// LoginResult carries the freshly created session plus the opaque
// bearer token whose hash the session stores. The token is shown to
// the client exactly once.
type LoginResult struct {
	User         domain.User
	Session      domain.Session
	SessionToken string
}

// Login runs the password step: verifies the argon2id hash, creates an
// unauthenticated session, and, when auto-provisioning is on and the
// user has no secret, mints one and raises the read-once setup flag.
// Only the race winner raises the flag; the loser's login proceeds
// with the winning secret untouched.
func (s *LifecycleService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so the response does not leak
			// whether the account exists. DummyHash parses, so the
			// full key derivation runs before the mismatch.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := cryptox.GenerateToken(sessionTokenSz)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := domain.Session{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(token),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.SessionTTL),
	}
	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return LoginResult{}, fmt.Errorf("failed to create session: %w", err)
	}

	if s.AutoProvision && !user.TOTPEnabled() {
		user, err = s.autoProvision(ctx, user, session.ID)
		if err != nil {
			// A failed enablement must not half-apply: no secret was
			// stored, no flag raised, and the login itself fails so
			// the state machine never skips a step.
			return LoginResult{}, err
		}
		l.Info("auto-provisioned TOTP secret on login",
			slog.String("user_id", user.ID))
	}

	if !user.TOTPEnabled() {
		// No second factor stands between this login and full access.
		if err := s.Store.Sessions().MarkAuthenticated(ctx, session.ID); err != nil {
			return LoginResult{}, fmt.Errorf("failed to mark session authenticated: %w", err)
		}
		session.Authenticated = true
	}

	return LoginResult{User: user, Session: session, SessionToken: token}, nil
}

// autoProvision mints and persists a secret for a user that has none,
// then raises the setup flag on the session. Both writes run in one
// transaction: a failed flag write rolls the secret back, so the user
// is never left Active with a secret nobody showed them. The
// compare-and-set in EnableTOTPSecret guarantees at most one winner;
// the loser re-reads the winning row and raises no flag.
func (s *LifecycleService) autoProvision(ctx context.Context, user domain.User, sessionID string) (domain.User, error) {
	secret, err := totpx.GenerateSecret()
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	lost := false
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.Users().EnableTOTPSecret(ctx, user.ID, secret)
		switch {
		case errors.Is(err, store.ErrSecretAlreadySet):
			lost = true
			return nil
		case err != nil:
			return fmt.Errorf("failed to store TOTP secret: %w", err)
		}
		if err := tx.Sessions().SetSetupFlag(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to flag setup view: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	if lost {
		return s.Store.Users().GetUserByID(ctx, user.ID)
	}
	user.TOTPSecret = &secret
	return user, nil
}

// liveSession resolves a session by id. Expired and deleted sessions
// come back as ErrSessionExpired, so an outstanding token dies with
// the session it was minted for.
func (s *LifecycleService) liveSession(ctx context.Context, sessionID string) (domain.Session, error) {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrSessionExpired
		}
		return domain.Session{}, fmt.Errorf("failed to look up session: %w", err)
	}
	return sess, nil
}

// Challenge builds the 2FA page view for a session. The first render
// after auto-provisioning consumes the setup flag and includes the QR
// data URI; every later render is the plain code-entry view. A QR
// encoding failure degrades to an empty data URI so the page still
// renders and the secret can be typed by hand.
func (s *LifecycleService) Challenge(ctx context.Context, sessionID, userID string) (domain.ChallengeView, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.liveSession(ctx, sessionID); err != nil {
		return domain.ChallengeView{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ChallengeView{}, ErrUserNotFound
		}
		return domain.ChallengeView{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.TOTPEnabled() {
		return domain.ChallengeView{}, ErrTOTPNotEnabled
	}

	setup, err := s.Store.Sessions().ConsumeSetupFlag(ctx, sessionID)
	if err != nil {
		return domain.ChallengeView{}, fmt.Errorf("failed to consume setup flag: %w", err)
	}

	view := domain.ChallengeView{User: user, Setup: setup}
	if setup {
		// The setup render carries the secret for manual entry next to
		// the QR, so a failed QR render is a degradation, not a wall.
		view.Secret = *user.TOTPSecret
		uri := totpx.ProvisioningURI(*user.TOTPSecret, user.Email, s.Issuer)
		png, err := qrx.Render(uri, qrPageSizePx, qrPageMargin, qrPageLevel)
		if err != nil {
			l.Error("failed to render setup QR code, degrading to text secret",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		} else {
			view.QRCodeDataURI = qrx.DataURI(png)
		}
	}
	return view, nil
}

// VerifyCode checks a submitted 6-digit code against the user's secret
// with one step of clock skew either side, and on success marks the
// session as fully authenticated. The session must still be live; a
// challenge token outliving its session cannot complete the login.
func (s *LifecycleService) VerifyCode(ctx context.Context, sessionID, userID, code string) error {
	if _, err := s.liveSession(ctx, sessionID); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.TOTPEnabled() {
		return ErrTOTPNotEnabled
	}

	ok, err := totpx.Verify(*user.TOTPSecret, code, time.Now())
	if err != nil {
		return fmt.Errorf("failed to verify TOTP code: %w", err)
	}
	if !ok {
		return ErrInvalidTOTPCode
	}

	if err := s.Store.Sessions().MarkAuthenticated(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to mark session authenticated: %w", err)
	}
	return nil
}

// Enable is the self-service profile path: Disabled goes straight to
// Active with no setup flag involved. Calling it while already enabled
// is not an error; the existing secret is returned unchanged.
func (s *LifecycleService) Enable(ctx context.Context, userID string) (domain.EnrollResult, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.EnrollResult{}, ErrUserNotFound
		}
		return domain.EnrollResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.TOTPEnabled() {
		res, err := s.enrollResult(*user.TOTPSecret, user.Email, qrPageSizePx, qrPageMargin)
		res.AlreadyEnabled = true
		return res, err
	}

	secret, err := totpx.GenerateSecret()
	if err != nil {
		return domain.EnrollResult{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	err = s.Store.Users().EnableTOTPSecret(ctx, user.ID, secret)
	switch {
	case errors.Is(err, store.ErrSecretAlreadySet):
		// Someone else enabled between our read and write; theirs wins.
		user, err = s.Store.Users().GetUserByID(ctx, userID)
		if err != nil {
			return domain.EnrollResult{}, fmt.Errorf("failed to re-read user: %w", err)
		}
		res, err := s.enrollResult(*user.TOTPSecret, user.Email, qrPageSizePx, qrPageMargin)
		res.AlreadyEnabled = true
		return res, err
	case err != nil:
		return domain.EnrollResult{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return s.enrollResult(secret, user.Email, qrPageSizePx, qrPageMargin)
}

// Disable clears the user's secret. A later re-enable always mints a
// fresh secret; the old one is gone for good.
func (s *LifecycleService) Disable(ctx context.Context, userID string) error {
	err := s.Store.Users().ClearTOTPSecret(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to clear TOTP secret: %w", err)
	}
	return nil
}

// RawQR renders the user's provisioning URI as a borderless PNG for
// direct embedding. Users without an active secret get ErrTOTPNotEnabled,
// which the transport maps to a 403.
func (s *LifecycleService) RawQR(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.TOTPEnabled() {
		return nil, ErrTOTPNotEnabled
	}

	uri := totpx.ProvisioningURI(*user.TOTPSecret, user.Email, s.Issuer)
	png, err := qrx.Render(uri, qrRawSizePx, qrRawMargin, qrRawLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// EnableForEmail is the operator path: it always mints a fresh secret,
// replacing whatever was stored before. Unknown email is a hard error.
func (s *LifecycleService) EnableForEmail(ctx context.Context, email string) (domain.EnrollResult, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.EnrollResult{}, ErrUserNotFound
		}
		return domain.EnrollResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	secret, err := totpx.GenerateSecret()
	if err != nil {
		return domain.EnrollResult{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	if err := s.Store.Users().ReplaceTOTPSecret(ctx, user.ID, secret); err != nil {
		return domain.EnrollResult{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return s.enrollResult(secret, user.Email, qrCLISizePx, qrCLIMargin)
}

// EnableAllStatus reports what happened to one user during EnableAll.
type EnableAllStatus struct {
	Email   string
	Enabled bool // false when the user already had a secret
	Err     error
}

// EnableAll walks every user and enables 2FA for those without a
// secret. One user's failure never aborts the sweep; it is recorded in
// the per-user status and the walk continues.
func (s *LifecycleService) EnableAll(ctx context.Context) ([]EnableAllStatus, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	statuses := make([]EnableAllStatus, 0, len(users))
	for _, user := range users {
		st := EnableAllStatus{Email: user.Email}
		switch {
		case user.TOTPEnabled():
			// Skipped, already active.
		default:
			st.Err = s.enableOne(ctx, user.ID)
			st.Enabled = st.Err == nil
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (s *LifecycleService) enableOne(ctx context.Context, userID string) error {
	secret, err := totpx.GenerateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	err = s.Store.Users().EnableTOTPSecret(ctx, userID, secret)
	if errors.Is(err, store.ErrSecretAlreadySet) {
		// Enabled concurrently; that counts as done.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to store TOTP secret: %w", err)
	}
	return nil
}

// TOTPSnapshot is the operator view of a user's live TOTP state.
type TOTPSnapshot struct {
	Email            string
	Secret           string
	CurrentCode      string
	SecondsRemaining int
	ProvisioningURI  string
	QRCodeDataURI    string
}

// Snapshot returns the current code and provisioning material for a
// user, for the operator CLI. Unlike the web challenge view, a QR
// failure here is a hard error.
func (s *LifecycleService) Snapshot(ctx context.Context, email string, now time.Time) (TOTPSnapshot, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TOTPSnapshot{}, ErrUserNotFound
		}
		return TOTPSnapshot{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.TOTPEnabled() {
		return TOTPSnapshot{}, ErrTOTPNotEnabled
	}

	code, err := totpx.CurrentCode(*user.TOTPSecret, now)
	if err != nil {
		return TOTPSnapshot{}, fmt.Errorf("failed to compute current code: %w", err)
	}

	uri := totpx.ProvisioningURI(*user.TOTPSecret, user.Email, s.Issuer)
	png, err := qrx.Render(uri, qrCLISizePx, qrCLIMargin, qrCLILevel)
	if err != nil {
		return TOTPSnapshot{}, fmt.Errorf("failed to render QR code: %w", err)
	}

	return TOTPSnapshot{
		Email:            user.Email,
		Secret:           *user.TOTPSecret,
		CurrentCode:      code,
		SecondsRemaining: totpx.SecondsRemaining(now),
		ProvisioningURI:  uri,
		QRCodeDataURI:    qrx.DataURI(png),
	}, nil
}

func (s *LifecycleService) enrollResult(secret, email string, sizePx, margin int) (domain.EnrollResult, error) {
	uri := totpx.ProvisioningURI(secret, email, s.Issuer)
	png, err := qrx.Render(uri, sizePx, margin, qrPageLevel)
	if err != nil {
		return domain.EnrollResult{}, fmt.Errorf("failed to render QR code: %w", err)
	}
	return domain.EnrollResult{
		Secret:          secret,
		ProvisioningURI: uri,
		QRCodeDataURI:   qrx.DataURI(png),
	}, nil
}
