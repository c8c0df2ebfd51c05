package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/totpguard/internal/twofa/domain"
	"github.com/aussiebroadwan/totpguard/internal/twofa/store"
	"github.com/aussiebroadwan/totpguard/internal/twofa/store/drivers/sqlite"
	"github.com/aussiebroadwan/totpguard/pkg/cryptox"
	"github.com/aussiebroadwan/totpguard/pkg/idx"
	"github.com/aussiebroadwan/totpguard/pkg/totpx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "totpguard-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newLifecycle(t *testing.T, autoProvision bool) (*LifecycleService, *sqlite.Store) {
	t.Helper()

	st := newTestStore(t)
	return &LifecycleService{
		Store:         st,
		Issuer:        "TotpGuard Test",
		AutoProvision: autoProvision,
		SessionTTL:    time.Hour,
	}, st
}

func createUser(t *testing.T, st *sqlite.Store, email, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	t.Run("password-only account is authenticated immediately", func(t *testing.T) {
		res, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
		require.NoError(t, err)
		require.NotEmpty(t, res.SessionToken)
		require.True(t, res.Session.Authenticated, "no second factor stands in the way")
		require.Nil(t, res.User.TOTPSecret, "auto-provision is off")

		// The stored session is findable by the token's fingerprint only.
		got, err := st.Sessions().GetSessionByTokenHash(ctx,
			cryptox.FingerprintToken(res.SessionToken))
		require.NoError(t, err)
		require.Equal(t, res.Session.ID, got.ID)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "not-the-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email gets the same error as a bad password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@example.com", "Sup3r$ecretPass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginAutoProvision(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, true)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	res, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
	require.NoError(t, err)
	require.True(t, res.User.TOTPEnabled(), "login must mint a secret")

	stored, err := st.Users().GetUserByID(ctx, res.User.ID)
	require.NoError(t, err)
	require.Equal(t, *res.User.TOTPSecret, *stored.TOTPSecret)

	// The setup flag is raised on the session the login created.
	session, err := st.Sessions().GetSessionByTokenHash(ctx,
		cryptox.FingerprintToken(res.SessionToken))
	require.NoError(t, err)
	require.True(t, session.ShowSetup)

	// A second login keeps the existing secret and raises no new flag.
	res2, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
	require.NoError(t, err)
	require.Equal(t, *stored.TOTPSecret, *res2.User.TOTPSecret)

	session2, err := st.Sessions().GetSessionByTokenHash(ctx,
		cryptox.FingerprintToken(res2.SessionToken))
	require.NoError(t, err)
	require.False(t, session2.ShowSetup)
}

// failFlagStore wraps a real store and fails every SetSetupFlag write,
// inside and outside transactions.
type failFlagStore struct {
	*sqlite.Store
}

func (f *failFlagStore) Sessions() store.Sessions {
	return failFlagSessions{f.Store.Sessions()}
}

func (f *failFlagStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(failFlagTx{tx})
	})
}

type failFlagTx struct{ store.Tx }

func (t failFlagTx) Sessions() store.Sessions { return failFlagSessions{t.Tx.Sessions()} }

type failFlagSessions struct{ store.Sessions }

func (failFlagSessions) SetSetupFlag(context.Context, string) error {
	return errors.New("disk full")
}

func TestLoginAutoProvisionRollsBackOnFlagFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	svc := &LifecycleService{
		Store:         &failFlagStore{Store: st},
		Issuer:        "TotpGuard Test",
		AutoProvision: true,
		SessionTTL:    time.Hour,
	}

	_, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
	require.Error(t, err)

	// The failed enablement must not half-apply: a stored secret the
	// user was never shown would lock them out of every later login.
	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, got.TOTPSecret)
}

func TestChallenge(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, true)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	res, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
	require.NoError(t, err)

	t.Run("first render is the one-time setup view", func(t *testing.T) {
		view, err := svc.Challenge(ctx, res.Session.ID, res.User.ID)
		require.NoError(t, err)
		require.True(t, view.Setup)
		require.Equal(t, *res.User.TOTPSecret, view.Secret)
		require.True(t, strings.HasPrefix(view.QRCodeDataURI, "data:image/png;base64,"))
		require.Equal(t, "alice@example.com", view.User.Email)
	})

	t.Run("later renders are the plain challenge view", func(t *testing.T) {
		view, err := svc.Challenge(ctx, res.Session.ID, res.User.ID)
		require.NoError(t, err)
		require.False(t, view.Setup)
		require.Empty(t, view.Secret)
		require.Empty(t, view.QRCodeDataURI)
	})

	t.Run("user without a secret cannot be challenged", func(t *testing.T) {
		plain := createUser(t, st, "bob@example.com", "Sup3r$ecretPass")
		_, err := svc.Challenge(ctx, res.Session.ID, plain.ID)
		require.ErrorIs(t, err, ErrTOTPNotEnabled)
	})

	t.Run("unknown user is surfaced, not swallowed", func(t *testing.T) {
		_, err := svc.Challenge(ctx, res.Session.ID, "no-such-user")
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestVerifyCode(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, true)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	res, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
	require.NoError(t, err)

	t.Run("wrong code is rejected", func(t *testing.T) {
		err := svc.VerifyCode(ctx, res.Session.ID, res.User.ID, "000000")
		// One chance in a million the random secret produces exactly
		// 000000; tolerated.
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("current code authenticates the session", func(t *testing.T) {
		code, err := totpx.CurrentCode(*res.User.TOTPSecret, time.Now())
		require.NoError(t, err)

		require.NoError(t, svc.VerifyCode(ctx, res.Session.ID, res.User.ID, code))

		session, err := st.Sessions().GetSessionByTokenHash(ctx,
			cryptox.FingerprintToken(res.SessionToken))
		require.NoError(t, err)
		require.True(t, session.Authenticated)
	})

	t.Run("user without a secret cannot verify", func(t *testing.T) {
		plain := createUser(t, st, "bob@example.com", "Sup3r$ecretPass")
		err := svc.VerifyCode(ctx, res.Session.ID, plain.ID, "123456")
		require.ErrorIs(t, err, ErrTOTPNotEnabled)
	})
}

func TestExpiredSessionCannotChallengeOrVerify(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, true)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	res, err := svc.Login(ctx, "alice@example.com", "Sup3r$ecretPass")
	require.NoError(t, err)

	// A session that died out from under its token must not let the
	// token render the challenge or complete the login.
	expired := domain.Session{
		ID:        idx.New().String(),
		TokenHash: "expired-challenge-hash",
		UserID:    res.User.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, expired))

	_, err = svc.Challenge(ctx, expired.ID, res.User.ID)
	require.ErrorIs(t, err, ErrSessionExpired)

	code, err := totpx.CurrentCode(*res.User.TOTPSecret, time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, svc.VerifyCode(ctx, expired.ID, res.User.ID, code),
		ErrSessionExpired)

	// The live session from the login still works.
	require.NoError(t, svc.VerifyCode(ctx, res.Session.ID, res.User.ID, code))
}

func TestEnable(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)
	user := createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	t.Run("first enable mints a secret", func(t *testing.T) {
		res, err := svc.Enable(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, res.AlreadyEnabled)
		require.Len(t, res.Secret, 32)
		require.Contains(t, res.ProvisioningURI, "otpauth://totp/")
		require.Contains(t, res.ProvisioningURI, "secret="+res.Secret)
		require.True(t, strings.HasPrefix(res.QRCodeDataURI, "data:image/png;base64,"))
	})

	t.Run("second enable is idempotent", func(t *testing.T) {
		first, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)

		res, err := svc.Enable(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, res.AlreadyEnabled)
		require.Equal(t, *first.TOTPSecret, res.Secret, "existing secret survives")
	})

	t.Run("unknown user fails hard", func(t *testing.T) {
		_, err := svc.Enable(ctx, "no-such-user")
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestDisableThenReEnableMintsFreshSecret(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)
	user := createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	first, err := svc.Enable(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Disable(ctx, user.ID))
	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, got.TOTPSecret)

	second, err := svc.Enable(ctx, user.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret, "old secret must not come back")

	require.ErrorIs(t, svc.Disable(ctx, "no-such-user"), ErrUserNotFound)
}

func TestRawQR(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)
	user := createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	t.Run("forbidden without an active secret", func(t *testing.T) {
		_, err := svc.RawQR(ctx, user.ID)
		require.ErrorIs(t, err, ErrTOTPNotEnabled)
	})

	t.Run("renders a png once enabled", func(t *testing.T) {
		_, err := svc.Enable(ctx, user.ID)
		require.NoError(t, err)

		png, err := svc.RawQR(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, []byte("\x89PNG"), png[:4])
	})
}

func TestEnableForEmail(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	t.Run("unknown email is a hard error", func(t *testing.T) {
		_, err := svc.EnableForEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("always mints a fresh secret", func(t *testing.T) {
		first, err := svc.EnableForEmail(ctx, "alice@example.com")
		require.NoError(t, err)

		second, err := svc.EnableForEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotEqual(t, first.Secret, second.Secret)

		got, err := st.Users().GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, second.Secret, *got.TOTPSecret)
	})
}

func TestEnableAll(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)

	already := createUser(t, st, "a@example.com", "Sup3r$ecretPass")
	require.NoError(t, st.Users().ReplaceTOTPSecret(ctx, already.ID, "EXISTINGSECRET"))
	createUser(t, st, "b@example.com", "Sup3r$ecretPass")
	createUser(t, st, "c@example.com", "Sup3r$ecretPass")

	statuses, err := svc.EnableAll(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byEmail := make(map[string]EnableAllStatus, len(statuses))
	for _, status := range statuses {
		byEmail[status.Email] = status
	}
	require.False(t, byEmail["a@example.com"].Enabled, "existing secret is skipped")
	require.True(t, byEmail["b@example.com"].Enabled)
	require.True(t, byEmail["c@example.com"].Enabled)

	// The skipped user's secret is untouched.
	got, err := st.Users().GetUserByID(ctx, already.ID)
	require.NoError(t, err)
	require.Equal(t, "EXISTINGSECRET", *got.TOTPSecret)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, st := newLifecycle(t, false)
	createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	t.Run("requires an active secret", func(t *testing.T) {
		_, err := svc.Snapshot(ctx, "alice@example.com", time.Now())
		require.ErrorIs(t, err, ErrTOTPNotEnabled)

		_, err = svc.Snapshot(ctx, "ghost@example.com", time.Now())
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("reports live code and countdown", func(t *testing.T) {
		enrolled, err := svc.EnableForEmail(ctx, "alice@example.com")
		require.NoError(t, err)

		now := time.Now()
		snap, err := svc.Snapshot(ctx, "alice@example.com", now)
		require.NoError(t, err)

		want, err := totpx.CurrentCode(enrolled.Secret, now)
		require.NoError(t, err)
		require.Equal(t, want, snap.CurrentCode)
		require.Equal(t, enrolled.Secret, snap.Secret)
		require.GreaterOrEqual(t, snap.SecondsRemaining, 1)
		require.LessOrEqual(t, snap.SecondsRemaining, 30)
		require.Contains(t, snap.ProvisioningURI, "alice%40example.com")
		require.True(t, strings.HasPrefix(snap.QRCodeDataURI, "data:image/png;base64,"))
	})
}

func TestHousekeepingDeletesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createUser(t, st, "alice@example.com", "Sup3r$ecretPass")

	expired := domain.Session{
		ID:        idx.New().String(),
		TokenHash: "expired-hash",
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, expired))

	// Start runs an immediate sweep; Stop blocks until it finished.
	hk := NewHousekeepingService(st, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Start()
	hk.Stop()

	_, err := st.Sessions().GetSessionByTokenHash(ctx, "expired-hash")
	require.Error(t, err)
}
