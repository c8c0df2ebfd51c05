package twofa_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/totpguard/pkg/totpx"
	"github.com/aussiebroadwan/totpguard/pkg/twofasdk"
	"github.com/stretchr/testify/require"
)

// TestAutoProvisionLoginFlow walks the full first-login journey with
// auto-provisioning on: password login mints a secret, the first
// challenge render is the one-time setup view, and the code from the
// shown secret completes authentication.
func TestAutoProvisionLoginFlow(t *testing.T) {
	baseURL, cleanup := setupContainer(t, true)
	defer cleanup()

	ctx := context.Background()
	client := twofasdk.NewClient(baseURL)
	createTestUser(t, client)

	// Password step: the login itself provisions the secret, so the
	// response is a pending challenge, not an access token.
	login, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.True(t, login.TwoFactorPending)
	require.NotEmpty(t, login.ChallengeToken)
	require.Empty(t, login.AccessToken)

	// First render: one-time setup view with QR and manual-entry key.
	challenge, err := client.Challenge(ctx, login.ChallengeToken)
	require.NoError(t, err)
	require.True(t, challenge.Setup)
	require.NotEmpty(t, challenge.Secret)
	require.NotNil(t, challenge.QRCodeDataURI)
	require.True(t, strings.HasPrefix(*challenge.QRCodeDataURI, "data:image/png;base64,"))

	// Second render: the flag was consumed, plain challenge only.
	again, err := client.Challenge(ctx, login.ChallengeToken)
	require.NoError(t, err)
	require.False(t, again.Setup)
	require.Empty(t, again.Secret)
	require.Nil(t, again.QRCodeDataURI)

	// A wrong code is rejected.
	_, err = client.VerifyCode(ctx, login.ChallengeToken, "000000")
	requireAPIError(t, err, twofasdk.ErrorCodeInvalidCode)

	// The correct code completes the challenge.
	code, err := totpx.CurrentCode(challenge.Secret, time.Now())
	require.NoError(t, err)

	verified, err := client.VerifyCode(ctx, login.ChallengeToken, code)
	require.NoError(t, err)
	require.NotEmpty(t, verified.AccessToken)
	require.Equal(t, "Bearer", verified.TokenType)

	// Later logins go straight to the plain challenge: the secret
	// already exists, so no new setup view appears.
	relogin, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.True(t, relogin.TwoFactorPending)

	rechallenge, err := client.Challenge(ctx, relogin.ChallengeToken)
	require.NoError(t, err)
	require.False(t, rechallenge.Setup)
}

// TestSelfServiceEnableFlow exercises the profile path with
// auto-provisioning off: password-only login yields an access token,
// enable is explicit and idempotent, and disable clears the secret.
func TestSelfServiceEnableFlow(t *testing.T) {
	baseURL, cleanup := setupContainer(t, false)
	defer cleanup()

	ctx := context.Background()
	client := twofasdk.NewClient(baseURL)
	createTestUser(t, client)

	// Without a second factor the login is complete in one step.
	login, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.False(t, login.TwoFactorPending)
	require.NotEmpty(t, login.AccessToken)

	// The QR endpoint is forbidden while 2FA is disabled.
	_, err = client.QRCodePNG(ctx, login.AccessToken)
	requireAPIError(t, err, twofasdk.ErrorCodeTOTPNotEnabled)

	// Enable: Disabled goes straight to Active.
	enrolled, err := client.Enable(ctx, login.AccessToken)
	require.NoError(t, err)
	require.False(t, enrolled.AlreadyEnabled)
	require.Len(t, enrolled.Secret, 32)
	require.Contains(t, enrolled.ProvisioningURI, "otpauth://totp/")
	require.True(t, strings.HasPrefix(enrolled.QRCodeDataURI, "data:image/png;base64,"))

	// Enabling again returns the same secret unchanged.
	repeat, err := client.Enable(ctx, login.AccessToken)
	require.NoError(t, err)
	require.True(t, repeat.AlreadyEnabled)
	require.Equal(t, enrolled.Secret, repeat.Secret)

	// The raw QR route now serves a PNG.
	png, err := client.QRCodePNG(ctx, login.AccessToken)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(png), 8)
	require.Equal(t, "\x89PNG", string(png[:4]))

	// The next login requires the second factor.
	pending, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.True(t, pending.TwoFactorPending)

	code, err := totpx.CurrentCode(enrolled.Secret, time.Now())
	require.NoError(t, err)
	verified, err := client.VerifyCode(ctx, pending.ChallengeToken, code)
	require.NoError(t, err)
	require.NotEmpty(t, verified.AccessToken)

	// Disable clears the secret; login is single-step again.
	require.NoError(t, client.Disable(ctx, verified.AccessToken))

	plain, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.False(t, plain.TwoFactorPending)

	// Re-enabling mints a fresh secret, never the old one.
	fresh, err := client.Enable(ctx, plain.AccessToken)
	require.NoError(t, err)
	require.False(t, fresh.AlreadyEnabled)
	require.NotEqual(t, enrolled.Secret, fresh.Secret)
}

// TestTokenBoundaries checks that each route demands the right token
// kind and that credentials are actually verified.
func TestTokenBoundaries(t *testing.T) {
	baseURL, cleanup := setupContainer(t, true)
	defer cleanup()

	ctx := context.Background()
	client := twofasdk.NewClient(baseURL)
	createTestUser(t, client)

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := client.Login(ctx, testEmail, "wrong-password")
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidCredentials)
	})

	t.Run("unknown account gets the same rejection", func(t *testing.T) {
		_, err := client.Login(ctx, "ghost@example.com", testPassword)
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidCredentials)
	})

	login, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.True(t, login.TwoFactorPending)

	t.Run("challenge token cannot reach profile routes", func(t *testing.T) {
		_, err := client.Enable(ctx, login.ChallengeToken)
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidToken)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := client.Challenge(ctx, "not-a-token")
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidToken)
	})

	t.Run("access token cannot re-enter the challenge", func(t *testing.T) {
		challenge, err := client.Challenge(ctx, login.ChallengeToken)
		require.NoError(t, err)

		code, err := totpx.CurrentCode(challenge.Secret, time.Now())
		require.NoError(t, err)
		verified, err := client.VerifyCode(ctx, login.ChallengeToken, code)
		require.NoError(t, err)

		_, err = client.Challenge(ctx, verified.AccessToken)
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidToken)
	})
}

// TestPasswordManagement covers registration constraints and password
// rotation through the profile route.
func TestPasswordManagement(t *testing.T) {
	baseURL, cleanup := setupContainer(t, false)
	defer cleanup()

	ctx := context.Background()
	client := twofasdk.NewClient(baseURL)
	createTestUser(t, client)

	t.Run("weak registration password reports violations", func(t *testing.T) {
		_, err := client.CreateUser(ctx, twofasdk.CreateUserRequest{
			Email:    "bob@example.com",
			Password: "alllowercaseonly",
		})
		var apiErr *twofasdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, twofasdk.ErrorCodeWeakPassword, apiErr.Code)
		require.Contains(t, apiErr.Violations, "missing_uppercase")
		require.Contains(t, apiErr.Violations, "missing_number")
		require.Contains(t, apiErr.Violations, "missing_special")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := client.CreateUser(ctx, twofasdk.CreateUserRequest{
			Email:    testEmail,
			Password: testPassword,
		})
		requireAPIError(t, err, twofasdk.ErrorCodeEmailTaken)
	})

	login, err := client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	t.Run("rotation requires the current password", func(t *testing.T) {
		err := client.ChangePassword(ctx, login.AccessToken, "wrong-current", "An0ther$trongOne")
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidCredentials)
	})

	t.Run("rotation swaps which password logs in", func(t *testing.T) {
		require.NoError(t,
			client.ChangePassword(ctx, login.AccessToken, testPassword, "An0ther$trongOne"))

		_, err := client.Login(ctx, testEmail, testPassword)
		requireAPIError(t, err, twofasdk.ErrorCodeInvalidCredentials)

		relogin, err := client.Login(ctx, testEmail, "An0ther$trongOne")
		require.NoError(t, err)
		require.NotEmpty(t, relogin.AccessToken)
	})
}

// TestHealthEndpoints checks the probes respond.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupContainer(t, true)
	defer cleanup()

	ctx := context.Background()
	client := twofasdk.NewClient(baseURL)

	require.NoError(t, client.Livez(ctx))
	require.NoError(t, client.Readyz(ctx))
}
