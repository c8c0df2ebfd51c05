// Package totpx wraps RFC 6238 time-based one-time passwords: secret
// generation, code computation, verification with clock-skew tolerance,
// and otpauth:// provisioning URIs for authenticator apps.
package totpx

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize is the raw entropy of a generated secret in bytes (160 bits).
	SecretSize = 20

	// Period is the TOTP time step in seconds.
	Period = 30

	// Skew is the number of adjacent time steps accepted during verification.
	Skew = 1
)

// ErrInvalidSecret reports a stored secret that is not valid unpadded
// base32 of the expected length. Callers must treat this as a failure of
// the operation, never as "2FA disabled".
var ErrInvalidSecret = errors.New("totpx: invalid secret")

// secretEncoding is RFC 4648 base32 without padding, matching what
// authenticator apps expect inside otpauth URIs.
var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret draws SecretSize bytes from the CSPRNG and encodes them
// as unpadded base32 (32 characters). A CSPRNG failure is not recoverable.
func GenerateSecret() (string, error) {
	buf := make([]byte, SecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("totpx: csprng unavailable: %w", err)
	}
	return secretEncoding.EncodeToString(buf), nil
}

// CurrentCode computes the 6-digit code for the time step containing now.
// The result is stable within a step and changes at each step boundary.
func CurrentCode(secret string, now time.Time) (string, error) {
	if err := checkSecret(secret); err != nil {
		return "", err
	}

	code, err := totp.GenerateCodeCustom(normalizeSecret(secret), now, validateOpts())
	if err != nil {
		return "", fmt.Errorf("totpx: generate code: %w", err)
	}
	return code, nil
}

// Verify reports whether code is valid for secret at now, accepting one
// step of clock skew on either side. A malformed code is a plain reject;
// a malformed secret is an error.
func Verify(secret, code string, now time.Time) (bool, error) {
	if err := checkSecret(secret); err != nil {
		return false, err
	}

	ok, err := totp.ValidateCustom(strings.TrimSpace(code), normalizeSecret(secret), now, validateOpts())
	if err != nil {
		// Wrong-length or non-numeric submissions are rejects, not faults.
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return false, ErrInvalidSecret
		}
		return false, fmt.Errorf("totpx: verify: %w", err)
	}
	return ok, nil
}

// SecondsRemaining returns how long the code for the step containing now
// stays valid, i.e. Period - (now mod Period). Display only.
func SecondsRemaining(now time.Time) int {
	return Period - int(now.Unix()%Period)
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator
// apps. Label and issuer are percent-encoded; parameters pin the fixed
// SHA1 / 6 digit / 30 second profile. Pure and deterministic.
func ProvisioningURI(secret, accountLabel, issuer string) string {
	params := url.Values{}
	params.Set("secret", normalizeSecret(secret))
	params.Set("issuer", issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", "6")
	params.Set("period", "30")

	return fmt.Sprintf("otpauth://totp/%s:%s?%s",
		escapeLabel(issuer), escapeLabel(accountLabel), params.Encode())
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// checkSecret rejects anything that is not unpadded base32 decoding to
// exactly SecretSize bytes.
func checkSecret(secret string) error {
	raw, err := secretEncoding.DecodeString(normalizeSecret(secret))
	if err != nil {
		return ErrInvalidSecret
	}
	if len(raw) != SecretSize {
		return ErrInvalidSecret
	}
	return nil
}

func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
}

// escapeLabel percent-encodes a path segment strictly: unlike
// url.PathEscape it also encodes '@', which authenticator apps otherwise
// misparse as part of the label separator.
func escapeLabel(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
