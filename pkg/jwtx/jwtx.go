// Package jwtx signs and verifies the service's short-lived EdDSA
// tokens. Two token uses exist: a challenge token minted after the
// password step (identifies the principal while 2FA is still pending)
// and an access token minted once the TOTP code verifies.
package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/totpguard/pkg/cryptox"
)

// Token uses carried in the token_use claim.
const (
	UseChallenge = "2fa_challenge"
	UseAccess    = "access"
)

var (
	// ErrInvalidToken reports a token that failed signature, issuer,
	// or expiry validation.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	// ErrWrongUse reports a structurally valid token presented for the
	// wrong purpose (e.g. a challenge token on a profile route).
	ErrWrongUse = errors.New("jwtx: wrong token use")
)

// Claims are the service's token claims. SessionID binds the token to
// the server-side login session so challenge verification can complete
// the same session the password step opened.
type Claims struct {
	jwt.RegisteredClaims

	Email     string `json:"email"`
	SessionID string `json:"sid,omitempty"`
	TokenUse  string `json:"token_use"`
}

// Signer holds an ephemeral Ed25519 keypair. Tokens are short-lived and
// sessions survive in the store, so keys are minted per process start.
type Signer struct {
	issuer string
	pub    ed25519.PublicKey
	priv   ed25519.PrivateKey
}

// NewSigner creates a Signer with a fresh keypair.
func NewSigner(issuer string) (*Signer, error) {
	pub, priv, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	return &Signer{issuer: issuer, pub: pub, priv: priv}, nil
}

// Ready reports whether the signer holds key material.
func (s *Signer) Ready() bool {
	return len(s.priv) == ed25519.PrivateKeySize
}

// Sign mints a token for subject/email bound to sessionID, with the
// given use and lifetime.
func (s *Signer) Sign(subject, email, sessionID, use string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     email,
		SessionID: sessionID,
		TokenUse:  use,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.priv)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify validates raw and requires the expected token use.
func (s *Signer) Verify(raw, wantUse string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.pub, nil
	}); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.TokenUse != wantUse {
		return Claims{}, ErrWrongUse
	}
	return claims, nil
}
