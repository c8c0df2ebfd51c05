package twofasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a TotpGuard server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodPost, "/v1/users", "", req, &out, http.StatusCreated)
	return out, err
}

// Login runs the password step and returns either a challenge token
// (2FA pending) or an access token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/login",
		"", LoginRequest{Email: email, Password: password}, &out, http.StatusOK)
	return out, err
}

// Challenge fetches the 2FA page payload using a challenge token.
func (c *Client) Challenge(ctx context.Context, challengeToken string) (ChallengeResponse, error) {
	var out ChallengeResponse
	err := c.do(ctx, http.MethodGet, "/2fa", challengeToken, nil, &out, http.StatusOK)
	return out, err
}

// VerifyCode submits a TOTP code against a challenge token and returns
// the access token on success.
func (c *Client) VerifyCode(ctx context.Context, challengeToken, code string) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/2fa/verify",
		challengeToken, VerifyRequest{Code: code}, &out, http.StatusOK)
	return out, err
}

// Enable turns on 2FA for the authenticated account. Idempotent: when
// already enabled the existing secret is returned.
func (c *Client) Enable(ctx context.Context, accessToken string) (EnrollResponse, error) {
	var out EnrollResponse
	err := c.do(ctx, http.MethodGet, "/profile/2fa/enable", accessToken, nil, &out, http.StatusOK)
	return out, err
}

// QRCodePNG fetches the raw provisioning QR image.
func (c *Client) QRCodePNG(ctx context.Context, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/profile/2fa/qr-code", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, body)
	}
	return body, nil
}

// Disable turns off 2FA for the authenticated account.
func (c *Client) Disable(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/profile/2fa/disable", accessToken, nil, nil, http.StatusNoContent)
}

// ChangePassword rotates the account password.
func (c *Client) ChangePassword(ctx context.Context, accessToken, current, next string) error {
	return c.do(ctx, http.MethodPost, "/profile/password", accessToken,
		ChangePasswordRequest{CurrentPassword: current, NewPassword: next},
		nil, http.StatusNoContent)
}

// Livez reports whether the server process is up.
func (c *Client) Livez(ctx context.Context) error {
	var out HealthResponse
	return c.do(ctx, http.MethodGet, "/livez", "", nil, &out, http.StatusOK)
}

// Readyz reports whether the server can reach its dependencies.
func (c *Client) Readyz(ctx context.Context) error {
	var out HealthResponse
	return c.do(ctx, http.MethodGet, "/readyz", "", nil, &out, http.StatusOK)
}

// do runs one JSON round trip. A non-nil token is sent as a bearer
// Authorization header; a nil target skips response decoding.
func (c *Client) do(
	ctx context.Context,
	method, path, token string,
	body, target any,
	expectedStatus int,
) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		return parseError(resp.StatusCode, raw)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError turns an error body back into an *APIError so callers can
// match on the code. Unparseable bodies degrade to a generic error.
func parseError(status int, body []byte) error {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == "" {
		return &APIError{
			StatusCode:  status,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected response (status %d)", status),
		}
	}
	return &APIError{
		StatusCode:  status,
		Code:        envelope.Error,
		Description: envelope.Description,
		Violations:  envelope.Violations,
	}
}
