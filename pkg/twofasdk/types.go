package twofasdk

// LoginRequest is the password step of authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /login. When the account has 2FA
// active (or a secret was just auto-provisioned) the response carries a
// short-lived challenge token and TwoFactorPending is true; otherwise a
// full access token is issued directly.
type LoginResponse struct {
	TokenType        string `json:"token_type"` // always "Bearer"
	ExpiresIn        int    `json:"expires_in"` // seconds
	TwoFactorPending bool   `json:"two_factor_pending"`
	ChallengeToken   string `json:"challenge_token,omitempty"`
	AccessToken      string `json:"access_token,omitempty"`
}

// ChallengeResponse is the 2FA page payload. QRCodeDataURI is only
// present on the one-time setup render, and may be absent even then if
// QR encoding failed; the secret setup then falls back to manual entry.
type ChallengeResponse struct {
	Email         string  `json:"email"`
	PreferredName string  `json:"preferred_name,omitempty"`
	Setup         bool    `json:"setup"`
	Secret        string  `json:"secret,omitempty"` // manual-entry key, setup render only
	QRCodeDataURI *string `json:"qr_code_data_uri"`
}

// VerifyRequest submits a 6-digit TOTP code.
type VerifyRequest struct {
	Code string `json:"code"`
}

// VerifyResponse is returned when the code checks out.
type VerifyResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

// EnrollResponse is returned by the enable endpoint: everything needed
// to import the secret into an authenticator app.
type EnrollResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodeDataURI   string `json:"qr_code_data_uri"`
	AlreadyEnabled  bool   `json:"already_enabled"`
}

// ChangePasswordRequest rotates the account password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CreateUserRequest registers a new account.
type CreateUserRequest struct {
	Email         string `json:"email"`
	PreferredName string `json:"preferred_name,omitempty"`
	Password      string `json:"password"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	PreferredName string `json:"preferred_name,omitempty"`
	TOTPEnabled   bool   `json:"totp_enabled"`
}

// ErrorResponse is the error envelope every endpoint uses. Violations
// is populated only for password-policy rejections.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Description string   `json:"error_description,omitempty"`
	Violations  []string `json:"violations,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
