package twofasdk

import (
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/totpguard/pkg/httpx"
)

// Error codes shared by the server and the client.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidCode        = "invalid_code"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeWeakPassword       = "weak_password"
	ErrorCodeUserNotFound       = "user_not_found"
	ErrorCodeTOTPNotEnabled     = "totp_not_enabled"
	ErrorCodeEmailTaken         = "email_taken"
	ErrorCodeServerError        = "server_error"
)

// APIError is a structured API error. The server writes it as the
// response body; the client reconstructs it from non-2xx responses so
// callers can match on Code.
type APIError struct {
	StatusCode  int      `json:"-"`
	Code        string   `json:"error"`
	Description string   `json:"error_description"`
	Violations  []string `json:"violations,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error to an HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Error:       e.Code,
		Description: e.Description,
		Violations:  e.Violations,
	})
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}

	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCode,
		Description: "invalid TOTP code",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "invalid or missing token",
	}

	ErrUserNotFound = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeUserNotFound,
		Description: "user not found",
	}

	ErrTOTPNotEnabled = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeTOTPNotEnabled,
		Description: "TOTP is not enabled for this user",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailTaken,
		Description: "email is already registered",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// WeakPasswordError builds the policy-violation error for a rejected
// password.
func WeakPasswordError(violations []string) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeWeakPassword,
		Description: "password does not satisfy the strength policy",
		Violations:  violations,
	}
}
