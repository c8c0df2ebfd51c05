package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/totpguard/internal/twofa/service"
	"github.com/aussiebroadwan/totpguard/pkg/httpx"
	"github.com/aussiebroadwan/totpguard/pkg/slogx"
	"github.com/aussiebroadwan/totpguard/pkg/twofasdk"
)

// ProfileHandler serves the authenticated self-service endpoints. All
// routes require a full access token; a challenge token is not enough.
type ProfileHandler struct {
	Lifecycle *service.LifecycleService
	Users     *service.UserService
}

// HandleEnable handles GET /profile/2fa/enable
//
//	@Summary		Enable 2FA
//	@Description	Mints and stores a TOTP secret for the authenticated account, returning the secret, provisioning URI and QR code. Idempotent: if a secret already exists it is returned unchanged with already_enabled set.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofasdk.EnrollResponse	"secret and provisioning material"
//	@Failure		401	{object}	twofasdk.ErrorResponse	"invalid or missing access token"
//	@Failure		403	{object}	twofasdk.ErrorResponse	"user not found"
//	@Failure		500	{object}	twofasdk.ErrorResponse	"internal server error"
//	@Router			/profile/2fa/enable [get].
func (h *ProfileHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		twofasdk.ErrInvalidToken.WriteError(w)
		return
	}

	res, err := h.Lifecycle.Enable(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			twofasdk.ErrUserNotFound.WriteError(w)
			return
		}
		log.Error("failed to enable 2FA", "user_id", userID, "err", err)
		twofasdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, twofasdk.EnrollResponse{
		Secret:          res.Secret,
		ProvisioningURI: res.ProvisioningURI,
		QRCodeDataURI:   res.QRCodeDataURI,
		AlreadyEnabled:  res.AlreadyEnabled,
	})
}

// HandleQRCode handles GET /profile/2fa/qr-code
//
//	@Summary		Provisioning QR code
//	@Description	Returns the authenticated account's provisioning QR as a raw PNG. Forbidden while 2FA is disabled.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Produce		png
//	@Success		200	{string}	binary					"PNG image"
//	@Failure		401	{object}	twofasdk.ErrorResponse	"invalid or missing access token"
//	@Failure		403	{object}	twofasdk.ErrorResponse	"no active TOTP secret"
//	@Failure		500	{object}	twofasdk.ErrorResponse	"internal server error"
//	@Router			/profile/2fa/qr-code [get].
func (h *ProfileHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		twofasdk.ErrInvalidToken.WriteError(w)
		return
	}

	png, err := h.Lifecycle.RawQR(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			twofasdk.ErrUserNotFound.WriteError(w)
		case errors.Is(err, service.ErrTOTPNotEnabled):
			twofasdk.ErrTOTPNotEnabled.WriteError(w)
		default:
			log.Error("failed to render QR code", "user_id", userID, "err", err)
			twofasdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// HandleDisable handles POST /profile/2fa/disable
//
//	@Summary		Disable 2FA
//	@Description	Clears the authenticated account's TOTP secret. Re-enabling later mints a fresh secret.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Success		204	"disabled"
//	@Failure		401	{object}	twofasdk.ErrorResponse	"invalid or missing access token"
//	@Failure		403	{object}	twofasdk.ErrorResponse	"user not found"
//	@Failure		500	{object}	twofasdk.ErrorResponse	"internal server error"
//	@Router			/profile/2fa/disable [post].
func (h *ProfileHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		twofasdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.Lifecycle.Disable(ctx, userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			twofasdk.ErrUserNotFound.WriteError(w)
			return
		}
		log.Error("failed to disable 2FA", "user_id", userID, "err", err)
		twofasdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleChangePassword handles POST /profile/password
//
//	@Summary		Change password
//	@Description	Rotates the account password after verifying the current one. The new password must satisfy the strength policy; violations come back as structured codes.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204	"password changed"
//	@Failure		400	{object}	twofasdk.ErrorResponse	"weak password or malformed request"
//	@Failure		401	{object}	twofasdk.ErrorResponse	"wrong current password or missing token"
//	@Failure		500	{object}	twofasdk.ErrorResponse	"internal server error"
//	@Router			/profile/password [post].
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		twofasdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req twofasdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.CurrentPassword == "" || req.NewPassword == "" {
		twofasdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Users.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		var weak *service.WeakPasswordError
		switch {
		case errors.As(err, &weak):
			codes := make([]string, len(weak.Violations))
			for i, v := range weak.Violations {
				codes[i] = string(v)
			}
			twofasdk.WeakPasswordError(codes).WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials):
			log.Warn("password change with wrong current password", "user_id", userID)
			twofasdk.ErrInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrUserNotFound):
			twofasdk.ErrUserNotFound.WriteError(w)
		default:
			log.Error("failed to change password", "user_id", userID, "err", err)
			twofasdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
