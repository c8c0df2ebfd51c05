package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/totpguard/internal/twofa/service"
	"github.com/aussiebroadwan/totpguard/pkg/httpx"
	"github.com/aussiebroadwan/totpguard/pkg/jwtx"
	"github.com/aussiebroadwan/totpguard/pkg/slogx"
	"github.com/aussiebroadwan/totpguard/pkg/twofasdk"
)

// TwoFactorHandler serves the challenge view and code verification.
// Both routes require a challenge token from POST /login.
type TwoFactorHandler struct {
	Lifecycle *service.LifecycleService
	Signer    *jwtx.Signer
	AccessTTL time.Duration
}

// HandleChallenge handles GET /2fa
//
//	@Summary		2FA challenge view
//	@Description	Returns the payload for the code-entry page. The first render after an auto-provisioned secret is the one-time setup view: it includes the QR data URI for importing the secret, and consuming it clears the flag so later renders are the plain challenge.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	twofasdk.ChallengeResponse	"challenge or setup view"
//	@Failure		401	{object}	twofasdk.ErrorResponse		"invalid or missing challenge token"
//	@Failure		403	{object}	twofasdk.ErrorResponse		"user missing or 2FA not enabled"
//	@Failure		500	{object}	twofasdk.ErrorResponse		"internal server error"
//	@Router			/2fa [get].
func (h *TwoFactorHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	sessionID, sok := httpx.SessionIDFromContext(ctx)
	if !ok || !sok {
		twofasdk.ErrInvalidToken.WriteError(w)
		return
	}

	view, err := h.Lifecycle.Challenge(ctx, sessionID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionExpired):
			twofasdk.ErrInvalidToken.WriteError(w)
		case errors.Is(err, service.ErrUserNotFound):
			log.Warn("challenge for unknown user", "user_id", userID)
			twofasdk.ErrUserNotFound.WriteError(w)
		case errors.Is(err, service.ErrTOTPNotEnabled):
			twofasdk.ErrTOTPNotEnabled.WriteError(w)
		default:
			log.Error("failed to build challenge view", "err", err)
			twofasdk.ErrServerError.WriteError(w)
		}
		return
	}

	resp := twofasdk.ChallengeResponse{
		Email:         view.User.Email,
		PreferredName: view.User.PreferredName,
		Setup:         view.Setup,
		Secret:        view.Secret,
	}
	if view.QRCodeDataURI != "" {
		resp.QRCodeDataURI = &view.QRCodeDataURI
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleVerify handles POST /2fa/verify
//
//	@Summary		Verify TOTP code
//	@Description	Checks the submitted 6-digit code with one time step of clock skew either side. Success marks the login session authenticated and returns an access token.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.VerifyRequest	true	"TOTP code"
//	@Success		200		{object}	twofasdk.VerifyResponse	"access token"
//	@Failure		400		{object}	twofasdk.ErrorResponse	"invalid code or request"
//	@Failure		401		{object}	twofasdk.ErrorResponse	"invalid or missing challenge token"
//	@Failure		403		{object}	twofasdk.ErrorResponse	"user missing or 2FA not enabled"
//	@Failure		500		{object}	twofasdk.ErrorResponse	"internal server error"
//	@Router			/2fa/verify [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	sessionID, sok := httpx.SessionIDFromContext(ctx)
	email, _ := httpx.EmailFromContext(ctx)
	if !ok || !sok {
		twofasdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req twofasdk.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		twofasdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Lifecycle.VerifyCode(ctx, sessionID, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionExpired):
			twofasdk.ErrInvalidToken.WriteError(w)
		case errors.Is(err, service.ErrInvalidTOTPCode):
			log.Warn("invalid TOTP code", "user_id", userID)
			twofasdk.ErrInvalidCode.WriteError(w)
		case errors.Is(err, service.ErrUserNotFound):
			twofasdk.ErrUserNotFound.WriteError(w)
		case errors.Is(err, service.ErrTOTPNotEnabled):
			twofasdk.ErrTOTPNotEnabled.WriteError(w)
		default:
			log.Error("failed to verify TOTP code", "err", err)
			twofasdk.ErrServerError.WriteError(w)
		}
		return
	}

	token, err := h.Signer.Sign(userID, email, sessionID, jwtx.UseAccess, h.AccessTTL)
	if err != nil {
		log.Error("failed to sign access token", "err", err)
		twofasdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofasdk.VerifyResponse{
		TokenType:   "Bearer",
		ExpiresIn:   int(h.AccessTTL.Seconds()),
		AccessToken: token,
	})
}
