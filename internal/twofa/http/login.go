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

// LoginHandler runs the password step of authentication.
type LoginHandler struct {
	Lifecycle    *service.LifecycleService
	Signer       *jwtx.Signer
	ChallengeTTL time.Duration
	AccessTTL    time.Duration
}

// ServeHTTP handles POST /login
//
//	@Summary		Password login
//	@Description	Verifies the email/password pair. Accounts with an active TOTP secret (including one auto-provisioned by this very login) receive a short-lived challenge token and must complete POST /2fa/verify; accounts without a second factor receive an access token directly.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.LoginRequest	true	"credentials"
//	@Success		200		{object}	twofasdk.LoginResponse	"challenge or access token"
//	@Failure		400		{object}	twofasdk.ErrorResponse	"malformed request"
//	@Failure		401		{object}	twofasdk.ErrorResponse	"invalid credentials"
//	@Failure		500		{object}	twofasdk.ErrorResponse	"internal server error"
//	@Router			/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req twofasdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		twofasdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Lifecycle.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("login rejected", "email", req.Email)
			twofasdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		twofasdk.ErrServerError.WriteError(w)
		return
	}

	if res.User.TOTPEnabled() {
		token, err := h.Signer.Sign(res.User.ID, res.User.Email, res.Session.ID,
			jwtx.UseChallenge, h.ChallengeTTL)
		if err != nil {
			log.Error("failed to sign challenge token", "err", err)
			twofasdk.ErrServerError.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, twofasdk.LoginResponse{
			TokenType:        "Bearer",
			ExpiresIn:        int(h.ChallengeTTL.Seconds()),
			TwoFactorPending: true,
			ChallengeToken:   token,
		})
		return
	}

	token, err := h.Signer.Sign(res.User.ID, res.User.Email, res.Session.ID,
		jwtx.UseAccess, h.AccessTTL)
	if err != nil {
		log.Error("failed to sign access token", "err", err)
		twofasdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, twofasdk.LoginResponse{
		TokenType:   "Bearer",
		ExpiresIn:   int(h.AccessTTL.Seconds()),
		AccessToken: token,
	})
}
