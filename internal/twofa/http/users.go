package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/totpguard/internal/twofa/service"
	"github.com/aussiebroadwan/totpguard/pkg/httpx"
	"github.com/aussiebroadwan/totpguard/pkg/slogx"
	"github.com/aussiebroadwan/totpguard/pkg/twofasdk"
)

// UsersHandler registers accounts.
type UsersHandler struct {
	Users *service.UserService
}

// HandleCreate handles POST /v1/users
//
//	@Summary		Create user
//	@Description	Registers an account with an argon2id-hashed password. The password must satisfy the strength policy. New accounts start with 2FA disabled.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		twofasdk.CreateUserRequest	true	"account details"
//	@Success		201		{object}	twofasdk.UserResponse		"created account"
//	@Failure		400		{object}	twofasdk.ErrorResponse		"weak password or malformed request"
//	@Failure		409		{object}	twofasdk.ErrorResponse		"email already registered"
//	@Failure		500		{object}	twofasdk.ErrorResponse		"internal server error"
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req twofasdk.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Email == "" || req.Password == "" {
		twofasdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.CreateUser(ctx, req.Email, req.PreferredName, req.Password)
	if err != nil {
		var weak *service.WeakPasswordError
		switch {
		case errors.As(err, &weak):
			codes := make([]string, len(weak.Violations))
			for i, v := range weak.Violations {
				codes[i] = string(v)
			}
			twofasdk.WeakPasswordError(codes).WriteError(w)
		case errors.Is(err, service.ErrEmailTaken):
			twofasdk.ErrEmailTaken.WriteError(w)
		default:
			log.Error("failed to create user", "err", err)
			twofasdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, twofasdk.UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		PreferredName: user.PreferredName,
		TOTPEnabled:   user.TOTPEnabled(),
	})
}
