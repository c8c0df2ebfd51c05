package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/totpguard/internal/twofa/service"
	"github.com/aussiebroadwan/totpguard/internal/twofa/store"
	"github.com/aussiebroadwan/totpguard/pkg/httpx"
	"github.com/aussiebroadwan/totpguard/pkg/jwtx"
	"github.com/aussiebroadwan/totpguard/pkg/slogx"

	_ "github.com/aussiebroadwan/totpguard/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	Lifecycle *service.LifecycleService
	Users     *service.UserService

	ChallengeTTL time.Duration
	AccessTTL    time.Duration
}

func NewRouter(
	signer *jwtx.Signer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerProfile()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			TotpGuard API
//	@version		0.1.0
//	@description	TOTP-based two-factor authentication service: password login with optional secret auto-provisioning, a one-time setup view, code verification with clock-skew tolerance, and self-service enable/disable.
//	@description
//	@description				Challenge and access tokens are EdDSA-signed JWTs bound to a server-side login session.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/totpguard
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT challenge or access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{
		Lifecycle:    r.Lifecycle,
		Signer:       r.signer,
		ChallengeTTL: r.ChallengeTTL,
		AccessTTL:    r.AccessTTL,
	}

	// POST /login - strict rate limit (credential guessing)
	r.Mux.Handle("POST /login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		Lifecycle: r.Lifecycle,
		Signer:    r.signer,
		AccessTTL: r.AccessTTL,
	}

	// Both routes accept challenge tokens only: the password step has
	// passed but the code has not.
	r.Mux.Handle("GET /2fa",
		httpx.Chain(http.HandlerFunc(h.HandleChallenge),
			httpx.AuthnMiddleware(r.signer, jwtx.UseChallenge),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /2fa/verify - strict rate limit (code guessing)
	r.Mux.Handle("POST /2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.AuthnMiddleware(r.signer, jwtx.UseChallenge),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{
		Lifecycle: r.Lifecycle,
		Users:     r.Users,
	}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.signer, jwtx.UseAccess),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /profile/2fa/enable", secured(h.HandleEnable))
	r.Mux.Handle("GET /profile/2fa/qr-code", secured(h.HandleQRCode))
	r.Mux.Handle("POST /profile/2fa/disable", secured(h.HandleDisable))
	r.Mux.Handle("POST /profile/password", secured(h.HandleChangePassword))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.Users}

	// POST /v1/users - strict rate limit (open registration endpoint)
	r.Mux.Handle("POST /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer))
}
