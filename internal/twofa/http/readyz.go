package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/totpguard/internal/twofa/store"
	"github.com/aussiebroadwan/totpguard/pkg/httpx"
	"github.com/aussiebroadwan/totpguard/pkg/jwtx"
	"github.com/aussiebroadwan/totpguard/pkg/twofasdk"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database connection and token signer. Returns 503 while either is unavailable.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	twofasdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	twofasdk.HealthResponse	"a dependency is unavailable"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	signer *jwtx.Signer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &twofasdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if !signer.Ready() {
			checks.Signer = "error: no key material"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, twofasdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
