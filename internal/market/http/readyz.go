package http

import (
	"net/http"
	"time"

	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
)

type mailStatus interface {
	Configured() bool
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe covering the database and the token signer.
//	@Description	Unconfigured SMTP is reported but does not fail the probe.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	marketsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	marketsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	mail mailStatus,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &marketsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
			Mail:     "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: unreachable"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if mail == nil || !mail.Configured() {
			checks.Mail = "not_configured"
		}

		httpx.WriteJSON(w, statusCode, marketsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
