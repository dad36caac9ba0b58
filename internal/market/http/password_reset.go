package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/cpf-camaras/market/internal/market/identity"
	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
	"github.com/cpf-camaras/market/pkg/slogx"
)

type PasswordResetHandler struct {
	ResetService *service.ResetService

	// pending tracks request-stage work still running after its 202.
	pending sync.WaitGroup
}

// Wait blocks until every accepted reset request has finished resolving
// and delivering.
func (h *PasswordResetHandler) Wait() {
	h.pending.Wait()
}

// claimsFromForm reads the identity fields shared by the three stages.
// Name and company are required; phone and chamber are optional.
func claimsFromForm(w http.ResponseWriter, r *http.Request) (identity.Claims, bool) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "Datos de formulario inválidos.")
		return identity.Claims{}, false
	}

	claims := identity.Claims{
		FullName:  strings.TrimSpace(r.FormValue("full_name")),
		Company:   strings.TrimSpace(r.FormValue("company")),
		Phone:     strings.TrimSpace(r.FormValue("phone")),
		ChamberID: strings.TrimSpace(r.FormValue("chamber_id")),
	}
	if claims.FullName == "" {
		badRequest(w, "full_name is required")
		return identity.Claims{}, false
	}
	if claims.Company == "" {
		badRequest(w, "company is required")
		return identity.Claims{}, false
	}
	return claims, true
}

// HandleRequest godoc
//
//	@Summary		Request Password Reset
//	@Description	Emails a one-time code to the address on file of the account matching the claims.
//	@Description	The response is identical whether or not anything matched.
//	@Tags			Password Reset
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			full_name	formData	string							true	"Full name as registered"
//	@Param			company		formData	string							true	"Company name"
//	@Param			phone		formData	string							false	"Phone, any format"
//	@Param			chamber_id	formData	string							false	"Chamber the account belongs to"
//	@Success		202			{object}	marketsdk.ResetRequestResponse	"status, message"
//	@Failure		400			{object}	marketsdk.ErrorResponse			"error, error_description"
//	@Failure		429			{object}	marketsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/password-reset/request [post].
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := claimsFromForm(w, r)
	if !ok {
		return
	}

	// Matching and delivery run after the response so its latency does not
	// depend on whether the claims matched anyone.
	h.pending.Add(1)
	go func(ctx context.Context) {
		defer h.pending.Done()
		res, err := h.ResetService.RequestReset(ctx, claims)
		if err != nil {
			log.Error("password reset request failed", slog.String("reason", string(res.Reason)), slog.Any("error", err))
			return
		}
		log.Info("password reset requested", slog.String("reason", string(res.Reason)))
	}(context.WithoutCancel(ctx))

	minutes := int(h.ResetService.CodeTTL().Minutes())
	httpx.WriteJSON(w, http.StatusAccepted, marketsdk.ResetRequestResponse{
		Status: "accepted",
		Message: fmt.Sprintf(
			"Si los datos coinciden con una cuenta activa, enviamos un código al email registrado. "+
				"El código vence en %d minutos.", minutes),
	})
}

// HandleVerify godoc
//
//	@Summary		Verify Reset Code
//	@Description	Checks a reset code against the account matching the claims without consuming it.
//	@Tags			Password Reset
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			full_name	formData	string						true	"Full name as registered"
//	@Param			company		formData	string						true	"Company name"
//	@Param			phone		formData	string						false	"Phone, any format"
//	@Param			chamber_id	formData	string						false	"Chamber the account belongs to"
//	@Param			code		formData	string						true	"Code received by email"
//	@Success		200			{object}	marketsdk.StatusResponse	"status"
//	@Failure		400			{object}	marketsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/password-reset/verify [post].
func (h *PasswordResetHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromForm(w, r)
	if !ok {
		return
	}
	code := strings.TrimSpace(r.FormValue("code"))
	if code == "" {
		badRequest(w, "code is required")
		return
	}

	if err := h.ResetService.VerifyWithClaims(r.Context(), claims, code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, marketsdk.StatusResponse{Status: "ok"})
}

// HandleConfirm godoc
//
//	@Summary		Confirm Password Reset
//	@Description	Sets a new password with a valid reset code. The code is consumed.
//	@Tags			Password Reset
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			full_name				formData	string						true	"Full name as registered"
//	@Param			company					formData	string						true	"Company name"
//	@Param			phone					formData	string						false	"Phone, any format"
//	@Param			chamber_id				formData	string						false	"Chamber the account belongs to"
//	@Param			code					formData	string						true	"Code received by email"
//	@Param			new_password			formData	string						true	"New password"
//	@Param			new_password_confirm	formData	string						true	"New password, repeated"
//	@Success		200						{object}	marketsdk.StatusResponse	"status"
//	@Failure		400						{object}	marketsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/password-reset/confirm [post].
func (h *PasswordResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromForm(w, r)
	if !ok {
		return
	}
	code := strings.TrimSpace(r.FormValue("code"))
	newPassword := r.FormValue("new_password")
	confirm := r.FormValue("new_password_confirm")

	switch {
	case code == "":
		badRequest(w, "code is required")
		return
	case newPassword == "":
		badRequest(w, "new_password is required")
		return
	case newPassword != confirm:
		badRequest(w, "Las contraseñas no coinciden.")
		return
	}

	if err := h.ResetService.ResetWithClaims(r.Context(), claims, code, newPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, marketsdk.StatusResponse{Status: "password_updated"})
}
