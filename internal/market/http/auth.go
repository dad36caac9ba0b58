package http

import (
	"net/http"
	"strings"

	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
)

type LoginHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Log In
//	@Description	Exchanges email and password for an access token.
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string					true	"Account email"
//	@Param			password	formData	string					true	"Password"
//	@Success		200			{object}	marketsdk.TokenResponse	"access_token, token_type, expires_in"
//	@Failure		400			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		403			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "Datos de formulario inválidos.")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		badRequest(w, "email and password are required")
		return
	}

	res, err := h.TokenService.Login(r.Context(), email, password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, marketsdk.TokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresIn:   res.ExpiresIn,
		UserID:      res.User.ID,
		Role:        string(res.User.Role),
		SuperAdmin:  res.SuperAdmin,
	})
}

type MeHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Current Account
//	@Description	Returns the account behind the bearer token.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	marketsdk.MeResponse
//	@Failure		401	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.ClaimsFromContext(r.Context())

	u, err := h.UserService.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, marketsdk.MeResponse{
		UserResponse: userResponse(u),
		SuperAdmin:   claims.SuperAdmin,
	})
}
