package http

import (
	"net/http"
	"strings"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/pkg/httpx"
)

type RegisterHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Register Account
//	@Description	Creates a user or assistant account. New accounts wait for validation by an assistant of the chamber or a super-admin.
//	@Tags			Users
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string					true	"Email"
//	@Param			password	formData	string					true	"Password"
//	@Param			name		formData	string					true	"Full name"
//	@Param			company		formData	string					false	"Company"
//	@Param			phone		formData	string					false	"Phone"
//	@Param			chamber_id	formData	string					true	"Chamber id"
//	@Param			role		formData	string					false	"user (default) or assistant"
//	@Success		201			{object}	marketsdk.UserResponse
//	@Failure		400			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		409			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/users/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "Datos de formulario inválidos.")
		return
	}

	var role domain.Role
	if raw := strings.TrimSpace(r.FormValue("role")); raw != "" {
		parsed, ok := domain.ParseRole(raw)
		if !ok {
			writeServiceError(w, r, service.ErrInvalidRole)
			return
		}
		role = parsed
	}

	u, err := h.UserService.Register(r.Context(), service.RegisterInput{
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		Name:      r.FormValue("name"),
		Company:   r.FormValue("company"),
		Phone:     r.FormValue("phone"),
		ChamberID: r.FormValue("chamber_id"),
		Role:      role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse(u))
}
