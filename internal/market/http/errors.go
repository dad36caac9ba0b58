package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
	"github.com/cpf-camaras/market/pkg/slogx"
)

type errorMapping struct {
	err    error
	status int
	code   string
	desc   string
}

// serviceErrors maps service sentinels to responses. Order matters only in
// that the first match wins.
var serviceErrors = []errorMapping{
	{service.ErrWeakPassword, http.StatusBadRequest, marketsdk.ErrorCodeWeakPassword,
		"La contraseña debe tener al menos 8 caracteres, una letra y un número."},
	{service.ErrInvalidEmail, http.StatusBadRequest, marketsdk.ErrorCodeInvalidRequest, "Email inválido."},
	{service.ErrInvalidName, http.StatusBadRequest, marketsdk.ErrorCodeInvalidRequest, "El nombre es obligatorio."},
	{service.ErrInvalidRole, http.StatusBadRequest, marketsdk.ErrorCodeInvalidRequest, "Rol inválido."},
	{service.ErrInvalidChamberName, http.StatusBadRequest, marketsdk.ErrorCodeInvalidRequest, "El nombre de la cámara es obligatorio."},
	{service.ErrChamberRequired, http.StatusBadRequest, marketsdk.ErrorCodeChamberRequired, "Elegí una cámara."},
	{service.ErrEmailTaken, http.StatusConflict, marketsdk.ErrorCodeEmailTaken, "Ese email ya está registrado."},
	{service.ErrChamberExists, http.StatusConflict, marketsdk.ErrorCodeChamberExists, "Ya existe una cámara con ese nombre."},
	{service.ErrChamberNotFound, http.StatusNotFound, marketsdk.ErrorCodeChamberNotFound, "Cámara inexistente."},
	{service.ErrUserNotFound, http.StatusNotFound, marketsdk.ErrorCodeNotFound, "Usuario inexistente."},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, marketsdk.ErrorCodeInvalidCredentials, "Email o contraseña incorrectos."},
	{service.ErrAccountInactive, http.StatusForbidden, marketsdk.ErrorCodeAccountInactive, "La cuenta está inactiva."},
	{service.ErrAccountSuspended, http.StatusForbidden, marketsdk.ErrorCodeAccountSuspended, "La cuenta está suspendida."},
	{service.ErrAccountPendingApproval, http.StatusForbidden, marketsdk.ErrorCodePendingApproval, "La cuenta está pendiente de validación."},
	{service.ErrForbiddenScope, http.StatusForbidden, marketsdk.ErrorCodeForbidden, "No tenés permiso sobre esa cuenta."},

	{service.ErrResetNotFound, http.StatusBadRequest, marketsdk.ErrorCodeResetNotFound, "No hay un código vigente para esos datos."},
	{service.ErrResetAlreadyUsed, http.StatusBadRequest, marketsdk.ErrorCodeResetUsed, "El código ya fue utilizado."},
	{service.ErrResetBadExpiry, http.StatusBadRequest, marketsdk.ErrorCodeResetBadExpiry, "El código no es válido. Pedí uno nuevo."},
	{service.ErrResetExpired, http.StatusBadRequest, marketsdk.ErrorCodeResetExpired, "El código venció. Pedí uno nuevo."},
	{service.ErrResetInvalid, http.StatusBadRequest, marketsdk.ErrorCodeResetInvalid, "El código es incorrecto."},
	{service.ErrRateLimited, http.StatusTooManyRequests, marketsdk.ErrorCodeRateLimited, "Ya se envió un código hace instantes."},

	{service.ErrNoEmail, http.StatusUnprocessableEntity, marketsdk.ErrorCodeNoEmail, "El usuario no tiene email registrado."},
	{service.ErrDeliveryUnavailable, http.StatusServiceUnavailable, marketsdk.ErrorCodeDeliveryUnavailable, "El envío de emails no está configurado."},
	{service.ErrDeliveryFailed, http.StatusBadGateway, marketsdk.ErrorCodeDeliveryFailed, "No se pudo enviar el email."},
}

// writeServiceError writes the response for err. Unknown errors are logged
// and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			httpx.WriteError(w, m.status, m.code, m.desc)
			return
		}
	}

	slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	httpx.WriteError(w, http.StatusInternalServerError, marketsdk.ErrorCodeServerError, "Error interno.")
}

func badRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, marketsdk.ErrorCodeInvalidRequest, desc)
}
