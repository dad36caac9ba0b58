package http

import (
	"net/http"

	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
)

type ChambersHandler struct {
	ChamberService *service.ChamberService
}

// HandleList godoc
//
//	@Summary		List Chambers
//	@Tags			Chambers
//	@Produce		json
//	@Success		200	{object}	marketsdk.ChamberListResponse
//	@Router			/v1/chambers [get].
func (h *ChambersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	chambers, err := h.ChamberService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := marketsdk.ChamberListResponse{Chambers: make([]marketsdk.ChamberResponse, 0, len(chambers))}
	for _, c := range chambers {
		out.Chambers = append(out.Chambers, chamberResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create Chamber
//	@Tags			Chambers
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name		formData	string	true	"Chamber name, unique ignoring case"
//	@Param			location	formData	string	false	"City / Province"
//	@Success		201			{object}	marketsdk.ChamberResponse
//	@Failure		400			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		403			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		409			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/chambers [post].
func (h *ChambersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "Datos de formulario inválidos.")
		return
	}

	c, err := h.ChamberService.Create(r.Context(), r.FormValue("name"), r.FormValue("location"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, chamberResponse(c))
}

// HandleUpdate godoc
//
//	@Summary		Update Chamber
//	@Tags			Chambers
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Chamber id"
//	@Param			name		formData	string	true	"Chamber name"
//	@Param			city		formData	string	false	"City"
//	@Param			province	formData	string	false	"Province"
//	@Success		200			{object}	marketsdk.ChamberResponse
//	@Failure		400			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		409			{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/chambers/{id} [patch].
func (h *ChambersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "Datos de formulario inválidos.")
		return
	}

	c, err := h.ChamberService.Update(r.Context(),
		r.PathValue("id"),
		r.FormValue("name"),
		r.FormValue("city"),
		r.FormValue("province"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, chamberResponse(c))
}
