package http

import (
	"net/http"
	"strconv"

	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
)

// AdminUsersHandler serves the account validation queue and the
// super-admin account actions.
type AdminUsersHandler struct {
	UserService  *service.UserService
	ResetService *service.ResetService
}

func actorFrom(r *http.Request) service.Actor {
	claims, _ := httpx.ClaimsFromContext(r.Context())
	return service.ActorFromClaims(claims)
}

// HandleListPending godoc
//
//	@Summary		Pending Accounts
//	@Description	Accounts waiting for validation. Assistants only see regular users of their chamber.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	marketsdk.UserListResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/pending [get].
func (h *AdminUsersHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListPending(r.Context(), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := marketsdk.UserListResponse{Users: make([]marketsdk.UserResponse, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, userResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleApprove godoc
//
//	@Summary		Approve Account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	marketsdk.StatusResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/{id}/approve [post].
func (h *AdminUsersHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "approved", func(a service.Actor, id string) error {
		return h.UserService.Approve(r.Context(), a, id)
	})
}

// HandleReject godoc
//
//	@Summary		Reject Account
//	@Description	Deactivates a pending account. The record is kept.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	marketsdk.StatusResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/{id}/reject [post].
func (h *AdminUsersHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "rejected", func(a service.Actor, id string) error {
		return h.UserService.Reject(r.Context(), a, id)
	})
}

// HandleSuspend godoc
//
//	@Summary		Suspend Account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	marketsdk.StatusResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/{id}/suspend [post].
func (h *AdminUsersHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "suspended", func(a service.Actor, id string) error {
		return h.UserService.SetSuspended(r.Context(), a, id, true)
	})
}

// HandleUnsuspend godoc
//
//	@Summary		Reinstate Account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	marketsdk.StatusResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/{id}/unsuspend [post].
func (h *AdminUsersHandler) HandleUnsuspend(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "active", func(a service.Actor, id string) error {
		return h.UserService.SetSuspended(r.Context(), a, id, false)
	})
}

// HandleDeactivate godoc
//
//	@Summary		Annul Account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	marketsdk.StatusResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/{id}/deactivate [post].
func (h *AdminUsersHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "deactivated", func(a service.Actor, id string) error {
		return h.UserService.Deactivate(r.Context(), a, id)
	})
}

func (h *AdminUsersHandler) act(w http.ResponseWriter, r *http.Request, status string, fn func(service.Actor, string) error) {
	if err := fn(actorFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, marketsdk.StatusResponse{Status: status})
}

// HandleIssueResetCode godoc
//
//	@Summary		Send Reset Code
//	@Description	Emails a reset code to a known account. Delivery problems are reported.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	marketsdk.ResetIssueResponse
//	@Failure		403	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		422	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		429	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		502	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Failure		503	{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/users/{id}/reset-code [post].
func (h *AdminUsersHandler) HandleIssueResetCode(w http.ResponseWriter, r *http.Request) {
	res, err := h.ResetService.IssueForUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, marketsdk.ResetIssueResponse{
		Sent:        res.Sent,
		UserID:      res.UserID,
		EmailMasked: res.EmailMasked,
		TTLMinutes:  int(res.TTL.Minutes()),
	})
}

// HandleListAttempts godoc
//
//	@Summary		Reset Attempt Log
//	@Description	Newest password reset attempts first.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Max entries (default 100, max 500)"
//	@Success		200		{object}	marketsdk.ResetAttemptListResponse
//	@Failure		403		{object}	marketsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/password-reset/attempts [get].
func (h *AdminUsersHandler) HandleListAttempts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := h.ResetService.ListAttempts(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := marketsdk.ResetAttemptListResponse{Attempts: make([]marketsdk.ResetAttemptResponse, 0, len(attempts))}
	for _, a := range attempts {
		out.Attempts = append(out.Attempts, attemptResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
