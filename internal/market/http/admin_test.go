package http_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/cpf-camaras/market/pkg/marketsdk"
	"github.com/stretchr/testify/require"
)

func TestLoginStatesAndMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chamberID := env.chamber("Cámara de Rosario")

	u, err := env.client.Register(ctx, marketsdk.RegisterRequest{
		Email:     "Nuevo@Empresa.test",
		Password:  testPassword,
		Name:      "Nuevo Socio",
		ChamberID: chamberID,
	})
	require.NoError(t, err)
	require.Equal(t, "nuevo@empresa.test", u.Email)
	require.False(t, u.Approved)

	_, err = env.client.Login(ctx, "nuevo@empresa.test", testPassword)
	requireAPIError(t, err, marketsdk.ErrorCodePendingApproval)

	_, err = env.client.Login(ctx, "nuevo@empresa.test", "Incorrecta1")
	requireAPIError(t, err, marketsdk.ErrorCodeInvalidCredentials)

	admin := env.login(adminEmail)
	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+u.ID+"/approve", admin, nil, nil))

	tok, err := env.client.Login(ctx, "nuevo@empresa.test", testPassword)
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.False(t, tok.SuperAdmin)

	me, err := env.client.Me(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, me.ID)
	require.Equal(t, chamberID, me.ChamberID)

	_, err = env.client.Me(ctx, "not-a-token")
	requireAPIError(t, err, marketsdk.ErrorCodeInvalidToken)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chamberID := env.chamber("Cámara de Rosario")

	base := marketsdk.RegisterRequest{Email: "a@b.test", Password: testPassword, Name: "A", ChamberID: chamberID}

	weak := base
	weak.Password = "corta"
	_, err := env.client.Register(ctx, weak)
	requireAPIError(t, err, marketsdk.ErrorCodeWeakPassword)

	admin := base
	admin.Role = "admin"
	_, err = env.client.Register(ctx, admin)
	requireAPIError(t, err, marketsdk.ErrorCodeInvalidRequest)

	noChamber := base
	noChamber.ChamberID = ""
	_, err = env.client.Register(ctx, noChamber)
	requireAPIError(t, err, marketsdk.ErrorCodeChamberRequired)

	_, err = env.client.Register(ctx, base)
	require.NoError(t, err)
	_, err = env.client.Register(ctx, base)
	requireAPIError(t, err, marketsdk.ErrorCodeEmailTaken)
}

func TestApprovalQueueScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rosario := env.chamber("Cámara de Rosario")
	cordoba := env.chamber("Cámara de Córdoba")

	env.member("asistente@rosario.test", rosario, "assistant")

	local, err := env.client.Register(ctx, marketsdk.RegisterRequest{
		Email: "local@rosario.test", Password: testPassword, Name: "Local", ChamberID: rosario,
	})
	require.NoError(t, err)
	remote, err := env.client.Register(ctx, marketsdk.RegisterRequest{
		Email: "remoto@cordoba.test", Password: testPassword, Name: "Remoto", ChamberID: cordoba,
	})
	require.NoError(t, err)

	assistant := env.login("asistente@rosario.test")

	var pending marketsdk.UserListResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/v1/admin/users/pending", assistant, nil, &pending))
	require.Len(t, pending.Users, 1)
	require.Equal(t, local.ID, pending.Users[0].ID)

	var errBody marketsdk.ErrorResponse
	status := env.call(http.MethodPost, "/v1/admin/users/"+remote.ID+"/approve", assistant, nil, &errBody)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, marketsdk.ErrorCodeForbidden, errBody.Error)

	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+local.ID+"/approve", assistant, nil, nil))

	admin := env.login(adminEmail)
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/v1/admin/users/pending", admin, nil, &pending))
	require.Len(t, pending.Users, 1)
	require.Equal(t, remote.ID, pending.Users[0].ID)

	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+remote.ID+"/reject", admin, nil, nil))
	_, err = env.client.Login(ctx, "remoto@cordoba.test", testPassword)
	requireAPIError(t, err, marketsdk.ErrorCodeAccountInactive)

	user := env.login("local@rosario.test")
	require.Equal(t, http.StatusForbidden, env.call(http.MethodGet, "/v1/admin/users/pending", user, nil, nil))
	require.Equal(t, http.StatusUnauthorized, env.call(http.MethodGet, "/v1/admin/users/pending", "", nil, nil))
}

func TestSuperAdminAccountActions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rosario := env.chamber("Cámara de Rosario")
	userID := env.member("juan@metalsur.test", rosario, "")
	env.member("asistente@rosario.test", rosario, "assistant")

	admin := env.login(adminEmail)
	assistant := env.login("asistente@rosario.test")

	require.Equal(t, http.StatusForbidden, env.call(http.MethodPost, "/v1/admin/users/"+userID+"/suspend", assistant, nil, nil))

	var status marketsdk.StatusResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+userID+"/suspend", admin, nil, &status))
	require.Equal(t, "suspended", status.Status)

	_, err := env.client.Login(ctx, "juan@metalsur.test", testPassword)
	requireAPIError(t, err, marketsdk.ErrorCodeAccountSuspended)

	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+userID+"/unsuspend", admin, nil, nil))
	env.login("juan@metalsur.test")

	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+userID+"/deactivate", admin, nil, nil))
	_, err = env.client.Login(ctx, "juan@metalsur.test", testPassword)
	requireAPIError(t, err, marketsdk.ErrorCodeAccountInactive)

	var errBody marketsdk.ErrorResponse
	require.Equal(t, http.StatusNotFound, env.call(http.MethodPost, "/v1/admin/users/nope/suspend", admin, nil, &errBody))
	require.Equal(t, marketsdk.ErrorCodeNotFound, errBody.Error)
}

func TestAdminIssuedResetCodeAndAttemptLog(t *testing.T) {
	env := newTestEnv(t)
	userID := env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")
	admin := env.login(adminEmail)

	var issued marketsdk.ResetIssueResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodPost, "/v1/admin/users/"+userID+"/reset-code", admin, nil, &issued))
	require.True(t, issued.Sent)
	require.Equal(t, "j**n@metalsur.test", issued.EmailMasked)
	require.Equal(t, 20, issued.TTLMinutes)
	require.Len(t, env.mail.Sent(), 1)

	var errBody marketsdk.ErrorResponse
	require.Equal(t, http.StatusTooManyRequests,
		env.call(http.MethodPost, "/v1/admin/users/"+userID+"/reset-code", admin, nil, &errBody))
	require.Equal(t, marketsdk.ErrorCodeRateLimited, errBody.Error)

	var log marketsdk.ResetAttemptListResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/v1/admin/password-reset/attempts?limit=10", admin, nil, &log))
	require.NotEmpty(t, log.Attempts)
	require.Equal(t, "admin_issued", log.Attempts[0].Outcome)
	require.Equal(t, userID, log.Attempts[0].UserID)
}

func TestAdminIssuedResetCodeReportsDeliveryProblems(t *testing.T) {
	env := newTestEnv(t)
	env.mail.Unconfigured = true
	userID := env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")
	admin := env.login(adminEmail)

	var errBody marketsdk.ErrorResponse
	status := env.call(http.MethodPost, "/v1/admin/users/"+userID+"/reset-code", admin, nil, &errBody)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, marketsdk.ErrorCodeDeliveryUnavailable, errBody.Error)
}

func TestChamberManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.login(adminEmail)

	var created marketsdk.ChamberResponse
	status := env.call(http.MethodPost, "/v1/chambers", admin, url.Values{
		"name":     {"Cámara de Paraná"},
		"location": {"Paraná - Entre Ríos"},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "Paraná", created.City)
	require.Equal(t, "Entre Ríos", created.Province)

	var errBody marketsdk.ErrorResponse
	status = env.call(http.MethodPost, "/v1/chambers", admin, url.Values{"name": {"CÁMARA DE PARANÁ"}}, &errBody)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, marketsdk.ErrorCodeChamberExists, errBody.Error)

	var updated marketsdk.ChamberResponse
	status = env.call(http.MethodPatch, "/v1/chambers/"+created.ID, admin, url.Values{
		"name": {"Cámara de Paraná"}, "city": {"Paraná"}, "province": {"ER"},
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ER", updated.Province)

	chambers, err := env.client.ListChambers(ctx)
	require.NoError(t, err)
	require.Len(t, chambers, 1)
	require.Equal(t, created.ID, chambers[0].ID)

	member := env.member("socio@parana.test", created.ID, "")
	require.NotEmpty(t, member)
	require.Equal(t, http.StatusForbidden,
		env.call(http.MethodPost, "/v1/chambers", env.login("socio@parana.test"), url.Values{"name": {"Otra"}}, nil))
}

func TestHealthAndJWKS(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	live, err := env.client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	var ready marketsdk.HealthResponse
	require.Equal(t, http.StatusOK, env.call(http.MethodGet, "/readyz", "", nil, &ready))
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Mail)

	jwks, err := env.client.JWKS(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, jwks.Keys)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)
}
