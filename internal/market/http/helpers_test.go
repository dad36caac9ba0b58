package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	httpapi "github.com/cpf-camaras/market/internal/market/http"
	"github.com/cpf-camaras/market/internal/market/identity"
	"github.com/cpf-camaras/market/internal/market/mail"
	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/internal/market/store/drivers/sqlite"
	"github.com/cpf-camaras/market/pkg/cryptox"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/cpf-camaras/market/pkg/marketsdk"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-pepper-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

const (
	testPassword = "Secreta123"
	adminEmail   = "admin@cpf.test"
)

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	client *marketsdk.Client
	store  store.Store
	mail   *mail.Recorder
	router *httpapi.Router

	users    *service.UserService
	chambers *service.ChamberService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "cpf-test"})
	require.NoError(t, err)

	rec := &mail.Recorder{}
	users := &service.UserService{Store: st, SuperAdmins: []string{adminEmail}}
	chambers := &service.ChamberService{Store: st}

	_, err = users.EnsureBootstrapAdmin(context.Background(), service.BootstrapAdmin{
		Email:    adminEmail,
		Password: testPassword,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(km.KeySet, km.Verifier, "test", st, logger)
	router.UserService = users
	router.ChamberService = chambers
	router.TokenService = &service.TokenService{KeyManager: km, Users: users, Issuer: "cpf-test"}
	router.ResetService = &service.ResetService{
		Store:    st,
		Resolver: identity.NewResolver(identity.DefaultConfig()),
		Notifier: rec,
	}
	router.ApplyRoutes()
	t.Cleanup(router.WaitPending)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{
		t:        t,
		srv:      srv,
		router:   router,
		client:   marketsdk.NewClient(srv.URL),
		store:    st,
		mail:     rec,
		users:    users,
		chambers: chambers,
	}
}

// requestReset posts the public request stage and waits for the
// background matching and delivery to finish.
func (e *testEnv) requestReset(claims marketsdk.ResetClaims) (*marketsdk.ResetRequestResponse, error) {
	e.t.Helper()
	res, err := e.client.RequestPasswordReset(context.Background(), claims)
	e.router.WaitPending()
	return res, err
}

func (e *testEnv) chamber(name string) string {
	e.t.Helper()
	c, err := e.chambers.Create(context.Background(), name, "Rosario / Santa Fe")
	require.NoError(e.t, err)
	return c.ID
}

// member registers an account through the API and approves it.
func (e *testEnv) member(email, chamberID, role string) string {
	e.t.Helper()
	ctx := context.Background()
	u, err := e.client.Register(ctx, marketsdk.RegisterRequest{
		Email:     email,
		Password:  testPassword,
		Name:      "Juan Pérez",
		Company:   "Metalúrgica del Sur SA",
		Phone:     "+54 341 555-1234",
		ChamberID: chamberID,
		Role:      role,
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.store.Users().Approve(ctx, u.ID, "", time.Now()))
	return u.ID
}

func (e *testEnv) login(email string) string {
	e.t.Helper()
	tok, err := e.client.Login(context.Background(), email, testPassword)
	require.NoError(e.t, err)
	return tok.AccessToken
}

// call sends a form request and decodes a JSON body into out when non-nil.
func (e *testEnv) call(method, path, token string, form url.Values, out any) int {
	e.t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

var juan = marketsdk.ResetClaims{
	FullName: "JUAN PEREZ",
	Company:  "Metalurgica del Sur S.A.",
	Phone:    "(0341) 15-555-1234",
}

func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()
	require.ErrorIs(t, err, &marketsdk.APIError{Code: code})
}
