package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.ChainFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }, mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestAuthnAndRoles(t *testing.T) {
	t.Parallel()

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "test"})
	require.NoError(t, err)

	mint := func(role string, super bool) string {
		c := jwtx.NewAccessClaims(jwtx.AccessClaimsInput{Subject: "u1", Role: role, SuperAdmin: super}, "test", time.Minute, time.Now())
		tok, err := km.GetSigner().Sign(c)
		require.NoError(t, err)
		return tok
	}

	protected := httpx.Chain(okHandler,
		httpx.AuthnMiddleware(km.Verifier),
		httpx.RequireAnyRole("admin", "assistant"),
	)
	superOnly := httpx.Chain(okHandler,
		httpx.AuthnMiddleware(km.Verifier),
		httpx.RequireSuperAdmin(),
	)

	call := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := call(protected, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	require.Equal(t, http.StatusUnauthorized, call(protected, "garbage").Code)
	require.Equal(t, http.StatusForbidden, call(protected, mint("user", false)).Code)
	require.Equal(t, http.StatusOK, call(protected, mint("assistant", false)).Code)

	rec = call(superOnly, mint("admin", false))
	require.Equal(t, http.StatusForbidden, rec.Code)
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "forbidden", body.Error)

	require.Equal(t, http.StatusOK, call(superOnly, mint("admin", true)).Code)
}
