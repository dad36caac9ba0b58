package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, remote, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{"remote addr", nil, "192.168.1.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.2"}, "203.0.113.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestFormFieldKeyExtractor(t *testing.T) {
	t.Parallel()

	form := url.Values{"email": {"  Ana@Camara.test "}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "ana@camara.test", httpx.FormFieldKeyExtractor("email")(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1"
	key := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("email"))(req)
	require.Equal(t, "10.0.0.9", key)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2})(okHandler)

	for range 2 {
		require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:1", "/").Code)
	}

	rec := hit(h, "192.168.1.1:1", "/")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	require.Equal(t, http.StatusOK, hit(h, "192.168.1.2:1", "/").Code, "other IPs keep their own bucket")
}

func TestRateLimitByIPAndFormField(t *testing.T) {
	t.Parallel()

	h := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, "email")(okHandler)

	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", "/?email=a@x").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1", "/?email=A@X").Code)
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", "/?email=b@x").Code)
}

func TestRateLimitPassesWithoutKey(t *testing.T) {
	t.Parallel()

	h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
		func(*http.Request) string { return "" })(okHandler)
	for range 3 {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", "/").Code)
	}
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TESTPROFILE_REQUESTS", "7")
	t.Setenv("RATELIMIT_TESTPROFILE_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_TESTPROFILE_BURST", "-1")

	got := httpx.ParseRateLimitFromEnv("TESTPROFILE", httpx.StrictLimit)
	require.Equal(t, 7, got.RequestsPerWindow)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, httpx.StrictLimit.Burst, got.Burst)
}

func TestRateLimitProfilesAreOrdered(t *testing.T) {
	t.Parallel()

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}
