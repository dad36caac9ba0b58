package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cpf-camaras/market/pkg/idx"
)

// RequestIDHeader carries the correlation id in and out of every request.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// probePaths are polled by orchestrators every few seconds; their access
// lines drop to debug so they do not drown the reset audit trail.
var probePaths = map[string]bool{
	"/livez":  true,
	"/readyz": true,
}

// HTTPMiddleware attaches a request-scoped logger to the context and writes
// one http_request line per request. Server errors log at error level and
// client errors at warn.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = idx.New().String()
			}
			w.Header().Set(RequestIDHeader, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(rec, r.WithContext(WithContext(r.Context(), logger)))

			logger.Log(r.Context(), accessLevel(r.URL.Path, rec.status), "http_request",
				"status", rec.status,
				"bytes", rec.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case probePaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter

	status  int
	written int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.written += n
	return n, err
}
