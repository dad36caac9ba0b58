package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cpf-camaras/market/internal/market/service"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/pkg/httpx"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/cpf-camaras/market/pkg/slogx"

	_ "github.com/cpf-camaras/market/api/market" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	TokenService   *service.TokenService
	UserService    *service.UserService
	ChamberService *service.ChamberService
	ResetService   *service.ResetService

	resets *PasswordResetHandler
}

// WaitPending blocks until reset requests accepted by this router have
// finished in the background. Call it after the server stops accepting
// connections and before closing the store.
func (r *Router) WaitPending() {
	if r.resets != nil {
		r.resets.Wait()
	}
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerPasswordReset()
	r.registerAuth()
	r.registerUsers()
	r.registerChambers()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			CPF Marketplace Identity API
//	@version		0.1.0
//	@description	Accounts, chambers and identity-based password recovery for the chamber marketplace.
//	@description
//	@description				Access tokens are EdDSA-signed JWTs and can be verified with the JWKS endpoint.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{ResetService: r.ResetService}
	r.resets = h

	// Every stage is an unauthenticated guess at someone's identity, so all
	// three share the strict per-IP profile.
	r.Mux.Handle("POST /v1/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-reset/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{TokenService: r.TokenService}

	// Rate limited by IP + email form field to slow down password guessing
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	me := &MeHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &RegisterHandler{UserService: r.UserService}

	r.Mux.Handle("POST /v1/users/register",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerChambers() {
	h := &ChambersHandler{ChamberService: r.ChamberService}

	// The registration form lists chambers before anyone has an account.
	r.Mux.Handle("GET /v1/chambers",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("POST /v1/chambers",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireSuperAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/chambers/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireSuperAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminUsersHandler{
		UserService:  r.UserService,
		ResetService: r.ResetService,
	}

	// Approval queue: admins and assistants; the service narrows the scope.
	validators := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyRole("admin", "assistant"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	superOnly := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireSuperAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/users/pending", validators(h.HandleListPending))
	r.Mux.Handle("POST /v1/admin/users/{id}/approve", validators(h.HandleApprove))
	r.Mux.Handle("POST /v1/admin/users/{id}/reject", validators(h.HandleReject))

	r.Mux.Handle("POST /v1/admin/users/{id}/suspend", superOnly(h.HandleSuspend))
	r.Mux.Handle("POST /v1/admin/users/{id}/unsuspend", superOnly(h.HandleUnsuspend))
	r.Mux.Handle("POST /v1/admin/users/{id}/deactivate", superOnly(h.HandleDeactivate))
	r.Mux.Handle("POST /v1/admin/users/{id}/reset-code", superOnly(h.HandleIssueResetCode))
	r.Mux.Handle("GET /v1/admin/password-reset/attempts", superOnly(h.HandleListAttempts))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	var notifier mailStatus
	if r.ResetService != nil && r.ResetService.Notifier != nil {
		notifier = r.ResetService.Notifier
	}
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, notifier),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
