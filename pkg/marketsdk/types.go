package marketsdk

import (
	"time"

	"github.com/cpf-camaras/market/pkg/jwtx"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	Mail     string `json:"mail"`
}

// JWKSResponse is the public key set served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	SuperAdmin  bool   `json:"super_admin"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	ChamberID string    `json:"chamber_id,omitempty"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	Suspended bool      `json:"suspended"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

type MeResponse struct {
	UserResponse
	SuperAdmin bool `json:"super_admin"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

type ChamberResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Province string `json:"province"`
}

type ChamberListResponse struct {
	Chambers []ChamberResponse `json:"chambers"`
}

// RegisterRequest mirrors the form fields of POST /v1/users/register.
type RegisterRequest struct {
	Email     string
	Password  string
	Name      string
	Company   string
	Phone     string
	ChamberID string
	Role      string
}

// ResetClaims are the identity facts a user types to reset a password.
type ResetClaims struct {
	FullName  string
	Company   string
	Phone     string
	ChamberID string
}

// ResetRequestResponse is the same for every request, matched or not.
type ResetRequestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// ResetIssueResponse reports an operator-triggered reset code.
type ResetIssueResponse struct {
	Sent        bool   `json:"sent"`
	UserID      string `json:"user_id"`
	EmailMasked string `json:"email_masked"`
	TTLMinutes  int    `json:"ttl_minutes"`
}

type ResetAttemptResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Outcome   string    `json:"outcome"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ResetAttemptListResponse struct {
	Attempts []ResetAttemptResponse `json:"attempts"`
}
