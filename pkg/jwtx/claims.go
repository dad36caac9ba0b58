package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime of a marketplace access token when
// the service does not override it.
const DefaultAccessTokenTTL = time.Hour

// Claims are access-token claims issued by the marketplace.
type Claims struct {
	jwt.RegisteredClaims

	// Role is one of "user", "assistant", "admin".
	Role string `json:"role"`

	// ChamberID scopes assistants and regular users to their chamber.
	ChamberID string `json:"chamber_id,omitempty"`

	// SuperAdmin is set for admins allowed to manage chambers and accounts.
	SuperAdmin bool `json:"super_admin,omitempty"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// AccessClaimsInput groups the user facts an access token carries.
type AccessClaimsInput struct {
	Subject    string
	Role       string
	ChamberID  string
	SuperAdmin bool
	Email      string
	Name       string
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(in AccessClaimsInput, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   in.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:       in.Role,
		ChamberID:  in.ChamberID,
		SuperAdmin: in.SuperAdmin,
		Email:      in.Email,
		Name:       in.Name,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
