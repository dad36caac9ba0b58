package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/cpf-camaras/market/pkg/slogx"
)

// TokenResult is a signed access token plus the account it was issued to.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	User        domain.User
	SuperAdmin  bool
}

type TokenService struct {
	KeyManager *jwtx.KeyManager
	Users      *UserService
	Issuer     string
	AccessTTL  time.Duration
	Now        func() time.Time
}

// Login authenticates email/password and signs an access token.
func (s *TokenService) Login(ctx context.Context, email, password string) (TokenResult, error) {
	u, err := s.Users.Authenticate(ctx, email, password)
	if err != nil {
		return TokenResult{}, err
	}
	return s.Issue(ctx, u)
}

// Issue signs an access token for u.
func (s *TokenService) Issue(ctx context.Context, u domain.User) (TokenResult, error) {
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	super := s.Users.IsSuperAdmin(u)
	claims := jwtx.NewAccessClaims(jwtx.AccessClaimsInput{
		Subject:    u.ID,
		Role:       string(u.Role),
		ChamberID:  u.ChamberID,
		SuperAdmin: super,
		Email:      u.Email,
		Name:       u.Name,
	}, s.Issuer, ttl, now)

	signed, err := s.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign access token", slog.Any("error", err))
		return TokenResult{}, err
	}

	slogx.FromContext(ctx).Info("access token issued",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
		slog.Bool("super_admin", super),
	)
	return TokenResult{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		User:        u,
		SuperAdmin:  super,
	}, nil
}

// ActorFromClaims maps verified token claims to an Actor.
func ActorFromClaims(c jwtx.Claims) Actor {
	return Actor{
		UserID:     c.Subject,
		Role:       domain.Role(c.Role),
		ChamberID:  c.ChamberID,
		SuperAdmin: c.SuperAdmin,
	}
}
