package service

import (
	"context"
	"testing"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesVerifiableToken(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedChamber(t, s, "Cámara")
	seedUser(t, s, "root@example.com", withRole(domain.RoleAdmin))
	member := seedUser(t, s, "socio@example.com", withChamber(c.ID))

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "cpf-test"})
	require.NoError(t, err)

	users := &UserService{Store: s, SuperAdmins: []string{"root@example.com"}}
	svc := &TokenService{KeyManager: km, Users: users, Issuer: "cpf-test", AccessTTL: 10 * time.Minute}

	res, err := svc.Login(ctx, "socio@example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, "Bearer", res.TokenType)
	require.Equal(t, 600, res.ExpiresIn)
	require.False(t, res.SuperAdmin)

	claims, err := km.Verifier.Verify(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, member.ID, claims.Subject)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, c.ID, claims.ChamberID)

	actor := ActorFromClaims(claims)
	require.Equal(t, member.ID, actor.UserID)
	require.Equal(t, domain.RoleUser, actor.Role)

	res, err = svc.Login(ctx, "root@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, res.SuperAdmin)
	claims, err = km.Verifier.Verify(res.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.SuperAdmin)

	_, err = svc.Login(ctx, "socio@example.com", "Incorrecta1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
