package jwtx_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cpf-camaras/market/pkg/cryptox"
	"github.com/cpf-camaras/market/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://market.example.test"

func newSigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	s, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	return s
}

func sampleClaims(ttl time.Duration, now time.Time) jwtx.Claims {
	return jwtx.NewAccessClaims(jwtx.AccessClaimsInput{
		Subject:    "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		Role:       "assistant",
		ChamberID:  "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZW",
		SuperAdmin: false,
		Email:      "asistente@camara.test",
		Name:       "Asistente",
	}, testIssuer, ttl, now)
}

func TestEdDSASignAndVerify(t *testing.T) {
	t.Parallel()

	signer := newSigner(t, "k1")
	require.Equal(t, "EdDSA", signer.Alg())

	token, err := signer.Sign(sampleClaims(5*time.Minute, time.Now().UTC()))
	require.NoError(t, err)

	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddSigner(signer))
	require.True(t, ks.IsReady())

	jwks := ks.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)

	got, err := jwtx.NewVerifierEdDSA(ks, testIssuer, nil).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "assistant", got.Role)
	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZW", got.ChamberID)
	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", got.Subject)
	require.NotEmpty(t, got.ID)
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	signer := newSigner(t, "k1")
	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddSigner(signer))
	v := jwtx.NewVerifierEdDSA(ks, testIssuer, nil)

	t.Run("expired", func(t *testing.T) {
		tok, err := signer.Sign(sampleClaims(time.Minute, time.Now().Add(-2*time.Hour)))
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := sampleClaims(time.Minute, time.Now())
		c.Issuer = "someone-else"
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := newSigner(t, "k2")
		tok, err := other.Sign(sampleClaims(time.Minute, time.Now()))
		require.NoError(t, err)
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.Error(t, err)
	})
}

func TestJWKPEM(t *testing.T) {
	t.Parallel()

	pemStr, err := newSigner(t, "k1").PublicJWK().PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	_, err = jwtx.JWK{Kty: "RSA"}.PEM()
	require.Error(t, err)
}

func TestKeyManager(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{})
	require.Error(t, err)

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, NumKeys: 3})
	require.NoError(t, err)
	require.Equal(t, 3, km.NumSigners())
	require.Len(t, km.KeySet.PublicJWKS().Keys, 3)

	tok, err := km.GetSigner().Sign(sampleClaims(time.Minute, time.Now()))
	require.NoError(t, err)
	_, err = km.Verifier.Verify(tok)
	require.NoError(t, err)
}

func TestKeyManagerPersistsKeyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys", "signing.pem")

	first, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, KeyFile: path})
	require.NoError(t, err)
	tok, err := first.GetSigner().Sign(sampleClaims(time.Minute, time.Now()))
	require.NoError(t, err)

	second, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, KeyFile: path})
	require.NoError(t, err)
	require.Equal(t, first.GetSigner().KID(), second.GetSigner().KID())

	_, err = second.Verifier.Verify(tok)
	require.NoError(t, err)
}

func TestKeyManagerSealsKeyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "signing.key")
	secret := []byte("secreto-de-despliegue")

	first, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, KeyFile: path, KeySecret: secret})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, cryptox.IsSealedKey(raw))

	second, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, KeyFile: path, KeySecret: secret})
	require.NoError(t, err)
	require.Equal(t, first.GetSigner().KID(), second.GetSigner().KID())

	_, err = jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, KeyFile: path})
	require.ErrorContains(t, err, "sealed")

	_, err = jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, KeyFile: path, KeySecret: []byte("otro")})
	require.Error(t, err)
}
