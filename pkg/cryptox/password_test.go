package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashPassword_PHCFormat(t *testing.T) {
	t.Parallel()

	for _, pw := range []string{"password123", "Contraseña9", strings.Repeat("a", 100), ""} {
		hash, err := HashPassword(pw)
		require.NoError(t, err)

		parts := strings.Split(hash, "$")
		require.Len(t, parts, 6)
		require.Equal(t, "argon2id", parts[1])
		require.Equal(t, "v=19", parts[2])
		require.Equal(t, "m=19456,t=2,p=1", parts[3])
		require.NotEmpty(t, parts[4])
		require.NotEmpty(t, parts[5])

		require.NoError(t, VerifyPassword(pw, hash))
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("samepassword1")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword1")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
	require.NoError(t, VerifyPassword("samepassword1", h1))
	require.NoError(t, VerifyPassword("samepassword1", h2))
}

func TestVerifyPassword_Mismatch(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct-password1")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong-password1", "Correct-password1", "correct-password1 ", ""} {
		require.ErrorIs(t, VerifyPassword(wrong, hash), ErrMismatch, wrong)
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":       "",
		"too few":     "$argon2id$v=19$m=19456",
		"wrong algo":  "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"wrong ver":   "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"bad params":  "$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"bad salt":    "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"bad payload": "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
	}
	for name, h := range cases {
		require.ErrorIs(t, VerifyPassword("x", h), ErrInvalidHash, name)
	}
}

func TestPepperIsPersisted(t *testing.T) {
	// Not parallel: swaps the package pepper path.
	dir := t.TempDir()
	prev := pepperFile
	t.Cleanup(func() { SetPepperPath(prev) })

	SetPepperPath(filepath.Join(dir, "nested", "pepper"))
	first := GetPepper()
	require.NotEmpty(t, first)

	data, err := os.ReadFile(filepath.Join(dir, "nested", "pepper"))
	require.NoError(t, err)
	require.Equal(t, first, string(data))

	SetPepperPath(filepath.Join(dir, "nested", "pepper"))
	require.Equal(t, first, GetPepper())
}
