package cryptox

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var resetCodeRe = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestGenerateResetCode(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 50)
	for range 50 {
		code, err := GenerateResetCode(ResetCodeBytes)
		require.NoError(t, err)
		require.Regexp(t, resetCodeRe, code)
		seen[code] = struct{}{}
	}
	// 32 bits of entropy; 50 draws colliding is not a realistic outcome.
	require.Greater(t, len(seen), 45)
}

func TestGenerateResetCode_InvalidSize(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1} {
		code, err := GenerateResetCode(n)
		require.Error(t, err)
		require.Empty(t, code)
	}
}

func TestNormalizeResetCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "A1B2C3D4", NormalizeResetCode("  a1b2c3d4\n"))
	require.Equal(t, "", NormalizeResetCode("   "))
}

func TestResetCodeRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashResetCode("A1B2C3D4")
	require.NoError(t, err)
	require.NotContains(t, hash, "A1B2C3D4")

	require.NoError(t, VerifyResetCode("A1B2C3D4", hash))
	require.NoError(t, VerifyResetCode(" a1b2c3d4 ", hash))
	require.ErrorIs(t, VerifyResetCode("A1B2C3D5", hash), ErrMismatch)
}
