package domain_test

import (
	"testing"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/stretchr/testify/require"
)

func TestSplitLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, city, province string
	}{
		{"Rosario / Santa Fe", "Rosario", "Santa Fe"},
		{"Córdoba-Córdoba", "Córdoba", "Córdoba"},
		{"  Mendoza  ", "Mendoza", ""},
		{"", "", ""},
		{"Paraná / ", "Paraná", ""},
	}
	for _, tc := range cases {
		city, prov := domain.SplitLocation(tc.in)
		require.Equal(t, tc.city, city, tc.in)
		require.Equal(t, tc.province, prov, tc.in)
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, ok := domain.ParseRole("assistant")
	require.True(t, ok)
	require.Equal(t, domain.RoleAssistant, r)
	require.True(t, r.NeedsApproval())
	require.False(t, domain.RoleAdmin.NeedsApproval())

	_, ok = domain.ParseRole("root")
	require.False(t, ok)
}

func TestResetTokenExpiry(t *testing.T) {
	t.Parallel()

	tok := domain.ResetToken{ExpiresAt: "2026-01-02T03:04:05Z"}
	exp, err := tok.Expiry()
	require.NoError(t, err)
	require.Equal(t, 2026, exp.Year())
	require.False(t, tok.Used())

	_, err = domain.ResetToken{ExpiresAt: "mañana"}.Expiry()
	require.Error(t, err)
}

func TestFormatTimestampSortsLexically(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("ART", -3*3600))
	a := domain.FormatTimestamp(base)
	b := domain.FormatTimestamp(base.Add(500 * time.Millisecond))
	c := domain.FormatTimestamp(base.Add(time.Second))

	require.Equal(t, "2026-03-01T15:00:00.000000Z", a)
	require.Less(t, a, b)
	require.Less(t, b, c)

	back, err := domain.ResetToken{ExpiresAt: b}.Expiry()
	require.NoError(t, err)
	require.True(t, back.Equal(base.Add(500*time.Millisecond)))
}
