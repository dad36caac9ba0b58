package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CPF_CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "sqlite://market.db", cfg.DatabaseURL)
	require.InDelta(t, 0.90, cfg.Reset.NameRatio, 1e-9)
	require.InDelta(t, 0.85, cfg.Reset.CompanyRatio, 1e-9)
	require.Equal(t, 6, cfg.Reset.PhoneMinDigits)
	require.Equal(t, 20*time.Minute, cfg.Reset.TTL)
	require.Equal(t, 90*time.Second, cfg.Reset.MinInterval)
	require.True(t, cfg.SMTP.TLS)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
database_url: postgres://market@db/market
super_admin_emails: [Ops@CPF.test]
password_reset:
  name_ratio: 0.8
  ttl: 15m
signing_key_file: /var/lib/market/signing.key
signing_key_secret: from-file
smtp:
  host: smtp.cpf.test
  tls: false
`), 0o600))

	t.Setenv("CPF_CONFIG_FILE", path)
	t.Setenv("PORT", "9191")
	t.Setenv("CPF_PWRESET_PHONE_MIN_DIGITS", "8")
	t.Setenv("CPF_BOOTSTRAP_ADMIN_EMAIL", "root@cpf.test")
	t.Setenv("CPF_BOOTSTRAP_ADMIN_PASSWORD", "Secreta123")
	t.Setenv("CPF_SIGNING_KEY_SECRET", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Port, "env wins over the file")
	require.Equal(t, "postgres://market@db/market", cfg.DatabaseURL)
	require.InDelta(t, 0.8, cfg.Reset.NameRatio, 1e-9)
	require.InDelta(t, 0.85, cfg.Reset.CompanyRatio, 1e-9, "unset keys keep defaults")
	require.Equal(t, 8, cfg.Reset.PhoneMinDigits)
	require.Equal(t, 15*time.Minute, cfg.Reset.TTL)
	require.Equal(t, "smtp.cpf.test", cfg.SMTP.Host)
	require.False(t, cfg.SMTP.TLS)
	require.Equal(t, "/var/lib/market/signing.key", cfg.SigningKeyFile)
	require.Equal(t, "from-env", cfg.SigningKeySecret)
	require.Equal(t, []string{"ops@cpf.test", "root@cpf.test"}, cfg.SuperAdmins())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	bad := defaultConfig()
	bad.Reset.NameRatio = 1.5
	bad.DatabaseURL = "mysql://x"
	bad.BootstrapAdmin.Email = "a@b.test"
	bad.SigningKeySecret = "s"
	err := bad.Validate()
	require.ErrorContains(t, err, "CPF_PWRESET_NAME_RATIO")
	require.ErrorContains(t, err, "DATABASE_URL")
	require.ErrorContains(t, err, "CPF_BOOTSTRAP_ADMIN_PASSWORD")
	require.ErrorContains(t, err, "CPF_SIGNING_KEY_SECRET")
}

func TestParseDatabaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, driver, dsn string
		wantErr         bool
	}{
		{"sqlite://market.db", "sqlite", "market.db", false},
		{"sqlite://:memory:", "sqlite", ":memory:", false},
		{"postgres://u:p@h/db?sslmode=disable", "postgres", "postgres://u:p@h/db?sslmode=disable", false},
		{"postgresql://h/db", "postgres", "postgresql://h/db", false},
		{"sqlite://", "", "", true},
		{"mysql://u:secret@h/db", "", "", true},
	}
	for _, tc := range cases {
		driver, dsn, err := parseDatabaseURL(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			require.NotContains(t, err.Error(), "secret")
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.driver, driver)
		require.Equal(t, tc.dsn, dsn)
	}
}
