package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read from an optional YAML file (CPF_CONFIG_FILE) and then from
// the environment, which wins.
type Config struct {
	Env                  string        `yaml:"env"`                   // dev, staging, prod (default: dev)
	LogLevel             string        `yaml:"log_level"`             // debug, info, warn, error (default: info)
	LogFormat            string        `yaml:"log_format"`            // json, text (default: json)
	Port                 int           `yaml:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"` // default: 10s
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // default: 1h

	// DatabaseURL is sqlite://path, sqlite://:memory: or postgres://...
	DatabaseURL string `yaml:"database_url"`
	PepperFile  string `yaml:"pepper_file"` // default: ./pepper

	Issuer         string        `yaml:"issuer"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	// SigningKeyFile keeps the token signing key across restarts. Empty
	// means a fresh key on every start.
	SigningKeyFile string `yaml:"signing_key_file"`
	// SigningKeySecret seals SigningKeyFile at rest.
	SigningKeySecret string `yaml:"signing_key_secret"`

	SuperAdminEmails []string       `yaml:"super_admin_emails"`
	BootstrapAdmin   BootstrapAdmin `yaml:"bootstrap_admin"`

	Reset ResetConfig `yaml:"password_reset"`
	SMTP  SMTPConfig  `yaml:"smtp"`
}

type BootstrapAdmin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type ResetConfig struct {
	NameRatio      float64       `yaml:"name_ratio"`
	CompanyRatio   float64       `yaml:"company_ratio"`
	PhoneMinDigits int           `yaml:"phone_min_digits"`
	Debug          bool          `yaml:"debug"`
	TTL            time.Duration `yaml:"ttl"`
	MinInterval    time.Duration `yaml:"min_interval"`
	AuditRetention time.Duration `yaml:"audit_retention"`
}

type SMTPConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
	From   string `yaml:"from"`
	TLS    bool   `yaml:"tls"`
	AppURL string `yaml:"app_url"`
}

func defaultConfig() Config {
	return Config{
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: time.Hour,
		DatabaseURL:          "sqlite://market.db",
		PepperFile:           "pepper",
		Issuer:               "cpf-market",
		AccessTokenTTL:       time.Hour,
		Reset: ResetConfig{
			NameRatio:      0.90,
			CompanyRatio:   0.85,
			PhoneMinDigits: 6,
			TTL:            20 * time.Minute,
			MinInterval:    90 * time.Second,
			AuditRetention: 90 * 24 * time.Hour,
		},
		SMTP: SMTPConfig{
			Port: 587,
			TLS:  true,
		},
	}
}

func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CPF_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)

	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.PepperFile = getEnvOrDefault("CPF_PEPPER_FILE", cfg.PepperFile)

	cfg.Issuer = getEnvOrDefault("CPF_ISSUER", cfg.Issuer)
	cfg.AccessTokenTTL = getEnvDurationOrDefault("CPF_ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.SigningKeyFile = getEnvOrDefault("CPF_SIGNING_KEY_FILE", cfg.SigningKeyFile)
	cfg.SigningKeySecret = getEnvOrDefault("CPF_SIGNING_KEY_SECRET", cfg.SigningKeySecret)

	if v := os.Getenv("CPF_SUPER_ADMIN_EMAILS"); v != "" {
		cfg.SuperAdminEmails = strings.Split(v, ",")
	}
	cfg.BootstrapAdmin.Email = getEnvOrDefault("CPF_BOOTSTRAP_ADMIN_EMAIL", cfg.BootstrapAdmin.Email)
	cfg.BootstrapAdmin.Password = getEnvOrDefault("CPF_BOOTSTRAP_ADMIN_PASSWORD", cfg.BootstrapAdmin.Password)
	cfg.BootstrapAdmin.Name = getEnvOrDefault("CPF_BOOTSTRAP_ADMIN_NAME", cfg.BootstrapAdmin.Name)

	cfg.Reset.NameRatio = getEnvFloatOrDefault("CPF_PWRESET_NAME_RATIO", cfg.Reset.NameRatio)
	cfg.Reset.CompanyRatio = getEnvFloatOrDefault("CPF_PWRESET_COMPANY_RATIO", cfg.Reset.CompanyRatio)
	cfg.Reset.PhoneMinDigits = getEnvIntOrDefault("CPF_PWRESET_PHONE_MIN_DIGITS", cfg.Reset.PhoneMinDigits)
	cfg.Reset.Debug = getEnvBoolOrDefault("CPF_DEBUG_PWRESET", cfg.Reset.Debug)
	cfg.Reset.TTL = getEnvDurationOrDefault("CPF_PWRESET_TTL", cfg.Reset.TTL)
	cfg.Reset.MinInterval = getEnvDurationOrDefault("CPF_PWRESET_MIN_INTERVAL", cfg.Reset.MinInterval)
	cfg.Reset.AuditRetention = getEnvDurationOrDefault("CPF_PWRESET_AUDIT_RETENTION", cfg.Reset.AuditRetention)

	cfg.SMTP.Host = getEnvOrDefault("CPF_SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvIntOrDefault("CPF_SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.User = getEnvOrDefault("CPF_SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Pass = getEnvOrDefault("CPF_SMTP_PASS", cfg.SMTP.Pass)
	cfg.SMTP.From = getEnvOrDefault("CPF_SMTP_FROM", cfg.SMTP.From)
	cfg.SMTP.TLS = getEnvBoolOrDefault("CPF_SMTP_TLS", cfg.SMTP.TLS)
	cfg.SMTP.AppURL = getEnvOrDefault("CPF_APP_URL", cfg.SMTP.AppURL)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if _, _, err := parseDatabaseURL(c.DatabaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Reset.NameRatio <= 0 || c.Reset.NameRatio > 1 {
		errs = append(errs, fmt.Errorf("CPF_PWRESET_NAME_RATIO must be in (0,1], got %v", c.Reset.NameRatio))
	}
	if c.Reset.CompanyRatio <= 0 || c.Reset.CompanyRatio > 1 {
		errs = append(errs, fmt.Errorf("CPF_PWRESET_COMPANY_RATIO must be in (0,1], got %v", c.Reset.CompanyRatio))
	}
	if c.Reset.PhoneMinDigits < 1 {
		errs = append(errs, fmt.Errorf("CPF_PWRESET_PHONE_MIN_DIGITS must be positive, got %d", c.Reset.PhoneMinDigits))
	}
	if c.BootstrapAdmin.Email != "" && c.BootstrapAdmin.Password == "" {
		errs = append(errs, errors.New("CPF_BOOTSTRAP_ADMIN_PASSWORD is required with CPF_BOOTSTRAP_ADMIN_EMAIL"))
	}
	if c.SigningKeySecret != "" && c.SigningKeyFile == "" {
		errs = append(errs, errors.New("CPF_SIGNING_KEY_SECRET needs CPF_SIGNING_KEY_FILE"))
	}
	return errors.Join(errs...)
}

// SuperAdmins returns the lower-cased super-admin emails, bootstrap admin
// included.
func (c Config) SuperAdmins() []string {
	out := make([]string, 0, len(c.SuperAdminEmails)+1)
	for _, e := range append(slices.Clone(c.SuperAdminEmails), c.BootstrapAdmin.Email) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// parseDatabaseURL splits DatabaseURL into a driver name and the string the
// driver opens.
func parseDatabaseURL(raw string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", errors.New("DATABASE_URL: sqlite path is empty")
		}
		return "sqlite", path, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres", raw, nil
	}
	return "", "", fmt.Errorf("DATABASE_URL: unsupported scheme in %q", redactURL(raw))
}

// redactURL drops everything after the scheme so credentials never reach a
// log line.
func redactURL(raw string) string {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return "<invalid>"
	}
	return scheme + "://…"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
