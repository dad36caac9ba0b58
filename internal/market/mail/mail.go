// Package mail delivers password reset codes by SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cpf-camaras/market/pkg/slogx"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP settings are incomplete.
var ErrNotConfigured = errors.New("mail: smtp not configured")

// ResetCodeMessage is everything needed to tell a user their reset code.
type ResetCodeMessage struct {
	To       string
	Name     string
	Code     string
	ValidFor time.Duration
}

// Notifier sends out-of-band messages to users.
type Notifier interface {
	// Configured reports whether messages can be sent at all.
	Configured() bool
	SendResetCode(ctx context.Context, msg ResetCodeMessage) error
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string

	// TLS verifies the server certificate on STARTTLS. Disable only for
	// internal relays with self-signed certificates.
	TLS bool

	// AppURL is linked from message bodies.
	AppURL string
}

type SMTPNotifier struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	cfg.AppURL = strings.TrimRight(strings.TrimSpace(cfg.AppURL), "/")

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !cfg.TLS, // #nosec G402 - opt-in for internal relays
	}
	return &SMTPNotifier{cfg: cfg, dialer: d}
}

func (n *SMTPNotifier) Configured() bool {
	return n.cfg.Host != "" && n.cfg.User != "" && n.cfg.Pass != "" && n.cfg.From != ""
}

func (n *SMTPNotifier) SendResetCode(ctx context.Context, msg ResetCodeMessage) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", ResetCodeSubject)
	m.SetBody("text/plain", ResetCodeBody(msg, n.cfg.AppURL))

	// Log the intent without the code or the recipient.
	log := slogx.FromContext(ctx)
	log.Info("sending reset code email", slog.String("smtp_host", n.cfg.Host), slog.Int("smtp_port", n.cfg.Port))

	if err := n.dialer.DialAndSend(m); err != nil {
		log.Error("reset code email failed", slog.Any("error", err))
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
