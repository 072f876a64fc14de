// Package notify delivers outbound email for issue events.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/config"
)

// ErrNotConfigured is returned by SMTPMailer when host, port or sender is missing.
var ErrNotConfigured = errors.New("email not configured")

// Message is a single HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay using PLAIN auth.
type SMTPMailer struct {
	cfg    config.NotificationConfig
	server string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds a mailer from notification config.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		cfg:    cfg,
		server: cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if the relay and sender are set.
func (m *SMTPMailer) IsConfigured() bool {
	return m.cfg.SMTPHost != "" && m.cfg.SMTPPort != "" && m.cfg.EmailFrom != ""
}

// Send delivers msg. net/smtp has no context support, so ctx is only checked up front.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.IsConfigured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.server, m.auth, m.cfg.EmailFrom, msg.To, m.compose(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	from := m.cfg.EmailFrom
	if m.cfg.EmailFromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.EmailFromName, m.cfg.EmailFrom)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&buf, "\r\n")
	fmt.Fprintf(&buf, "%s\r\n", msg.HTML)
	return buf.Bytes()
}

// LogMailer writes messages to the log instead of sending them. Used when SMTP is unset.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (not sent, smtp disabled)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
