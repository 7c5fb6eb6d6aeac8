package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPProvider implements email sending over plain SMTP. It exists for local
// development against MailHog-style servers and as a last-resort fallback.
type SMTPProvider struct {
	host     string
	port     string
	user     string
	password string
}

// NewSMTPProvider creates an SMTP provider from SMTP_* environment
// variables.
func NewSMTPProvider() *SMTPProvider {
	return &SMTPProvider{
		host:     GetEnvOrDefault("SMTP_HOST", "localhost"),
		port:     GetEnvOrDefault("SMTP_PORT", "1025"),
		user:     GetEnvOrDefault("SMTP_USER", ""),
		password: GetEnvOrDefault("SMTP_PASSWORD", ""),
	}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// IsConfigured returns true if an SMTP host is set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.host != ""
}

// Send sends an email over SMTP.
func (p *SMTPProvider) Send(_ context.Context, req *EmailRequest) error {
	if len(req.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := buildMessage(req)
	addr := fmt.Sprintf("%s:%s", p.host, p.port)

	var auth smtp.Auth
	if p.user != "" && p.password != "" {
		auth = smtp.PlainAuth("", p.user, p.password, p.host)
	}

	if err := smtp.SendMail(addr, auth, req.From, req.To, msg); err != nil {
		slog.Error("SMTP send failed",
			"error", err,
			"smtp_server", addr,
			"to", strings.Join(req.To, ", "),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(req *EmailRequest) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", req.From))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(req.To, ", ")))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", req.Subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(req.Body)
	return []byte(sb.String())
}
