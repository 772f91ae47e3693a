// Package mail is the outbound e-mail collaborator. Only the password-reset
// template exists today; delivery guarantees are out of scope.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Mailer delivers templated notifications out of band.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// SMTPMailer sends through a configured SMTP relay.
type SMTPMailer struct {
	host         string
	port         string
	username     string
	password     string
	from         string
	resetURLBase string
}

func NewSMTP(host, port, username, password, from, resetURLBase string) *SMTPMailer {
	return &SMTPMailer{
		host:         host,
		port:         port,
		username:     username,
		password:     password,
		from:         from,
		resetURLBase: resetURLBase,
	}
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, token string) error {
	resetURL := fmt.Sprintf("%s/%s", m.resetURLBase, token)
	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Recuperacao de Senha\r\n" +
		"\r\n" +
		"Para redefinir sua senha, acesse: " + resetURL + "\r\n" +
		"O link expira em 30 minutos.\r\n")

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	return nil
}

// LogMailer stands in when SMTP is not configured; it records the token so
// local development can complete the reset flow from the logs.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.logger.InfoContext(ctx, "password reset requested (smtp not configured)",
		"to", to,
		"token", token,
	)
	return nil
}
