package utils

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

type Mailer interface {
	SendWelcome(ctx context.Context, toEmail, firstName string) error
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg MailConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// gomail has no context support; the send keeps running in the background
	// after ctx is done and its result is dropped.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(welcomeMessage(m.from, toEmail, firstName))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send welcome mail to %s: %w", toEmail, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send welcome mail to %s: %w", toEmail, ctx.Err())
	}
}

func welcomeMessage(from, toEmail, firstName string) *gomail.Message {
	mailer := gomail.NewMessage()
	mailer.SetHeader("From", from)
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", "Welcome aboard")
	mailer.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\nyour account has been created. You can now sign in with %s.\n", firstName, toEmail))
	return mailer
}

// LogMailer is used when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "welcome mail skipped, smtp not configured",
		slog.String("to", toEmail),
		slog.String("first_name", firstName),
	)
	return nil
}
