package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/pkg/config"
)

// Dialer delivers composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends transactional email over SMTP
type SMTPSender struct {
	dialer Dialer
	from   string
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("EMAIL_FROM must be set when EMAIL_ENABLED is true")
	}
	return NewSMTPSenderWithDialer(gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), cfg.From), nil
}

// NewSMTPSenderWithDialer creates a sender around an existing dialer.
func NewSMTPSenderWithDialer(dialer Dialer, from string) *SMTPSender {
	return &SMTPSender{dialer: dialer, from: from}
}

// Send composes an HTML message and delivers it.
func (s *SMTPSender) Send(ctx context.Context, msg *entities.EmailMessage) error {
	if msg == nil || len(msg.To) == 0 {
		return errors.New("email has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email %q: %w", msg.Subject, err)
	}

	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

// LogSender only logs outgoing email. It is used when EMAIL_ENABLED is false.
type LogSender struct{}

// Send logs the message and reports success.
func (LogSender) Send(_ context.Context, msg *entities.EmailMessage) error {
	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Str("reply_to", msg.ReplyTo).
		Msg("Email delivery disabled, message logged only")
	return nil
}
