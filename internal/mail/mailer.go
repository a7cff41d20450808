package mail

import (
	"context"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/blueriver/escalation-service/internal/config"
)

// Message is a plain-text transactional email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends transactional mail. Implementations must respect the context
// deadline; callers treat failures as non-fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay via gomail.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer builds a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send dials and delivers a single message. Disabled configs no-op so
// development environments never need a relay.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", cleanAddrs(msg.To)...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(gm)
	}()

	wait := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
