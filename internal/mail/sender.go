// AngelaMos | 2026
// sender.go

package mail

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
)

var ErrNotConfigured = errors.New("mail not configured")

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers plain text mail over SMTP.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPSender) Enabled() bool {
	return s != nil && s.cfg.Enabled()
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", msg.To, ctx.Err())
	}
}

func OTPMessage(to, code, purpose string, ttlMinutes int) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf(
			"Your %s code is %s.\nIt expires in %d minutes. If you did not request it, ignore this email.",
			purpose, code, ttlMinutes,
		),
	}
}

func ReplyMessage(to, name, original, reply string) Message {
	return Message{
		To:      to,
		Subject: "Re: your message",
		Body: fmt.Sprintf(
			"Hi %s,\n\n%s\n\n---\nYou wrote:\n%s",
			name, reply, original,
		),
	}
}
