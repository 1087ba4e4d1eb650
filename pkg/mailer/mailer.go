// Package mailer provides outbound email delivery.
package mailer

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends a single plain-text message. Delivery guarantees are the
// implementation's concern; callers only require that the message was handed
// off with the given content.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTP creates an SMTP-backed mailer
func NewSMTP(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: mail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send delivers a plain-text message
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
