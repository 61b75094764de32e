// Package mail provides the outbound email boundary. Delivery is
// fire-and-forget: callers only learn whether the handoff succeeded.
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// Sender delivers a single plain-text message.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a configured SMTP relay.
type SMTPSender struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

// NewSMTPSender configures a sender against host:port. Username and
// password may be empty for unauthenticated relays.
func NewSMTPSender(addr, from, username, password, host string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{addr: addr, from: from, auth: auth}
}

// Send delivers the message, blocking until the relay accepts it.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
// Used in development when no SMTP relay is configured, so OTP codes
// show up in the server output.
type LogSender struct{}

// Send logs the message and reports success.
func (LogSender) Send(to, subject, body string) error {
	slog.Info("mail (not delivered, no SMTP configured)",
		"to", to, "subject", subject, "body", body)
	return nil
}
