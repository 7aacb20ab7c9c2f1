package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Client is an interface for sending emails.
type Client interface {
	Send(to []string, subject, htmlBody string) error
}

// SMTPClient is a client for sending emails using SMTP.
type SMTPClient struct {
	addr string
	auth smtp.Auth
	from string

	// sendMail is smtp.SendMail outside of tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewClient creates a new SMTP client. Without a username no authentication is attempted.
func NewClient(host string, port int, username, password, from string) *SMTPClient {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPClient{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// Send sends an HTML email to each recipient separately.
func (c *SMTPClient) Send(to []string, subject, htmlBody string) error {
	var errs []error
	for _, recipient := range to {
		msg := buildMessage(c.from, recipient, subject, htmlBody)
		if err := c.sendMail(c.addr, c.auth, c.from, []string{recipient}, msg); err != nil {
			errs = append(errs, fmt.Errorf("failed to send email to %s: %w", recipient, err))
		}
	}
	return errors.Join(errs...)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
