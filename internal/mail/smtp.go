package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPTransport sends with PLAIN auth against an SMTP relay.
type SMTPTransport struct {
	server   string
	user     string
	password string
	from     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPTransport returns a transport for server (host:port). Mail is sent
// from the login user unless from is set.
func NewSMTPTransport(server, user, password, from string) *SMTPTransport {
	if from == "" {
		from = user
	}
	return &SMTPTransport{
		server:   server,
		user:     user,
		password: password,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPTransport) Send(_ context.Context, msg Message) error {
	if s.server == "" || s.user == "" || s.password == "" {
		return fmt.Errorf("%w: SMTP_SERVER, SMTP_USER or SMTP_PASSWORD is not set", ErrNotConfigured)
	}

	host, _, err := net.SplitHostPort(s.server)
	if err != nil {
		return fmt.Errorf("invalid SMTP_SERVER format (expected host:port): %w", err)
	}
	auth := smtp.PlainAuth("", s.user, s.password, host)

	if err := s.sendMail(s.server, auth, s.from, []string{msg.To}, buildMIME(s.from, msg)); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", s.server, err)
	}
	return nil
}

var headerSafe = strings.NewReplacer("\r", "", "\n", "")

func buildMIME(from string, msg Message) []byte {
	msg.To = headerSafe.Replace(msg.To)
	msg.ToName = headerSafe.Replace(msg.ToName)
	msg.Subject = headerSafe.Replace(msg.Subject)

	var b strings.Builder
	b.WriteString("From: PlaceGrad <" + from + ">\r\n")
	if msg.ToName != "" {
		b.WriteString("To: " + msg.ToName + " <" + msg.To + ">\r\n")
	} else {
		b.WriteString("To: " + msg.To + "\r\n")
	}
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}
