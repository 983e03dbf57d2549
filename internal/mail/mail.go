// Package mail delivers the sign-in code and password-reset emails.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"
)

// ErrNotConfigured is returned when a transport lacks credentials.
var ErrNotConfigured = errors.New("email transport is not configured")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is one outgoing HTML email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Transport hands a message to a delivery provider.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Sender renders PlaceGrad emails and sends them over a Transport.
type Sender struct {
	transport   Transport
	frontendURL string
	otpTTL      time.Duration
	resetTTL    time.Duration
	now         func() time.Time
}

// NewSender returns a sender whose reset links point at frontendURL.
// The lifetimes only feed the wording of the emails.
func NewSender(t Transport, frontendURL string, otpTTL, resetTTL time.Duration) *Sender {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &Sender{
		transport:   t,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		otpTTL:      otpTTL,
		resetTTL:    resetTTL,
		now:         time.Now,
	}
}

// SendOTP emails a login verification code.
func (s *Sender) SendOTP(ctx context.Context, to, name, code string) error {
	html, err := render("otp.html", map[string]interface{}{
		"Name":      name,
		"Code":      code,
		"ExpiresIn": int(s.otpTTL / time.Minute),
		"Year":      s.now().Year(),
	})
	if err != nil {
		return err
	}
	if err := s.transport.Send(ctx, Message{
		To:      to,
		ToName:  name,
		Subject: "PlaceGrad - Login Verification Code",
		HTML:    html,
	}); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	log.Printf("[MAIL] OTP email sent")
	return nil
}

// SendPasswordReset emails a link carrying the plaintext reset token.
func (s *Sender) SendPasswordReset(ctx context.Context, to, name, token string) error {
	html, err := render("reset.html", map[string]interface{}{
		"Name":      name,
		"Link":      s.ResetLink(token),
		"ExpiresIn": int(s.resetTTL / time.Minute),
		"Year":      s.now().Year(),
	})
	if err != nil {
		return err
	}
	if err := s.transport.Send(ctx, Message{
		To:      to,
		ToName:  name,
		Subject: "PlaceGrad - Password Reset Request",
		HTML:    html,
	}); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	log.Printf("[MAIL] Password reset email sent")
	return nil
}

// ResetLink is the frontend page that accepts token.
func (s *Sender) ResetLink(token string) string {
	return s.frontendURL + "/reset-password?token=" + token
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
