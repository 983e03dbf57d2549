package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BrevoEndpoint is the transactional email API.
const BrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoTransport sends through the Brevo HTTP API.
type BrevoTransport struct {
	apiKey     string
	sender     string
	senderName string
	endpoint   string
	client     *http.Client
}

// NewBrevoTransport returns a transport sending as senderEmail.
func NewBrevoTransport(apiKey, senderEmail string) *BrevoTransport {
	return &BrevoTransport{
		apiKey:     apiKey,
		sender:     senderEmail,
		senderName: "PlaceGrad",
		endpoint:   BrevoEndpoint,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithEndpoint points the transport at another URL and returns it.
func (b *BrevoTransport) WithEndpoint(url string) *BrevoTransport {
	b.endpoint = url
	return b
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (b *BrevoTransport) Send(ctx context.Context, msg Message) error {
	if b.apiKey == "" || b.sender == "" {
		return fmt.Errorf("%w: BREVO_API_KEY or EMAIL_USER is not set", ErrNotConfigured)
	}

	name := msg.ToName
	if name == "" {
		name = msg.To
	}
	payload, err := json.Marshal(brevoRequest{
		Sender:      brevoContact{Email: b.sender, Name: b.senderName},
		To:          []brevoContact{{Email: msg.To, Name: name}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("encode brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
