// Package notify sends transactional email through the provider's HTTP
// API. Delivery is always best-effort: callers log failures and move
// on, because no upstream outage may block booking operations.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender posts messages to a transactional email service.
type HTTPSender struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPSender(url, apiKey, from string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		url:    url,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: timeout},
	}
}

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}

	body, err := json.Marshal(emailPayload{
		From:    s.from,
		To:      msg.To,
		ToName:  msg.ToName,
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender discards messages. Used in dev when no provider is
// configured, and in tests.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }
