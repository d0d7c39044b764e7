package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTriageUnavailable covers every upstream failure mode: network
// errors, non-200 responses and malformed payloads. Callers treat the
// assessment as optional and carry on without it.
var ErrTriageUnavailable = errors.New("triage service unavailable")

const (
	UrgencyLow       = "low"
	UrgencyModerate  = "moderate"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

func validUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyModerate, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}

// Assessment is what the upstream model returns for a symptom
// description.
type Assessment struct {
	Summary              string `json:"summary"`
	Urgency              string `json:"urgency"`
	RecommendedSpecialty string `json:"recommendedSpecialty,omitempty"`
	Model                string `json:"model,omitempty"`
}

// Client calls the hosted triage model over HTTP.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

type assessRequest struct {
	Symptoms string `json:"symptoms"`
}

// Assess sends the symptom text upstream and validates the response.
func (c *Client) Assess(ctx context.Context, symptoms string) (*Assessment, error) {
	body, err := json.Marshal(assessRequest{Symptoms: symptoms})
	if err != nil {
		return nil, fmt.Errorf("marshal triage request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build triage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTriageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: upstream returned %d", ErrTriageUnavailable, resp.StatusCode)
	}

	var out Assessment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTriageUnavailable, err)
	}
	if out.Summary == "" || !validUrgency(out.Urgency) {
		return nil, fmt.Errorf("%w: malformed assessment", ErrTriageUnavailable)
	}
	return &out, nil
}
