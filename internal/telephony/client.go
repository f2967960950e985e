// Package telephony implements the Vapi client used to provision the
// calling assistant, launch outbound calls, and poll call status.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"dialscout/internal/logging"
)

// ErrLaunchRejected means the provider refused to place a call. The
// contact was never dialed, so it stays eligible for a later run.
var ErrLaunchRejected = errors.New("telephony provider rejected launch")

// Terminal call statuses reported by the provider.
const (
	StatusInProgress = "in-progress"
	StatusEnded      = "ended"
	StatusFailed     = "failed"
)

// Config holds Vapi client settings.
type Config struct {
	APIKey        string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey, phoneNumberID string) Config {
	return Config{
		APIKey:        apiKey,
		PhoneNumberID: phoneNumberID,
		BaseURL:       "https://api.vapi.ai",
		Timeout:       30 * time.Second,
	}
}

// Client is a Vapi API client.
type Client struct {
	apiKey        string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

// NewClient creates a new Vapi client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.vapi.ai"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:        cfg.APIKey,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// CallStatus is the provider's view of one call.
type CallStatus struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Transcript   string  `json:"transcript"`
	RecordingURL string  `json:"recordingUrl"`
	Duration     float64 `json:"durationSeconds"`
	EndedReason  string  `json:"endedReason"`
	Cost         float64 `json:"cost"`
}

// IsTerminal reports whether the provider-side status is final.
func (c CallStatus) IsTerminal() bool {
	return c.Status == StatusEnded || c.Status == StatusFailed
}

type launchRequest struct {
	PhoneNumberID string            `json:"phoneNumberId"`
	AssistantID   string            `json:"assistantId"`
	Customer      launchCustomer    `json:"customer"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type launchCustomer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type launchResponse struct {
	ID string `json:"id"`
}

// customerNameLimit is the provider's cap on customer display names.
const customerNameLimit = 40

// CreateAssistant provisions the calling assistant and returns its ID.
func (c *Client) CreateAssistant(ctx context.Context, profile AssistantProfile) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", fmt.Errorf("invalid assistant profile: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, "/assistant", profile.payload())
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("assistant creation returned %d: %s", status, truncate(body, 200))
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return "", fmt.Errorf("assistant creation returned no ID: %s", truncate(body, 200))
	}
	logging.Telephony("assistant created: %s", resp.ID)
	return resp.ID, nil
}

// LaunchCall submits one outbound call. number must already be in
// international format. A non-created response maps to ErrLaunchRejected.
func (c *Client) LaunchCall(ctx context.Context, assistantID, number, displayName string, metadata map[string]string) (string, error) {
	name := displayName
	if len(name) > customerNameLimit {
		name = name[:customerNameLimit]
	}
	req := launchRequest{
		PhoneNumberID: c.phoneNumberID,
		AssistantID:   assistantID,
		Customer:      launchCustomer{Number: number, Name: name},
		Metadata:      metadata,
	}

	body, status, err := c.do(ctx, http.MethodPost, "/call/phone", req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLaunchRejected, err)
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d: %s", ErrLaunchRejected, status, truncate(body, 200))
	}

	var resp launchResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return "", fmt.Errorf("%w: missing call ID in response", ErrLaunchRejected)
	}
	logging.Telephony("call launched: %s -> %s", resp.ID, number)
	return resp.ID, nil
}

// GetCallStatus fetches the current state of a call.
func (c *Client) GetCallStatus(ctx context.Context, callID string) (*CallStatus, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/call/"+callID, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("status query for %s returned %d: %s", callID, status, truncate(body, 200))
	}

	var cs CallStatus
	if err := json.Unmarshal(body, &cs); err != nil {
		return nil, fmt.Errorf("failed to parse call status: %w", err)
	}
	return &cs, nil
}

// do performs one authenticated JSON request and returns the raw body.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
