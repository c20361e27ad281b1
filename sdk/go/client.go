// Package luschustersdk is the HTTP client and form controller the site
// frontend drives. It reuses the server's schemas so client-side checks can
// never drift from what the API will enforce.
package luschustersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"luschuster/internal/forms"
)

// Client is a minimal forms API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration

	// SessionID is remembered from the CSRF handshake and resent with every
	// request so the server can bind tokens to this visitor.
	SessionID string
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 10 * time.Second,
	}
}

// CSRF is the handshake payload.
type CSRF struct {
	CSRFToken string `json:"csrfToken"`
	SessionID string `json:"sessionId"`
}

// SubmissionAck is the server's acceptance of a submission.
type SubmissionAck struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	QuoteRef string `json:"quoteRef,omitempty"`
}

// FieldError mirrors the server's per-field error entries.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string       `json:"error"`
	Code       string       `json:"code,omitempty"`
	Details    []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

// FetchCSRF performs the token handshake, remembering the session id for
// subsequent calls.
func (c *Client) FetchCSRF(ctx context.Context) (*CSRF, error) {
	var out CSRF
	if err := c.do(ctx, http.MethodGet, "/csrf", nil, &out); err != nil {
		return nil, err
	}
	c.SessionID = out.SessionID
	return &out, nil
}

// SubmitContact posts a contact form payload. The payload must already carry
// its csrfToken field; the Form controller takes care of that.
func (c *Client) SubmitContact(ctx context.Context, payload map[string]any) (*SubmissionAck, error) {
	var out SubmissionAck
	if err := c.do(ctx, http.MethodPost, "/contact", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitQuote posts a quote request payload.
func (c *Client) SubmitQuote(ctx context.Context, payload map[string]any) (*SubmissionAck, error) {
	var out SubmissionAck
	if err := c.do(ctx, http.MethodPost, "/quote", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit posts to the endpoint matching the schema kind.
func (c *Client) Submit(ctx context.Context, schema forms.Schema, payload map[string]any) (*SubmissionAck, error) {
	switch schema.Kind {
	case "contact":
		return c.SubmitContact(ctx, payload)
	case "quote":
		return c.SubmitQuote(ctx, payload)
	default:
		return nil, fmt.Errorf("unknown form kind %q", schema.Kind)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.SessionID != "" {
		req.Header.Set("X-Session-Id", c.SessionID)
	}

	res, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(data))}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
