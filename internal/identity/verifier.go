package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPVerifier introspects bearer tokens against an external auth
// service. The service takes {"token": "..."} and answers with the
// subject the token belongs to.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier creates a verifier for the given introspection URL.
func NewHTTPVerifier(url string) *HTTPVerifier {
	return &HTTPVerifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
}

// Verify sends the token for introspection and returns the subject.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(introspectRequest{Token: token})
	if err != nil {
		return "", fmt.Errorf("failed to marshal introspection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("introspection request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read introspection response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("introspection error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var ir introspectResponse
	if err := json.Unmarshal(respBody, &ir); err != nil {
		return "", fmt.Errorf("failed to unmarshal introspection response: %w", err)
	}
	if ir.Subject == "" {
		return "", fmt.Errorf("introspection response has no subject")
	}

	return ir.Subject, nil
}

var _ Verifier = (*HTTPVerifier)(nil)
