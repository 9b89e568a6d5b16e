// Package httpgw extracts expense fields through a JSON-over-HTTP service.
package httpgw

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mail-expense-intake/internal/extraction"
)

const maxResponseBytes = 1 << 20

type request struct {
	Content  string `json:"content"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

// Client is an extraction.Gateway that POSTs attachments to Endpoint
type Client struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a client for endpoint
func New(endpoint, apiKey string) *Client {
	return &Client{Endpoint: endpoint, APIKey: apiKey, HTTPClient: http.DefaultClient}
}

// Extract posts the base64 attachment and decodes the response fields
func (c *Client) Extract(ctx context.Context, data []byte, mimeType string, hint extraction.Hint) (extraction.Result, error) {
	body, err := json.Marshal(request{
		Content:  base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
		Filename: hint.Filename,
		Subject:  hint.Subject,
	})
	if err != nil {
		return extraction.Result{}, fmt.Errorf("marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return extraction.Result{}, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return extraction.Result{}, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return extraction.Result{}, fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := payload
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return extraction.Result{}, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, snippet)
	}
	return extraction.NewResult(bytes.TrimSpace(payload))
}
