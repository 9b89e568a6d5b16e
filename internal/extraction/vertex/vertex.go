// Package vertex extracts expense fields with Gemini on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/sirupsen/logrus"

	"mail-expense-intake/internal/config"
	"mail-expense-intake/internal/extraction"
)

const systemPrompt = "You are an accounts-payable clerk for a building company. You read invoices and receipts and return their key fields as JSON."

const userPrompt = `Read the attached document and return a single JSON object with exactly these keys:
- "vendor": the supplier or business that issued the document
- "amount": the total amount payable including tax, as a number
- "description": a short description of what was purchased
- "date": the invoice or purchase date as YYYY-MM-DD
- "category": one of "materials", "subtrades", "other_costs", "tip_fees"
- "confidence": your confidence in the extraction between 0 and 1
Use an empty string for unknown text fields and 0 for an unknown amount.`

// generator is the subset of *genai.GenerativeModel the client needs
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client is an extraction.Gateway backed by a Gemini model
type Client struct {
	model    generator
	base     *genai.Client
	maxPages int
}

// New creates a client for the configured project, region and model
func New(ctx context.Context, cfg config.ExtractionConfig) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: project_id and region cannot be empty")
	}

	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &Client{model: model, base: base, maxPages: cfg.MaxPDFPages}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

// Extract sends the attachment inline and decodes the model's JSON answer
func (c *Client) Extract(ctx context.Context, data []byte, mimeType string, hint extraction.Hint) (extraction.Result, error) {
	if mimeType == "application/pdf" {
		prepared, err := PreparePDF(data, c.maxPages)
		if err != nil {
			logrus.WithError(err).WithField("filename", hint.Filename).Warn("PDF preprocessing failed, sending original")
		} else {
			data = prepared
		}
	}

	prompt := userPrompt
	if hint.Subject != "" {
		prompt += "\nThe email subject was: " + hint.Subject
	}

	resp, err := c.model.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(prompt))
	if err != nil {
		return extraction.Result{}, fmt.Errorf("gemini generate content: %w", err)
	}

	payload := responseText(resp)
	if payload == "" {
		return extraction.Result{}, extraction.ErrEmptyResponse
	}
	if err := validatePayload([]byte(payload)); err != nil {
		return extraction.Result{}, err
	}
	return extraction.NewResult([]byte(payload))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
