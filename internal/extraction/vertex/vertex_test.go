package vertex

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-expense-intake/internal/extraction"
	"mail-expense-intake/internal/model"
)

type fakeModel struct {
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
		}},
	}
}

func TestExtractDecodesModelOutput(t *testing.T) {
	fake := &fakeModel{resp: textResponse(`{"vendor":"Acme Hardware","amount":245.5,"description":"timber","date":"2024-03-01","category":"materials","confidence":0.9}`)}
	c := &Client{model: fake}

	res, err := c.Extract(context.Background(), []byte("png-bytes"), "image/png", extraction.Hint{Subject: "Invoice for 12 Spud St"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Hardware", res.Fields.Vendor)
	assert.True(t, decimal.RequireFromString("245.50").Equal(res.Fields.Amount))
	assert.Equal(t, model.CategoryMaterials, res.Fields.Category)

	require.Len(t, fake.parts, 2)
	blob, ok := fake.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte("png-bytes"), blob.Data)
	assert.Contains(t, string(fake.parts[1].(genai.Text)), "Invoice for 12 Spud St")
}

func TestExtractRejectsOffSchemaOutput(t *testing.T) {
	c := &Client{model: &fakeModel{resp: textResponse(`{"total": 12}`)}}
	_, err := c.Extract(context.Background(), []byte("x"), "image/jpeg", extraction.Hint{})
	assert.ErrorContains(t, err, "does not match schema")
}

func TestExtractEmptyAndFailedResponses(t *testing.T) {
	c := &Client{model: &fakeModel{resp: &genai.GenerateContentResponse{}}}
	_, err := c.Extract(context.Background(), []byte("x"), "image/jpeg", extraction.Hint{})
	assert.ErrorIs(t, err, extraction.ErrEmptyResponse)

	boom := errors.New("quota")
	c = &Client{model: &fakeModel{err: boom}}
	_, err = c.Extract(context.Background(), []byte("x"), "image/jpeg", extraction.Hint{})
	assert.ErrorIs(t, err, boom)
}

func TestExtractSendsOriginalWhenPDFUnreadable(t *testing.T) {
	fake := &fakeModel{resp: textResponse(`{"vendor":"V","amount":"1.00"}`)}
	c := &Client{model: fake, maxPages: 2}

	_, err := c.Extract(context.Background(), []byte("not a pdf"), "application/pdf", extraction.Hint{})
	require.NoError(t, err)
	assert.Equal(t, []byte("not a pdf"), fake.parts[0].(genai.Blob).Data)
}

func TestPreparePDFRejectsGarbage(t *testing.T) {
	_, err := PreparePDF([]byte("garbage"), 1)
	assert.Error(t, err)
}
