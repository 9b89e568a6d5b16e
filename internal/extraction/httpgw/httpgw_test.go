package httpgw

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-expense-intake/internal/extraction"
	"mail-expense-intake/internal/model"
)

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/pdf", req.MIMEType)
		data, err := base64.StdEncoding.DecodeString(req.Content)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vendor":"Acme Hardware","amount":"$245.50","description":"timber","date":"2024-03-01","category":"materials","confidence":0.8}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "secret").Extract(context.Background(), []byte("%PDF-1.4"), "application/pdf", extraction.Hint{Filename: "inv.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Hardware", res.Fields.Vendor)
	assert.True(t, decimal.RequireFromString("245.50").Equal(res.Fields.Amount))
	assert.Equal(t, model.CategoryMaterials, res.Fields.Category)
	assert.Equal(t, 0.8, res.Fields.Confidence)
}

func TestExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported document", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Extract(context.Background(), []byte("x"), "image/png", extraction.Hint{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "unsupported document")
}

func TestExtractEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Extract(context.Background(), []byte("x"), "image/png", extraction.Hint{})
	assert.ErrorIs(t, err, extraction.ErrEmptyResponse)
}
