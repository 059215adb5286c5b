package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "key", req.APIKey)
		assert.Equal(t, "new CKD drugs", req.Query)
		assert.Equal(t, 2, req.MaxResults)

		json.NewEncoder(w).Encode(tavilyResponse{Results: []WebResult{
			{Title: "A", URL: "https://a.example", Content: "first"},
			{Title: "B", URL: "https://b.example", Content: "second"},
			{Title: "C", URL: "https://c.example", Content: "third"},
		}})
	}))
	defer srv.Close()

	results, err := newTavilyClient(srv.URL, "key", 2).Search(context.Background(), "new CKD drugs")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Title)
}

func TestTavilySearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTavilyClient(srv.URL, "key", 3).Search(context.Background(), "q")
	assert.ErrorContains(t, err, "unauthorized")

	_, err = NewTavilyClient("", 3).Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFormatWebResults(t *testing.T) {
	assert.Equal(t, "No web search results.", FormatWebResults(nil))
	out := FormatWebResults([]WebResult{{Title: "KDIGO", URL: "https://kdigo.org", Content: "Guideline"}})
	assert.Equal(t, "[1] KDIGO (https://kdigo.org)\nGuideline\n", out)
}
