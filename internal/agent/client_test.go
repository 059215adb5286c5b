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

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini-pro-latest:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	out, err := newGeminiClient(srv.URL, "secret", "").Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusTooManyRequests, `quota`, "quota"},
		{"api error", http.StatusOK, `{"error":{"message":"blocked"}}`, "blocked"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newGeminiClient(srv.URL, "k", "m").Generate(context.Background(), "p")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGeminiMissingKey(t *testing.T) {
	_, err := NewGeminiClient("", "").Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
