package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const tavilyAPIURL = "https://api.tavily.com/search"

// WebResult is one external search hit.
type WebResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type WebSearcher interface {
	Search(ctx context.Context, query string) ([]WebResult, error)
}

type tavilyClient struct {
	apiKey     string
	url        string
	maxResults int
	httpClient *http.Client
}

func NewTavilyClient(apiKey string, maxResults int) WebSearcher {
	return newTavilyClient(tavilyAPIURL, apiKey, maxResults)
}

func newTavilyClient(url, apiKey string, maxResults int) *tavilyClient {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &tavilyClient{
		apiKey:     apiKey,
		url:        url,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []WebResult `json:"results"`
}

func (c *tavilyClient) Search(ctx context.Context, query string) ([]WebResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tavily: %w", ErrMissingAPIKey)
	}

	jsonBody, _ := json.Marshal(tavilyRequest{APIKey: c.apiKey, Query: query, MaxResults: c.maxResults})
	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("web search API error: %s - %s", resp.Status, string(body))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode web search response: %w", err)
	}
	if len(out.Results) > c.maxResults {
		out.Results = out.Results[:c.maxResults]
	}
	return out.Results, nil
}

// FormatWebResults renders results for a prompt, in the order returned.
func FormatWebResults(results []WebResult) string {
	if len(results) == 0 {
		return "No web search results."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n", i+1, r.Title, r.URL, r.Content)
	}
	return b.String()
}
