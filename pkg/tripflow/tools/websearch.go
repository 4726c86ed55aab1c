package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebDocument is one web search hit.
type WebDocument struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// WebSearchClient talks to a Tavily-compatible search API.
type WebSearchClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// NewWebSearchClient creates a web search client.
func NewWebSearchClient(apiKey, baseURL string) *WebSearchClient {
	return &WebSearchClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxResults: 5,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type webSearchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type webSearchResponse struct {
	Results []WebDocument `json:"results"`
}

// Search returns documents matching the query.
func (w *WebSearchClient) Search(ctx context.Context, query string) ([]WebDocument, error) {
	body, err := json.Marshal(webSearchRequest{
		APIKey:     w.apiKey,
		Query:      query,
		MaxResults: w.maxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search: unexpected status %d", resp.StatusCode)
	}

	var result webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return result.Results, nil
}

// WebSearchTool exposes web search to the recommendations agent.
type WebSearchTool struct {
	client *WebSearchClient
}

// NewWebSearchTool wraps a WebSearchClient.
func NewWebSearchTool(client *WebSearchClient) *WebSearchTool {
	return &WebSearchTool{client: client}
}

// Name implements tools.Tool.
func (t *WebSearchTool) Name() string { return "web_search" }

// Description implements tools.Tool.
func (t *WebSearchTool) Description() string {
	return "Searches the web and returns JSON documents with title, url, and " +
		"content. Useful for destination safety, visa, weather, and cultural " +
		"information. Input: the search query."
}

// Call implements tools.Tool.
func (t *WebSearchTool) Call(ctx context.Context, input string) (string, error) {
	docs, err := t.client.Search(ctx, input)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
