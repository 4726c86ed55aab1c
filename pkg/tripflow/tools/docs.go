package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RetrievedDocument is one hit from the document retrieval service.
type RetrievedDocument struct {
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// DocsClient talks to the document retrieval service that indexes
// travel guides and destination briefs. Retrieval, embedding, and
// reranking happen on the service side; this client only submits a
// query and reads back the ranked documents.
type DocsClient struct {
	baseURL    string
	topK       int
	httpClient *http.Client
}

// NewDocsClient creates a retrieval client.
func NewDocsClient(baseURL string) *DocsClient {
	return &DocsClient{
		baseURL:    baseURL,
		topK:       5,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type docsQueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type docsQueryResponse struct {
	Documents []RetrievedDocument `json:"documents"`
}

// Query returns the top-ranked documents for the query.
func (d *DocsClient) Query(ctx context.Context, query string) ([]RetrievedDocument, error) {
	body, err := json.Marshal(docsQueryRequest{
		Query: query,
		TopK:  d.topK,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document search: unexpected status %d", resp.StatusCode)
	}

	var result docsQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode retrieved documents: %w", err)
	}
	return result.Documents, nil
}

// DocumentTool exposes the indexed travel corpus to the
// recommendations agent.
type DocumentTool struct {
	client *DocsClient
}

// NewDocumentTool wraps a DocsClient.
func NewDocumentTool(client *DocsClient) *DocumentTool {
	return &DocumentTool{client: client}
}

// Name implements tools.Tool.
func (t *DocumentTool) Name() string { return "document_search" }

// Description implements tools.Tool.
func (t *DocumentTool) Description() string {
	return "Searches an indexed corpus of travel guides and destination " +
		"briefs and returns JSON documents with title, source, and content. " +
		"Useful for curated advice on safety, customs, and seasonal " +
		"conditions. Input: the search query."
}

// Call implements tools.Tool.
func (t *DocumentTool) Call(ctx context.Context, input string) (string, error) {
	docs, err := t.client.Query(ctx, input)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
