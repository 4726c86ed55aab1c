package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ForumPost is one community discussion hit.
type ForumPost struct {
	Title     string `json:"title"`
	Text      string `json:"text,omitempty"`
	Subforum  string `json:"subforum,omitempty"`
	Score     int    `json:"score,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

// ForumClient talks to a Reddit-compatible search API for first-hand
// traveller experiences.
type ForumClient struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
}

// NewForumClient creates a community search client.
func NewForumClient(baseURL, userAgent string) *ForumClient {
	return &ForumClient{
		baseURL:    baseURL,
		userAgent:  userAgent,
		limit:      8,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type forumSearchResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				Selftext  string `json:"selftext"`
				Subreddit string `json:"subreddit"`
				Score     int    `json:"score"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search returns community posts matching the query.
func (f *ForumClient) Search(ctx context.Context, query string) ([]ForumPost, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", f.limit))
	params.Set("sort", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("community search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("community search: unexpected status %d", resp.StatusCode)
	}

	var result forumSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]ForumPost, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		posts = append(posts, ForumPost{
			Title:     child.Data.Title,
			Text:      child.Data.Selftext,
			Subforum:  child.Data.Subreddit,
			Score:     child.Data.Score,
			Permalink: child.Data.Permalink,
		})
	}
	return posts, nil
}

// CommunityTool exposes community search to the recommendations agent.
type CommunityTool struct {
	client *ForumClient
}

// NewCommunityTool wraps a ForumClient.
func NewCommunityTool(client *ForumClient) *CommunityTool {
	return &CommunityTool{client: client}
}

// Name implements tools.Tool.
func (t *CommunityTool) Name() string { return "community_search" }

// Description implements tools.Tool.
func (t *CommunityTool) Description() string {
	return "Searches community forums for first-hand traveller experiences and " +
		"returns JSON posts with title, text, and score. Input: the search query."
}

// Call implements tools.Tool.
func (t *CommunityTool) Call(ctx context.Context, input string) (string, error) {
	posts, err := t.client.Search(ctx, input)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(posts)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
