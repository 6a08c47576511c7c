// Package tavily implements a client for the Tavily web search API, used by
// the tutoring graph to fetch curriculum material.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Searcher is the interface the agent graph depends on.
type Searcher interface {
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// SearchRequest is the POST /search payload.
type SearchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score"`
}

// SearchResponse is the POST /search response body.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// Client talks to the Tavily REST API.
type Client struct {
	apiKey         string
	baseURL        string
	maxResults     int
	includeDomains []string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds the client settings. IncludeDomains restricts results to the
// given sites, keeping searches on curriculum sources.
type Config struct {
	APIKey         string
	BaseURL        string
	MaxResults     int
	IncludeDomains []string
}

// NewClient creates a Tavily client. The HTTP client should carry the
// request timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tavily base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 1
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		maxResults:     maxResults,
		includeDomains: cfg.IncludeDomains,
		httpClient:     httpClient,
		logger:         logger.With("component", "tavily_client"),
	}, nil
}

// Search runs a web search for the given query.
func (c *Client) Search(ctx context.Context, query string) (*SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	payload, err := json.Marshal(SearchRequest{
		APIKey:            c.apiKey,
		Query:             query,
		MaxResults:        c.maxResults,
		IncludeRawContent: true,
		IncludeDomains:    c.includeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "Running web search", "query", query, "max_results", c.maxResults)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request returned status %d: %s", resp.StatusCode, body)
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.logger.DebugContext(ctx, "Web search completed", "query", query, "results", len(result.Results))
	return &result, nil
}
