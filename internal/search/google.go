// Package search finds candidate source URLs for a department query via the
// Google Custom Search JSON API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public Custom Search endpoint.
const DefaultBaseURL = "https://www.googleapis.com"

// Result is one search hit in provider ranking order.
type Result struct {
	Title   string
	Link    string
	Snippet string
}

// Client communicates with the Custom Search JSON API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	engineID   string
	httpClient *http.Client
}

// NewClient creates a Client targeting the given base URL.
func NewClient(baseURL, apiKey, engineID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		engineID:   engineID,
		httpClient: &http.Client{},
	}
}

// Configured reports whether both the API key and the search engine ID are
// present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.engineID != ""
}

// searchResponse mirrors the JSON returned by GET /customsearch/v1.
type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search runs the query and returns up to num results in ranking order.
func (c *Client) Search(ctx context.Context, query string, num int) ([]Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("search API key or engine ID not configured")
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customsearch/v1?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]Result, 0, len(sr.Items))
	for _, item := range sr.Items {
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}
