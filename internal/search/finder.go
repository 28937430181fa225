package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const searchTimeout = 10 * time.Second

const (
	defaultMaxResults = 2
	maxMaxResults     = 5
)

// Finder turns a department query into a short, ranked list of candidate
// source URLs. Every failure path — missing credentials, network error,
// empty result set — degrades to an empty slice; the finder never returns
// an error to the caller.
type Finder struct {
	client      *Client
	institution string
	maxResults  int
}

// NewFinder creates a Finder scoped to the given institution. maxResults is
// clamped to 1–5; values <= 0 fall back to the default of 2.
func NewFinder(client *Client, institution string, maxResults int) *Finder {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}
	return &Finder{client: client, institution: institution, maxResults: maxResults}
}

// FindCandidateURLs returns up to maxResults URLs in provider ranking order.
func (f *Finder) FindCandidateURLs(ctx context.Context, query string) []string {
	if !f.client.Configured() {
		slog.Warn("candidate search skipped: API key or engine ID not configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	scoped := fmt.Sprintf("%s %s phone number contact", query, f.institution)
	results, err := f.client.Search(ctx, scoped, f.maxResults)
	if err != nil {
		slog.Warn("candidate search failed", "query", query, "error", err)
		return nil
	}
	if len(results) == 0 {
		slog.Debug("candidate search returned no results", "query", query)
		return nil
	}

	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	slog.Debug("candidate URLs found", "query", query, "count", len(urls))
	return urls
}
