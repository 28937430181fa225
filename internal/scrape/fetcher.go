// Package scrape fetches candidate pages and extracts raw phone-number
// candidates from their markup.
package scrape

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/deptline/internal/phone"
)

const (
	fetchTimeout = 10 * time.Second
	maxPageSize  = 5 << 20 // 5MB

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	fetchConcurrency = 3
)

// PageResult holds the candidates extracted from one page, tagged with the
// page's original search rank so downstream ordering stays deterministic
// regardless of fetch completion order.
type PageResult struct {
	URL    string
	Rank   int
	Phones []string
}

// Fetcher retrieves pages with a bounded timeout and a browser-identifying
// User-Agent header.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with the default timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

// ExtractPhones fetches url and returns the phone candidates found on it.
// Any fetch failure (timeout, non-2xx, network error) returns ok=false —
// a dead candidate page is not an error for the pipeline.
func (f *Fetcher) ExtractPhones(ctx context.Context, url string) (PageResult, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Warn("scrape: invalid url", "url", url, "error", err)
		return PageResult{}, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		slog.Warn("scrape: fetch failed", "url", url, "error", err)
		return PageResult{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("scrape: unexpected status", "url", url, "status", resp.StatusCode)
		return PageResult{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		slog.Warn("scrape: reading body failed", "url", url, "error", err)
		return PageResult{}, false
	}

	var phones []string
	if isPDF(url, resp.Header.Get("Content-Type")) {
		phones = phonesFromPDF(body)
	} else {
		phones = phonesFromHTML(body)
	}

	normalized := make([]string, 0, len(phones))
	for _, p := range phones {
		normalized = append(normalized, phone.Normalize(p))
	}

	slog.Debug("scrape: page processed", "url", url, "phones", len(normalized))
	return PageResult{URL: url, Phones: normalized}, true
}

// ExtractAll fetches every URL concurrently (bounded) and returns one
// PageResult per URL that yielded candidates, ordered and rank-tagged by
// the URLs' original positions.
func (f *Fetcher) ExtractAll(ctx context.Context, urls []string) []PageResult {
	results := make([]*PageResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			if r, ok := f.ExtractPhones(gctx, u); ok {
				r.Rank = i
				results[i] = &r
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]PageResult, 0, len(urls))
	for _, r := range results {
		if r != nil && len(r.Phones) > 0 {
			out = append(out, *r)
		}
	}
	return out
}

func isPDF(url, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(url), ".pdf")
}

// phonesFromHTML parses markup and extracts candidates, restricting the
// search to contact-tagged elements first and falling back to the whole
// page's visible text when those yield nothing.
func phonesFromHTML(body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// Malformed markup: fall back to pattern-matching the raw bytes.
		return phone.ExtractCandidates(string(body))
	}

	var phones []string
	seen := make(map[string]struct{})
	add := func(cands []string) {
		for _, c := range cands {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			phones = append(phones, c)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if href, ok := telHref(n); ok {
				add([]string{strings.TrimSpace(strings.TrimPrefix(href, "tel:"))})
			}
			if isContactElement(n) {
				add(phone.ExtractCandidates(textContent(n)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(phones) == 0 {
		add(phone.ExtractCandidates(visibleText(doc)))
	}
	return phones
}

// telHref returns the href of an <a href="tel:..."> element.
func telHref(n *html.Node) (string, bool) {
	if n.Data != "a" {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == "href" && strings.HasPrefix(a.Val, "tel:") {
			return a.Val, true
		}
	}
	return "", false
}

// isContactElement reports whether the element is semantically tagged as
// contact information: a tel: link, or a class/id containing "contact",
// "phone", or "telephone".
func isContactElement(n *html.Node) bool {
	if _, ok := telHref(n); ok {
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "class" && a.Key != "id" {
			continue
		}
		v := strings.ToLower(a.Val)
		if strings.Contains(v, "contact") || strings.Contains(v, "phone") || strings.Contains(v, "telephone") {
			return true
		}
	}
	return false
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// visibleText concatenates all text nodes of the document, skipping script
// and style subtrees.
func visibleText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// phonesFromPDF extracts plain text from a PDF body and pattern-matches it.
// Department directories are commonly published as PDFs.
func phonesFromPDF(body []byte) []string {
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		slog.Warn("scrape: pdf parse failed", "error", err)
		return nil
	}
	text, err := r.GetPlainText()
	if err != nil {
		slog.Warn("scrape: pdf text extraction failed", "error", err)
		return nil
	}
	var b bytes.Buffer
	if _, err := b.ReadFrom(text); err != nil {
		slog.Warn("scrape: reading pdf text failed", "error", err)
		return nil
	}
	return phone.ExtractCandidates(b.String())
}
