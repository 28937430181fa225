// Package resolver orchestrates the lookup pipeline: interpret the query,
// consult the cache and the department directory, and fall back to a web
// search with scraping and disambiguation.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kalambet/deptline/internal/cache"
	"github.com/kalambet/deptline/internal/directory"
	"github.com/kalambet/deptline/internal/disambig"
	"github.com/kalambet/deptline/internal/history"
	"github.com/kalambet/deptline/internal/phone"
	"github.com/kalambet/deptline/internal/scrape"
)

// Where an answer came from.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
	SourceWeb      = "web"
)

// Resolution is the outcome of one lookup.
type Resolution struct {
	Query         string   `json:"query"`
	Interpreted   string   `json:"interpreted"`
	Found         bool     `json:"found"`
	Department    string   `json:"department,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Source        string   `json:"source,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	AllPhones     []string `json:"allPhones,omitempty"`
	URLs          []string `json:"urls,omitempty"`
	LowConfidence bool     `json:"lowConfidence,omitempty"`
}

// TextInterpreter converts a colloquial query into a canonical department
// name. Implementations must degrade to returning the query itself.
type TextInterpreter interface {
	Interpret(ctx context.Context, query string) string
}

// CandidateSearch finds URLs likely to list the department's phone number,
// best first. A nil result means the search is unavailable or empty.
type CandidateSearch interface {
	FindCandidateURLs(ctx context.Context, query string) []string
}

// PageFetcher extracts phone candidates from a set of pages.
type PageFetcher interface {
	ExtractAll(ctx context.Context, urls []string) []scrape.PageResult
}

// Recorder persists resolution outcomes for later review. Optional.
type Recorder interface {
	SaveResolution(r history.Resolution) (history.Resolution, error)
}

// Resolver wires the pipeline stages together.
type Resolver struct {
	interpreter TextInterpreter
	cache       *cache.Cache
	directory   *directory.Store
	search      CandidateSearch
	fetcher     PageFetcher
	recorder    Recorder
	areaCodes   []string
}

// Config holds the resolver's collaborators. Recorder may be nil.
type Config struct {
	Interpreter TextInterpreter
	Cache       *cache.Cache
	Directory   *directory.Store
	Search      CandidateSearch
	Fetcher     PageFetcher
	Recorder    Recorder
	AreaCodes   []string
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	return &Resolver{
		interpreter: cfg.Interpreter,
		cache:       cfg.Cache,
		directory:   cfg.Directory,
		search:      cfg.Search,
		fetcher:     cfg.Fetcher,
		recorder:    cfg.Recorder,
		areaCodes:   cfg.AreaCodes,
	}
}

// Resolve runs the pipeline for one query. Answers from the cache and the
// directory are authoritative; a web answer is provisional until the caller
// confirms it with Confirm.
func (r *Resolver) Resolve(ctx context.Context, query string) Resolution {
	interpreted := r.interpreter.Interpret(ctx, query)
	slog.Info("resolving", "query", query, "interpreted", interpreted)

	if entry, ok := r.cache.Lookup(interpreted); ok {
		return r.record(Resolution{
			Query:       query,
			Interpreted: interpreted,
			Found:       true,
			Department:  entry.Department,
			Phone:       entry.PhoneNumber,
			Source:      SourceCache,
		})
	}

	if match, ok := r.directory.Search(interpreted); ok {
		// Warm the cache so the next lookup skips the file scan.
		if err := r.cache.Store(interpreted, match.Department, match.PhoneNumber); err != nil {
			slog.Warn("caching directory hit failed", "error", err)
		}
		return r.record(Resolution{
			Query:       query,
			Interpreted: interpreted,
			Found:       true,
			Department:  match.Department,
			Phone:       match.PhoneNumber,
			Source:      SourceDatabase,
		})
	}

	return r.record(r.resolveWeb(ctx, query, interpreted))
}

func (r *Resolver) resolveWeb(ctx context.Context, query, interpreted string) Resolution {
	res := Resolution{Query: query, Interpreted: interpreted}

	urls := r.search.FindCandidateURLs(ctx, interpreted)
	if len(urls) == 0 {
		res.Reason = "no pages found"
		return res
	}
	res.URLs = urls

	pages := r.fetcher.ExtractAll(ctx, urls)
	var candidates []disambig.Candidate
	for _, p := range pages {
		for _, raw := range p.Phones {
			candidates = append(candidates, disambig.Candidate{
				Raw:       raw,
				SourceURL: p.URL,
				Rank:      p.Rank,
			})
			res.AllPhones = append(res.AllPhones, raw)
		}
	}
	if len(candidates) == 0 {
		res.Reason = "no numbers found on candidate pages"
		return res
	}

	choice, ok := disambig.Choose(candidates, r.areaCodes)
	if !ok {
		res.Reason = "no valid numbers found on candidate pages"
		return res
	}

	res.Found = true
	res.Department = interpreted
	res.Phone = choice.Phone
	res.Source = SourceWeb
	res.LowConfidence = choice.LowConfidence
	return res
}

// Confirm persists or rejects a web-sourced answer. Only a confirmed
// answer is written to the cache and the directory; a rejection is logged
// and nothing is stored.
func (r *Resolver) Confirm(query, department, phoneNumber string, confirmed bool) error {
	if !confirmed {
		slog.Info("answer rejected", "query", query, "phone", phoneNumber)
		return nil
	}
	if !phone.IsValid(phoneNumber) {
		return fmt.Errorf("invalid phone number %q", phoneNumber)
	}
	normalized := phone.Normalize(phoneNumber)
	if err := r.cache.Store(query, department, normalized); err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	if err := r.directory.Upsert(department, normalized, []string{query}); err != nil {
		return fmt.Errorf("updating directory: %w", err)
	}
	return nil
}

// Add inserts or updates a department directly, bypassing the pipeline.
func (r *Resolver) Add(name, phoneNumber string, aliases []string) error {
	if !phone.IsValid(phoneNumber) {
		return fmt.Errorf("invalid phone number %q", phoneNumber)
	}
	return r.directory.Upsert(name, phone.Normalize(phoneNumber), aliases)
}

// Departments lists the directory contents.
func (r *Resolver) Departments() []directory.Department {
	return r.directory.List()
}

// record writes the outcome to the audit log (when configured) and passes
// it through.
func (r *Resolver) record(res Resolution) Resolution {
	if r.recorder == nil {
		return res
	}
	phones := marshalList(res.AllPhones)
	urls := marshalList(res.URLs)
	_, err := r.recorder.SaveResolution(history.Resolution{
		Query:         res.Query,
		Interpreted:   res.Interpreted,
		Found:         res.Found,
		Department:    res.Department,
		Phone:         res.Phone,
		Source:        res.Source,
		Reason:        res.Reason,
		LowConfidence: res.LowConfidence,
		PhonesJSON:    phones,
		URLsJSON:      urls,
	})
	if err != nil {
		slog.Warn("recording resolution failed", "error", err)
	}
	return res
}

func marshalList(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}
