// Package search finds Instagram profile candidates for a vendor by
// querying a web search engine. A Google Custom Search API backend is
// preferred when credentials exist; an HTML scrape backend is the
// fallback. Both feed the same candidate extraction.
package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vendorscout/instalink/instagram"
	"github.com/vendorscout/instalink/normalize"
	"github.com/vendorscout/instalink/record"
)

// Result is one search engine hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Candidate is an Instagram profile surfaced by a search query.
type Candidate struct {
	Username string
	URL      string
	Title    string
	Snippet  string
	Query    string
	Position int
}

// Backend executes a single search query.
type Backend interface {
	Search(ctx context.Context, query string) ([]Result, error)
	Name() string
}

const defaultMaxCandidates = 5

// Searcher runs the query variants for a vendor and collects unique
// profile candidates.
type Searcher struct {
	backends      []Backend
	limiter       *politeness
	logger        *slog.Logger
	maxCandidates int
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// WithDelays overrides the politeness window between queries.
func WithDelays(minDelay, maxDelay time.Duration) SearcherOption {
	return func(s *Searcher) {
		s.limiter = newPoliteness(minDelay, maxDelay)
	}
}

// WithMaxCandidates caps unique candidates per vendor.
func WithMaxCandidates(n int) SearcherOption {
	return func(s *Searcher) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// NewSearcher creates a Searcher over the given backends, tried in order.
func NewSearcher(backends []Backend, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		backends:      backends,
		limiter:       newPoliteness(3*time.Second, 7*time.Second),
		logger:        slog.Default(),
		maxCandidates: defaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindCandidates runs the query variants for a vendor in order and
// returns unique candidates from the first query that produces any.
// Weaker variants run only when the stronger ones came back empty.
// Backend failures count as zero results for that query; only context
// cancellation surfaces as an error.
func (s *Searcher) FindCandidates(ctx context.Context, rec record.VendorRecord) ([]Candidate, error) {
	queries := normalize.SearchVariants(rec.NormalizedName, rec.City)
	if len(queries) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	availableBackends := append([]Backend(nil), s.backends...)

	for _, query := range queries {
		if len(availableBackends) == 0 {
			s.logger.Error("no usable search backends left")
			break
		}

		if err := s.limiter.wait(ctx, s.logger); err != nil {
			return candidates, err
		}

		results, backendName, err := s.runQuery(ctx, &availableBackends, query)
		if err != nil {
			return candidates, err
		}
		s.logger.Debug("search query done",
			"backend", backendName, "query", query, "results", len(results))

		for i, res := range results {
			username := instagram.ExtractUsername(res.URL)
			if username == "" {
				username = instagram.ExtractUsername(res.Snippet)
			}
			if username == "" || seen[username] {
				continue
			}
			seen[username] = true
			candidates = append(candidates, Candidate{
				Username: username,
				URL:      instagram.CanonicalURL(username),
				Title:    res.Title,
				Snippet:  res.Snippet,
				Query:    query,
				Position: i,
			})
			if len(candidates) >= s.maxCandidates {
				break
			}
		}
		if len(candidates) > 0 {
			break
		}
	}

	return candidates, nil
}

// runQuery tries the remaining backends in order for one query. A
// backend without credentials drops out for good; a rate-limited
// backend stays but its cooldown is folded into the shared limiter so
// the next query waits it out instead of failing the vendor. Every
// other failure is logged and treated as zero results. Only context
// cancellation propagates.
func (s *Searcher) runQuery(ctx context.Context, backends *[]Backend, query string) ([]Result, string, error) {
	var limited []Backend
	i := 0
	for i < len(*backends) {
		b := (*backends)[i]
		results, err := b.Search(ctx, query)
		switch {
		case err == nil:
			return results, b.Name(), nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, b.Name(), err
		case errors.Is(err, record.ErrNoCredentials):
			s.logger.Warn("search backend unavailable", "backend", b.Name(), "error", err)
			*backends = append((*backends)[:i], (*backends)[i+1:]...)
		case errors.Is(err, record.ErrRateLimited):
			s.logger.Warn("search backend rate limited", "backend", b.Name(), "error", err)
			limited = append(limited, b)
			i++
		default:
			s.logger.Warn("search query failed", "backend", b.Name(), "query", query, "error", err)
			i++
		}
	}
	s.holdForCooldown(limited)
	return nil, "", nil
}

// cooldownReporter is implemented by backends that track when a block
// or quota window expires.
type cooldownReporter interface {
	CooldownUntil() time.Time
}

// holdForCooldown pushes the earliest cooldown among rate-limited
// backends into the shared limiter, so the next query blocks until one
// of them is usable again.
func (s *Searcher) holdForCooldown(limited []Backend) {
	var until time.Time
	for _, b := range limited {
		r, ok := b.(cooldownReporter)
		if !ok {
			continue
		}
		if t := r.CooldownUntil(); until.IsZero() || t.Before(until) {
			until = t
		}
	}
	if d := time.Until(until); d > 0 {
		s.limiter.cooldown(d, s.logger)
	}
}
