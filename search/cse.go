package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vendorscout/instalink/httpcache"
	"github.com/vendorscout/instalink/record"
)

const (
	cseEndpoint    = "https://www.googleapis.com/customsearch/v1"
	cseCooldown    = 30 * time.Second
	cseResultCount = 10
)

// CSEBackend queries the Google Custom Search JSON API.
type CSEBackend struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
	cache    httpcache.Cacher
	logger   *slog.Logger

	mu            sync.Mutex
	cooldownUntil time.Time
}

// CSEOption configures a CSEBackend.
type CSEOption func(*CSEBackend)

// WithCSEHTTPClient sets the HTTP client.
func WithCSEHTTPClient(client *http.Client) CSEOption {
	return func(b *CSEBackend) {
		b.client = client
	}
}

// WithCSECache sets the response cache.
func WithCSECache(cache httpcache.Cacher) CSEOption {
	return func(b *CSEBackend) {
		b.cache = cache
	}
}

// WithCSELogger sets the logger.
func WithCSELogger(logger *slog.Logger) CSEOption {
	return func(b *CSEBackend) {
		b.logger = logger
	}
}

// WithCSEEndpoint overrides the API endpoint. Used by tests.
func WithCSEEndpoint(endpoint string) CSEOption {
	return func(b *CSEBackend) {
		b.endpoint = endpoint
	}
}

// NewCSE creates a CSEBackend. Returns record.ErrNoCredentials when
// either credential is empty.
func NewCSE(apiKey, engineID string, opts ...CSEOption) (*CSEBackend, error) {
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("custom search: %w", record.ErrNoCredentials)
	}
	b := &CSEBackend{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: cseEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		cache:    httpcache.NewNull(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name identifies the backend in logs.
func (*CSEBackend) Name() string { return "google-cse" }

// CooldownUntil reports when the backend accepts queries again.
func (b *CSEBackend) CooldownUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cooldownUntil
}

type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search runs one query against the Custom Search API.
func (b *CSEBackend) Search(ctx context.Context, query string) ([]Result, error) {
	b.mu.Lock()
	cooling := time.Now().Before(b.cooldownUntil)
	b.mu.Unlock()
	if cooling {
		return nil, fmt.Errorf("custom search cooling down: %w", record.ErrRateLimited)
	}

	params := url.Values{}
	params.Set("key", b.apiKey)
	params.Set("cx", b.engineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprint(cseResultCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	body, err := httpcache.FetchURL(ctx, b.cache, b.client, req, b.logger)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
			b.mu.Lock()
			b.cooldownUntil = time.Now().Add(cseCooldown)
			b.mu.Unlock()
			b.logger.Warn("custom search quota exhausted", "cooldown", cseCooldown)
			return nil, fmt.Errorf("custom search quota: %w", record.ErrRateLimited)
		}
		return nil, fmt.Errorf("custom search %q: %w", query, err)
	}

	var parsed cseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, Result{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
	}
	return results, nil
}
