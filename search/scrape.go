package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vendorscout/instalink/httpcache"
	"github.com/vendorscout/instalink/record"
)

const (
	scrapeEndpoint = "https://www.google.com/search"
	scrapeCooldown = 60 * time.Second
)

// errCaptcha marks a redirect to Google's traffic interstitial.
var errCaptcha = errors.New("redirected to traffic check")

// ScrapeBackend parses Google's HTML result page directly. It is the
// fallback when no Custom Search credentials are configured, and it is
// far more likely to get rate limited, so it cools down longer.
type ScrapeBackend struct {
	endpoint string
	client   *http.Client
	cache    httpcache.Cacher
	logger   *slog.Logger

	mu            sync.Mutex
	cooldownUntil time.Time
}

// ScrapeOption configures a ScrapeBackend.
type ScrapeOption func(*ScrapeBackend)

// WithScrapeHTTPClient sets the HTTP client. The client's redirect policy
// is replaced so interstitial redirects are detected.
func WithScrapeHTTPClient(client *http.Client) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.client = client
	}
}

// WithScrapeCache sets the response cache.
func WithScrapeCache(cache httpcache.Cacher) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.cache = cache
	}
}

// WithScrapeLogger sets the logger.
func WithScrapeLogger(logger *slog.Logger) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.logger = logger
	}
}

// WithScrapeEndpoint overrides the search URL. Used by tests.
func WithScrapeEndpoint(endpoint string) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.endpoint = endpoint
	}
}

// NewScrape creates a ScrapeBackend.
func NewScrape(opts ...ScrapeOption) *ScrapeBackend {
	b := &ScrapeBackend{
		endpoint: scrapeEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		cache:    httpcache.NewNull(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.client.CheckRedirect = func(req *http.Request, _ []*http.Request) error {
		if strings.Contains(req.URL.Path, "/sorry") {
			return errCaptcha
		}
		return nil
	}
	return b
}

// Name identifies the backend in logs.
func (*ScrapeBackend) Name() string { return "google-scrape" }

// CooldownUntil reports when the backend accepts queries again.
func (b *ScrapeBackend) CooldownUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cooldownUntil
}

// Search fetches and parses one Google result page.
func (b *ScrapeBackend) Search(ctx context.Context, query string) ([]Result, error) {
	b.mu.Lock()
	cooling := time.Now().Before(b.cooldownUntil)
	b.mu.Unlock()
	if cooling {
		return nil, fmt.Errorf("scrape cooling down: %w", record.ErrRateLimited)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("num", "10")
	params.Set("hl", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("User-Agent", httpcache.BrowserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	body, err := httpcache.FetchURL(ctx, b.cache, b.client, req, b.logger)
	if err != nil {
		if b.isBlocked(err) {
			b.beginCooldown()
			return nil, fmt.Errorf("scrape blocked: %w", record.ErrRateLimited)
		}
		return nil, fmt.Errorf("scraping %q: %w", query, err)
	}

	return parseResultPage(body), nil
}

// isBlocked recognizes both live and cache-replayed rate limiting.
func (b *ScrapeBackend) isBlocked(err error) bool {
	if errors.Is(err, errCaptcha) {
		return true
	}
	var httpErr *httpcache.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(err.Error(), "traffic check")
}

func (b *ScrapeBackend) beginCooldown() {
	b.mu.Lock()
	b.cooldownUntil = time.Now().Add(scrapeCooldown)
	b.mu.Unlock()
	b.logger.Warn("scrape backend blocked", "cooldown", scrapeCooldown)
}

// parseResultPage extracts organic results from a Google HTML page.
// Both the direct-link layout and the legacy /url?q= layout appear in
// the wild depending on which variant Google serves.
func parseResultPage(body []byte) []Result {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var results []Result
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		target := resolveHref(href)
		if target == "" || seen[target] {
			return
		}

		title := strings.TrimSpace(sel.Find("h3").First().Text())
		if title == "" {
			// Ignore navigation and footer links.
			return
		}

		snippet := ""
		if parent := sel.Closest("div"); parent.Length() > 0 {
			snippet = strings.TrimSpace(parent.Parent().Text())
		}

		seen[target] = true
		results = append(results, Result{Title: title, Snippet: snippet, URL: target})
	})
	return results
}

// resolveHref unwraps Google's redirect links and filters non-result URLs.
func resolveHref(href string) string {
	if q, found := strings.CutPrefix(href, "/url?q="); found {
		if i := strings.IndexByte(q, '&'); i >= 0 {
			q = q[:i]
		}
		decoded, err := url.QueryUnescape(q)
		if err != nil {
			return ""
		}
		href = decoded
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	if strings.Contains(href, "google.com") {
		return ""
	}
	return href
}
