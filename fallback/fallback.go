// Package fallback recovers Instagram candidates without a search
// engine. Vendors often link their profile from their own website or
// have it embedded in their directory listing page, so when search
// comes up dry those two sources get scanned directly.
package fallback

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vendorscout/instalink/htmlutil"
	"github.com/vendorscout/instalink/httpcache"
	"github.com/vendorscout/instalink/instagram"
	"github.com/vendorscout/instalink/record"
)

// Source identifies where a fallback candidate was recovered from.
const (
	SourceWebsite = "website"
	SourceListing = "listing"
)

// Candidate is a profile recovered outside of search.
type Candidate struct {
	Username string
	URL      string
	Source   string
}

// Resolver scans vendor websites and listing pages for profile links.
type Resolver struct {
	client *http.Client
	cache  httpcache.Cacher
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithCache sets the response cache.
func WithCache(cache httpcache.Cacher) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  httpcache.NewNull(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve tries the vendor website first, then the listing page.
// Returns nil with no error when neither source yields a profile;
// fetch failures on one source only log, since the other may still hit.
func (r *Resolver) Resolve(ctx context.Context, rec record.VendorRecord) (*Candidate, error) {
	if site := normalizeSiteURL(rec.Website); site != "" {
		username, err := r.scanWebsite(ctx, site)
		if err != nil {
			r.logger.Debug("website scan failed", "url", site, "error", err)
		} else if username != "" {
			return &Candidate{
				Username: username,
				URL:      instagram.CanonicalURL(username),
				Source:   SourceWebsite,
			}, nil
		}
	}

	if rec.ListingURL != "" {
		username, err := r.scanListing(ctx, rec.ListingURL)
		if err != nil {
			r.logger.Debug("listing scan failed", "url", rec.ListingURL, "error", err)
		} else if username != "" {
			return &Candidate{
				Username: username,
				URL:      instagram.CanonicalURL(username),
				Source:   SourceListing,
			}, nil
		}
	}

	return nil, nil
}

// scanWebsite looks for Instagram links in the site's anchors, with a
// raw-text scan as backstop for links assembled by scripts.
func (r *Resolver) scanWebsite(ctx context.Context, siteURL string) (string, error) {
	body, err := r.fetch(ctx, siteURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		var username string
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if u := instagram.ExtractUsername(href); u != "" {
				username = u
				return false
			}
			return true
		})
		if username != "" {
			return username, nil
		}
	}

	return instagram.FirstProfileUsername(string(body)), nil
}

// scanListing checks a directory listing page. Structured data blocks
// are scanned before the page body since sameAs entries point straight
// at the social profiles.
func (r *Resolver) scanListing(ctx context.Context, listingURL string) (string, error) {
	body, err := r.fetch(ctx, listingURL)
	if err != nil {
		return "", err
	}

	html := string(body)
	for _, block := range htmlutil.JSONLDBlocks(html) {
		if urls := instagram.ProfileURLs(block); len(urls) > 0 {
			return instagram.ExtractUsername(urls[0]), nil
		}
	}

	return instagram.FirstProfileUsername(html), nil
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", httpcache.BrowserUserAgent)
	return httpcache.FetchURL(ctx, r.cache, r.client, req, r.logger)
}

// normalizeSiteURL defaults bare domains to https.
func normalizeSiteURL(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	if !strings.HasPrefix(site, "http://") && !strings.HasPrefix(site, "https://") {
		site = "https://" + site
	}
	return site
}
