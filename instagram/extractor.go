package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vendorscout/instalink/auth"
	"github.com/vendorscout/instalink/htmlutil"
	"github.com/vendorscout/instalink/httpcache"
	"github.com/vendorscout/instalink/record"
)

// Outcome classifies the result of a profile fetch.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeError    Outcome = "error"
)

// Metadata holds the fields extractable from a profile page's og: tags.
type Metadata struct {
	URL         string
	Username    string
	DisplayName string
	Title       string
	Bio         string
	Followers   *int
	Verified    bool
	Outcome     Outcome
}

// Extractor fetches Instagram profile pages with a mobile user agent and
// parses metadata out of the initial HTML.
type Extractor struct {
	client    *http.Client
	cache     httpcache.Cacher
	logger    *slog.Logger
	minJitter time.Duration
	maxJitter time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient sets the HTTP client used for profile fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		e.client = client
	}
}

// WithHTTPCache sets the cache used for profile page responses.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(e *Extractor) {
		e.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithCookies installs session cookies for authenticated fetches.
func WithCookies(cookies map[string]string) Option {
	return func(e *Extractor) {
		if len(cookies) == 0 {
			return
		}
		jar, err := auth.NewCookieJar(cookies)
		if err != nil {
			return
		}
		e.client.Jar = jar
	}
}

// WithJitter overrides the pre-request jitter window. Zero disables it.
func WithJitter(minDelay, maxDelay time.Duration) Option {
	return func(e *Extractor) {
		e.minJitter = minDelay
		e.maxJitter = maxDelay
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		client:    &http.Client{Timeout: 8 * time.Second},
		logger:    slog.Default(),
		minJitter: 500 * time.Millisecond,
		maxJitter: 1500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = httpcache.NewNull()
	}
	return e
}

var (
	followersPattern = regexp.MustCompile(`([\d,]+(?:\.\d+)?[KkMm]?)\s+Followers`)
	verifiedPattern  = regexp.MustCompile(`"is_verified"\s*:\s*true`)
	igSuffixPattern  = regexp.MustCompile(`\s*[•·]\s*Instagram.*$`)
)

// ParseFollowers extracts a follower count from og:description text such
// as "12.3K Followers, 410 Following, 89 Posts". Returns nil when no
// count is present.
func ParseFollowers(description string) *int {
	m := followersPattern.FindStringSubmatch(description)
	if len(m) < 2 {
		return nil
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	multiplier := 1.0
	switch {
	case strings.HasSuffix(strings.ToUpper(raw), "K"):
		multiplier = 1000
		raw = raw[:len(raw)-1]
	case strings.HasSuffix(strings.ToUpper(raw), "M"):
		multiplier = 1000000
		raw = raw[:len(raw)-1]
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	n := int(f * multiplier)
	return &n
}

// parseDisplayName pulls the human name out of an og:title like
// "Shobha Bridal Studio (@shobhabridal) • Instagram photos and videos".
func parseDisplayName(title string) string {
	if i := strings.Index(title, " (@"); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return strings.TrimSpace(igSuffixPattern.ReplaceAllString(title, ""))
}

// Fetch retrieves an Instagram profile page and extracts metadata.
// A 404 maps to record.ErrProfileNotFound. A login wall yields partial
// metadata with Outcome set to OutcomeBlocked and a nil error.
func (e *Extractor) Fetch(ctx context.Context, username string) (*Metadata, error) {
	username = strings.ToLower(strings.Trim(username, "/"))
	if username == "" || reservedPaths[username] {
		return nil, fmt.Errorf("invalid username %q", username)
	}
	profileURL := CanonicalURL(username)

	if err := e.jitter(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", httpcache.MobileUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	body, err := httpcache.FetchURL(ctx, e.cache, e.client, req, e.logger)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusNotFound:
				return nil, record.ErrProfileNotFound
			case http.StatusTooManyRequests:
				return nil, record.ErrRateLimited
			}
		}
		return nil, fmt.Errorf("fetching profile %s: %w", username, err)
	}

	html := string(body)
	meta := &Metadata{
		URL:      profileURL,
		Username: username,
		Title:    htmlutil.OGTitle(html),
		Bio:      htmlutil.OGDescription(html),
		Outcome:  OutcomeOK,
	}

	if meta.Title == "" || strings.Contains(meta.Title, "Log in to Instagram") ||
		strings.Contains(meta.Title, "Login • Instagram") {
		e.logger.DebugContext(ctx, "login wall on profile page", "username", username)
		meta.Title = ""
		meta.Outcome = OutcomeBlocked
		return meta, nil
	}

	meta.DisplayName = parseDisplayName(meta.Title)
	meta.Followers = ParseFollowers(meta.Bio)
	meta.Verified = verifiedPattern.MatchString(html)
	return meta, nil
}

func (e *Extractor) jitter(ctx context.Context) error {
	if e.maxJitter <= 0 {
		return nil
	}
	d := e.minJitter
	if span := e.maxJitter - e.minJitter; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
