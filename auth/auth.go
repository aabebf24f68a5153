// Package auth provides optional Instagram session cookies for profile
// fetching. Anonymous requests frequently hit a login wall that strips
// the og: metadata; a logged-in session cookie restores it.
package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// Domain is the cookie domain for all sources in this package.
const Domain = "instagram.com"

// essentialCookies are the session cookies worth carrying.
var essentialCookies = []string{"sessionid", "csrftoken"}

// NewCookieJar creates an http.CookieJar populated with the given cookies
// for the Instagram domain.
func NewCookieJar(cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse("https://" + Domain)
	if err != nil {
		return nil, err
	}

	var httpCookies []*http.Cookie
	for name, value := range cookies {
		if value != "" {
			httpCookies = append(httpCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Domain: "." + Domain,
				Path:   "/",
			})
		}
	}

	jar.SetCookies(u, httpCookies)
	return jar, nil
}

// Source represents a source of session cookies.
type Source interface {
	// Cookies returns session cookies, or nil if unavailable.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them.
// A failing source is skipped; the error surfaces only when every source
// failed and none produced cookies.
func ChainSources(ctx context.Context, sources ...Source) (map[string]string, error) {
	var lastErr error
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, lastErr
}
