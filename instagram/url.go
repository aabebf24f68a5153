// Package instagram recognizes Instagram profile URLs and extracts
// profile metadata from the og: tags served in the initial HTML response.
// No JavaScript rendering is required.
package instagram

import (
	"regexp"
	"strings"
)

// reservedPaths are instagram.com path segments that are not profiles.
var reservedPaths = map[string]bool{
	"p": true, "reel": true, "reels": true, "stories": true,
	"explore": true, "tv": true, "accounts": true,
	"sharer": true, "share": true, "badges": true,
	"about": true, "directory": true, "legal": true,
	"privacy": true, "api": true, "static": true,
	"graphql": true, "instagram": true,
}

var usernamePattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/([A-Za-z0-9._]{3,60})/?`)

// Match returns true if the URL points at an Instagram profile.
func Match(urlStr string) bool {
	return ExtractUsername(urlStr) != ""
}

// ExtractUsername returns the lower-cased username from an Instagram
// profile URL, or "" for reserved paths and non-Instagram URLs.
func ExtractUsername(urlStr string) string {
	matches := usernamePattern.FindStringSubmatch(urlStr)
	if len(matches) < 2 {
		return ""
	}
	return cleanUsername(matches[1])
}

// CanonicalURL returns the canonical profile URL for a username.
func CanonicalURL(username string) string {
	return "https://www.instagram.com/" + strings.ToLower(username) + "/"
}

// ProfileURLs extracts all unique canonical Instagram profile URLs from
// arbitrary text or HTML, in order of first appearance.
func ProfileURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, m := range usernamePattern.FindAllStringSubmatch(text, -1) {
		u := cleanUsername(m[1])
		if u == "" {
			continue
		}
		canonical := CanonicalURL(u)
		if !seen[canonical] {
			seen[canonical] = true
			urls = append(urls, canonical)
		}
	}
	return urls
}

// hrefPattern matches Instagram profile URLs inside href attributes.
// Direct links are lower-noise than incidental text mentions.
var hrefPattern = regexp.MustCompile(`(?i)href=["'](?:https?://)?(?:www\.)?instagram\.com/([A-Za-z0-9._]{3,60})/?["']`)

// FirstProfileUsername returns the first valid profile username found in
// HTML, preferring href attributes over loose text matches. Returns ""
// when none is found.
func FirstProfileUsername(htmlContent string) string {
	for _, pattern := range []*regexp.Regexp{hrefPattern, usernamePattern} {
		for _, m := range pattern.FindAllStringSubmatch(htmlContent, -1) {
			if u := cleanUsername(m[1]); u != "" {
				return u
			}
		}
	}
	return ""
}

func cleanUsername(raw string) string {
	u := strings.ToLower(strings.Trim(raw, `/"'`))
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if len(u) < 3 || reservedPaths[u] {
		return ""
	}
	return u
}
