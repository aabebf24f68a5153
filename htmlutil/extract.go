// Package htmlutil extracts embedded page metadata from raw HTML.
package htmlutil

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled patterns for extraction. Attribute order varies between
// servers, so og: tags are matched with property before and after content.
var (
	ogTitlePattern  = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']+)["']`)
	ogTitleReversed = regexp.MustCompile(`(?i)<meta[^>]+content=["']([^"']+)["'][^>]+property=["']og:title["']`)
	ogDescPattern   = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:description["'][^>]+content=["']([^"']+)["']`)
	ogDescReversed  = regexp.MustCompile(`(?i)<meta[^>]+content=["']([^"']+)["'][^>]+property=["']og:description["']`)
	titlePattern    = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	jsonLDPattern   = regexp.MustCompile(`(?is)<script[^>]+type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
)

// OGTitle extracts the og:title meta content, falling back to <title>.
func OGTitle(htmlContent string) string {
	for _, p := range []*regexp.Regexp{ogTitlePattern, ogTitleReversed, titlePattern} {
		if matches := p.FindStringSubmatch(htmlContent); len(matches) > 1 {
			return strings.TrimSpace(html.UnescapeString(matches[1]))
		}
	}
	return ""
}

// OGDescription extracts the og:description meta content.
func OGDescription(htmlContent string) string {
	for _, p := range []*regexp.Regexp{ogDescPattern, ogDescReversed} {
		if matches := p.FindStringSubmatch(htmlContent); len(matches) > 1 {
			return strings.TrimSpace(html.UnescapeString(matches[1]))
		}
	}
	return ""
}

// JSONLDBlocks returns the contents of all embedded
// <script type="application/ld+json"> blocks, in document order.
// Listing pages embed social links in these structured-data blocks, which
// are lower-noise than the surrounding HTML.
func JSONLDBlocks(htmlContent string) []string {
	matches := jsonLDPattern.FindAllStringSubmatch(htmlContent, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			blocks = append(blocks, m[1])
		}
	}
	return blocks
}
