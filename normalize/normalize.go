// Package normalize cleans business names and derives search queries.
//
// "Shobha Bridal Studio Pvt. Ltd." becomes "Shobha Bridal Studio" so that
// search queries stay tight and candidate-name comparison is stable.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Legal and corporate suffixes common in Indian business names.
var legalSuffixes = regexp.MustCompile(
	`(?i)\b(?:pvt\.?\s*ltd\.?|private\s+limited|llp|llc|inc\.?|` +
		`co\.?|corp\.?|enterprises?|solutions?|services?|&?\s*sons?|` +
		`traders?|brothers?|br[os]+\.?)\b`)

var (
	punct      = regexp.MustCompile(`[^\pL\pN\s-]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Name returns a cleaned business name suitable for search queries:
// NFKC-normalized, legal suffixes stripped, punctuation removed except
// intra-word hyphens, whitespace collapsed, title-cased.
// Normalizing an already-normalized name returns it unchanged.
func Name(name string) string {
	text := norm.NFKC.String(strings.TrimSpace(name))
	text = legalSuffixes.ReplaceAllString(text, " ")
	text = punct.ReplaceAllString(text, " ")
	text = strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
	return titleCase(text)
}

// titleCase upper-cases the first letter of each space-separated word.
// strings.Title is deprecated and cases mid-word letters we want left alone.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// SearchVariants returns the search queries to try for a vendor, most
// specific first. City-bearing variants are dropped when city is empty.
// An empty name yields no variants.
func SearchVariants(businessName, city string) []string {
	name := Name(businessName)
	if name == "" {
		return nil
	}
	cityClean := titleCase(strings.ToLower(strings.TrimSpace(city)))

	if cityClean == "" {
		return []string{
			`site:instagram.com "` + name + `"`,
			`"` + name + `" instagram`,
		}
	}
	return []string{
		`site:instagram.com "` + name + `" "` + cityClean + `"`,
		`site:instagram.com "` + name + `" wedding ` + cityClean,
		`"` + name + `" "` + cityClean + `" instagram`,
	}
}

// categoryKeywords maps vendor categories to bio keywords used in scoring.
var categoryKeywords = map[string][]string{
	"wedding planner":  {"wedding", "planner", "events", "planning"},
	"photographer":     {"photo", "photography", "photographer", "wedding"},
	"videographer":     {"video", "films", "cinema", "wedding"},
	"caterer":          {"catering", "caterer", "food", "cuisine"},
	"decorator":        {"decor", "decoration", "floral", "wedding"},
	"makeup artist":    {"makeup", "bridal", "beauty", "mua"},
	"mehendi artist":   {"mehendi", "henna", "bridal"},
	"dj":               {"dj", "music", "events"},
	"live band":        {"band", "music", "live"},
	"bridal wear":      {"bridal", "lehenga", "saree", "wedding", "wear"},
	"jewelry":          {"jewelry", "jewellery", "bridal", "gold"},
	"florist":          {"flowers", "floral", "florist", "wedding"},
	"wedding venue":    {"venue", "banquet", "hall", "resort", "wedding"},
	"event management": {"events", "management", "wedding", "planning"},
	"choreographer":    {"dance", "choreography", "sangeet"},
	"lighting":         {"lighting", "lights", "events", "wedding"},
}

// CategoryKeywords returns searchable bio keywords for a vendor category.
// Unknown categories fall back to the category itself; empty falls back
// to "wedding".
func CategoryKeywords(category string) []string {
	key := strings.TrimSpace(strings.ToLower(category))
	for pattern, kws := range categoryKeywords {
		if strings.Contains(key, pattern) || (key != "" && strings.Contains(pattern, key)) {
			return kws
		}
	}
	if key != "" {
		return []string{key}
	}
	return []string{"wedding"}
}
