// Package score ranks Instagram profile candidates against a vendor
// record. Name similarity dominates; city, category keywords, and
// follower presence break ties.
package score

import (
	"math"
	"sort"
	"strings"

	"github.com/vendorscout/instalink/instagram"
	"github.com/vendorscout/instalink/normalize"
	"github.com/vendorscout/instalink/record"
)

// Score thresholds. Candidates from live search must clear MinScore to
// reach verification; candidates recovered by the fallback resolver get
// the lower bar since they came with corroborating context.
const (
	MinScore         = 40.0
	FallbackMinScore = 30.0
)

// Component weights, summing to 100.
const (
	nameWeight         = 60.0
	cityWeight         = 20.0
	cityTokenWeight    = 10.0
	categoryWeight     = 10.0
	categoryHalfWeight = 5.0
	followerWeight     = 10.0

	minCityTokenLen = 4
)

// Scored pairs a candidate's profile metadata with its composite score.
type Scored struct {
	Meta  *instagram.Metadata
	Score float64
}

// Profile computes the composite score for one candidate, 0 to 100,
// rounded to one decimal. The result is deterministic for a given
// record and metadata.
func Profile(rec record.VendorRecord, meta *instagram.Metadata) float64 {
	if meta == nil {
		return 0
	}
	total := nameComponent(rec, meta)

	haystack := strings.ToLower(meta.Bio + " " + meta.DisplayName + " " + meta.Title)

	// Full city match pays in full; a single long city token pays half,
	// which keeps multi-word and transliterated city names in play.
	city := strings.ToLower(strings.TrimSpace(rec.City))
	switch {
	case city == "":
	case strings.Contains(haystack, city):
		total += cityWeight
	default:
		for _, tok := range strings.Fields(city) {
			if len([]rune(tok)) >= minCityTokenLen && strings.Contains(haystack, tok) {
				total += cityTokenWeight
				break
			}
		}
	}

	hits := 0
	for _, kw := range normalize.CategoryKeywords(rec.Category) {
		if strings.Contains(haystack, kw) {
			hits++
		}
	}
	switch {
	case hits >= 2:
		total += categoryWeight
	case hits == 1:
		total += categoryHalfWeight
	}

	// Zero discoverable followers is weak evidence of an active business.
	if meta.Followers != nil && *meta.Followers > 0 {
		total += followerWeight
	}

	return math.Round(math.Min(total, 100)*10) / 10
}

// nameComponent scores how well the profile's names match the vendor
// name. The display name and the de-separatored username are both
// tried; the better match wins.
func nameComponent(rec record.VendorRecord, meta *instagram.Metadata) float64 {
	vendorName := rec.NormalizedName
	if vendorName == "" {
		vendorName = normalize.Name(rec.Name)
	}
	if vendorName == "" {
		return 0
	}

	best := tokenSortSimilarity(vendorName, meta.DisplayName)
	usernameWords := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(meta.Username)
	if s := tokenSortSimilarity(vendorName, usernameWords); s > best {
		best = s
	}
	return best * nameWeight
}

// Rank scores every candidate and returns the survivors at or above
// minScore, best first, capped at two. Order among equal scores follows
// the input order, which preserves search ranking.
func Rank(rec record.VendorRecord, metas []*instagram.Metadata, minScore float64) []Scored {
	scored := make([]Scored, 0, len(metas))
	for _, meta := range metas {
		if meta == nil {
			continue
		}
		if s := Profile(rec, meta); s >= minScore {
			scored = append(scored, Scored{Meta: meta, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > 2 {
		scored = scored[:2]
	}
	return scored
}

// tokenSortSimilarity compares two names ignoring word order: tokens are
// lower-cased, sorted, rejoined, and compared by normalized edit
// distance. Returns 0 to 1.
func tokenSortSimilarity(a, b string) float64 {
	na, nb := sortTokens(a), sortTokens(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	dist := levenshtein(na, nb)
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	return 1 - float64(dist)/float64(maxLen)
}

func sortTokens(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
