// Package verify decides whether a scored Instagram candidate really
// belongs to the vendor. The primary path asks Claude; when no API key
// is configured the composite score alone produces the verdict.
package verify

import (
	"encoding/json"
	"strings"

	"github.com/vendorscout/instalink/record"
)

// Match is the model's categorical judgment.
type Match string

const (
	MatchYes    Match = "YES"
	MatchLikely Match = "LIKELY"
	MatchNo     Match = "NO"
)

// Acceptance thresholds. A YES needs moderate confidence to auto-accept;
// a LIKELY needs near-certainty. Everything else positive lands in the
// review queue.
const (
	acceptYesConfidence    = 70
	acceptLikelyConfidence = 85
	scoreYesThreshold      = 70
)

// Verdict is a verification outcome with confidence 0 to 100.
type Verdict struct {
	Match      Match  `json:"match"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// Status maps a verdict onto a record status.
func (v Verdict) Status() record.Status {
	switch v.Match {
	case MatchYes:
		if v.Confidence >= acceptYesConfidence {
			return record.StatusFound
		}
		return record.StatusNeedsReview
	case MatchLikely:
		if v.Confidence >= acceptLikelyConfidence {
			return record.StatusFound
		}
		return record.StatusNeedsReview
	default:
		return record.StatusNotFound
	}
}

// FromScore produces a verdict from the composite score alone, used when
// no verification model is configured. High scores read as YES, the rest
// as LIKELY; the score carries over as the confidence.
func FromScore(compositeScore float64) Verdict {
	match := MatchLikely
	if compositeScore >= scoreYesThreshold {
		match = MatchYes
	}
	return Verdict{
		Match:      match,
		Confidence: clampConfidence(int(compositeScore)),
		Reason:     "score-only verification",
	}
}

// ParseVerdict decodes the model's reply. Code fences are stripped,
// confidence is clamped, and anything unparseable or unrecognized reads
// as a NO so that garbage output can never auto-accept a profile.
func ParseVerdict(raw string) Verdict {
	text := unwrapFences(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Verdict{Match: MatchNo, Reason: "unparseable verdict"}
	}

	switch Match(strings.ToUpper(strings.TrimSpace(string(v.Match)))) {
	case MatchYes:
		v.Match = MatchYes
	case MatchLikely:
		v.Match = MatchLikely
	default:
		v.Match = MatchNo
	}
	v.Confidence = clampConfidence(v.Confidence)
	if len(v.Reason) > maxReasonLen {
		v.Reason = v.Reason[:maxReasonLen]
	}
	return v
}

const maxReasonLen = 200

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// unwrapFences extracts the JSON object from a possibly fenced reply.
func unwrapFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.Contains(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) >= 2 {
			text = parts[1]
			text = strings.TrimPrefix(text, "json")
			text = strings.TrimSpace(text)
		}
	}
	// Tolerate prose around the object.
	if start := strings.IndexByte(text, '{'); start >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > start {
			text = text[start : end+1]
		}
	}
	return text
}
