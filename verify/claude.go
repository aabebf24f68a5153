package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vendorscout/instalink/record"
	"github.com/vendorscout/instalink/score"
)

// DefaultModel is the verification model when none is configured.
const DefaultModel = "claude-haiku-4-5-20251001"

const verifyMaxTokens = 300

// Verifier judges whether a scored profile belongs to a vendor.
type Verifier interface {
	Verify(ctx context.Context, rec record.VendorRecord, cand score.Scored) (Verdict, error)
}

// ClaudeVerifier asks the Anthropic API for a verdict.
type ClaudeVerifier struct {
	client  sdk.Client
	model   string
	logger  *slog.Logger
	sdkOpts []option.RequestOption
}

// ClaudeOption configures a ClaudeVerifier.
type ClaudeOption func(*ClaudeVerifier)

// WithModel overrides the verification model.
func WithModel(model string) ClaudeOption {
	return func(v *ClaudeVerifier) {
		if model != "" {
			v.model = model
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClaudeOption {
	return func(v *ClaudeVerifier) {
		v.logger = logger
	}
}

// WithRequestOptions forwards extra options to the SDK client. Tests use
// this to point at a local server.
func WithRequestOptions(opts ...option.RequestOption) ClaudeOption {
	return func(v *ClaudeVerifier) {
		v.sdkOpts = append(v.sdkOpts, opts...)
	}
}

// NewClaude creates a ClaudeVerifier. An empty API key returns
// record.ErrNoCredentials so the caller can fall back to score-only
// verification.
func NewClaude(apiKey string, opts ...ClaudeOption) (*ClaudeVerifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("verifier: %w", record.ErrNoCredentials)
	}
	v := &ClaudeVerifier{
		model:  DefaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	sdkOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, v.sdkOpts...)
	v.client = sdk.NewClient(sdkOpts...)
	return v, nil
}

// Verify sends one candidate to the model and parses the verdict.
func (v *ClaudeVerifier) Verify(ctx context.Context, rec record.VendorRecord, cand score.Scored) (Verdict, error) {
	prompt := buildPrompt(rec, cand)

	msg, err := v.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(v.model),
		MaxTokens:   verifyMaxTokens,
		Temperature: sdk.Float(0),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("verifying %s: %w", cand.Meta.Username, err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		reply.WriteString(block.Text)
	}

	verdict := ParseVerdict(reply.String())
	v.logger.Debug("verification verdict",
		"username", cand.Meta.Username,
		"match", verdict.Match,
		"confidence", verdict.Confidence)
	return verdict, nil
}

// buildPrompt lays out the vendor record next to the profile evidence,
// including the composite match score, and demands a bare JSON object.
func buildPrompt(rec record.VendorRecord, cand score.Scored) string {
	meta := cand.Meta

	var b strings.Builder
	b.WriteString("You are verifying whether an Instagram profile belongs to a specific business.\n\n")
	b.WriteString("Business record:\n")
	fmt.Fprintf(&b, "- Name: %s\n", rec.Name)
	if rec.NormalizedName != "" && rec.NormalizedName != rec.Name {
		fmt.Fprintf(&b, "- Normalized name: %s\n", rec.NormalizedName)
	}
	if rec.City != "" {
		fmt.Fprintf(&b, "- City: %s\n", rec.City)
	}
	if rec.Category != "" {
		fmt.Fprintf(&b, "- Category: %s\n", rec.Category)
	}
	if rec.Website != "" {
		fmt.Fprintf(&b, "- Website: %s\n", rec.Website)
	}

	b.WriteString("\nInstagram profile:\n")
	fmt.Fprintf(&b, "- Username: %s\n", meta.Username)
	if meta.DisplayName != "" {
		fmt.Fprintf(&b, "- Display name: %s\n", meta.DisplayName)
	}
	if meta.Bio != "" {
		fmt.Fprintf(&b, "- Bio: %s\n", meta.Bio)
	}
	if meta.Followers != nil {
		fmt.Fprintf(&b, "- Followers: %d\n", *meta.Followers)
	}
	if meta.Verified {
		b.WriteString("- Verified badge: yes\n")
	}
	fmt.Fprintf(&b, "- Computed match score: %.1f/100\n", cand.Score)

	b.WriteString(`
Important signals:
- The city or location appearing in the bio strongly suggests a match
- Category keywords in the bio (bridal, photography, catering) add confidence
- A display name closely matching the business name is strong evidence
- Generic names or a very different business category are negative signals

Does this profile belong to this business? Reply with ONLY a JSON object,
no other text:
{"match": "YES" or "LIKELY" or "NO", "confidence": 0-100, "reason": "one sentence"}`)
	return b.String()
}
