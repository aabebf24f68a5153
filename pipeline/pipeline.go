// Package pipeline orchestrates vendor resolution end to end: search
// for candidates, extract profile metadata, score, verify, and persist.
// Each vendor's result is written the moment it is decided, so a run
// can be interrupted and resumed with at most one row of rework.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vendorscout/instalink/fallback"
	"github.com/vendorscout/instalink/instagram"
	"github.com/vendorscout/instalink/record"
	"github.com/vendorscout/instalink/score"
	"github.com/vendorscout/instalink/search"
	"github.com/vendorscout/instalink/verify"
)

const defaultExtractConcurrency = 3

// CandidateSearcher finds Instagram candidates for a vendor.
type CandidateSearcher interface {
	FindCandidates(ctx context.Context, rec record.VendorRecord) ([]search.Candidate, error)
}

// ProfileFetcher retrieves profile metadata for a username.
type ProfileFetcher interface {
	Fetch(ctx context.Context, username string) (*instagram.Metadata, error)
}

// FallbackResolver recovers a candidate without search.
type FallbackResolver interface {
	Resolve(ctx context.Context, rec record.VendorRecord) (*fallback.Candidate, error)
}

// Stats summarizes one run.
type Stats struct {
	Processed   int
	Found       int
	NeedsReview int
	NotFound    int
	Errors      int
}

// Orchestrator drives the resolution pipeline over a record store.
type Orchestrator struct {
	store       record.Store
	searcher    CandidateSearcher
	fetcher     ProfileFetcher
	fallback    FallbackResolver
	verifier    verify.Verifier // nil means score-only verification
	logger      *slog.Logger
	limit       int
	dryRun      bool
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifier sets the match verifier. Without one, composite scores
// decide on their own.
func WithVerifier(v verify.Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLimit caps how many vendors one run processes. Zero means all.
func WithLimit(n int) Option {
	return func(o *Orchestrator) {
		o.limit = n
	}
}

// WithDryRun computes results without writing them back.
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// WithExtractConcurrency sets how many profile fetches run in parallel
// per vendor.
func WithExtractConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// New creates an Orchestrator.
func New(store record.Store, searcher CandidateSearcher, fetcher ProfileFetcher, fb FallbackResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		searcher:    searcher,
		fetcher:     fetcher,
		fallback:    fb,
		logger:      slog.Default(),
		concurrency: defaultExtractConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run resolves every pending vendor. On rate limiting or cancellation it
// returns early with the rows processed so far written; the rest stay
// pending for the next run.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := o.store.Pending(ctx)
	if err != nil {
		return stats, fmt.Errorf("loading pending vendors: %w", err)
	}
	o.logger.Info("starting run", "pending", len(pending), "dry_run", o.dryRun)

	for _, rec := range pending {
		if o.limit > 0 && stats.Processed >= o.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		res, err := o.resolveSafely(ctx, rec)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			if errors.Is(err, record.ErrRateLimited) {
				o.logger.Warn("stopping run, rate limited", "vendor", rec.Name)
				return stats, err
			}
			stats.Errors++
			o.logger.Error("vendor failed", "vendor", rec.Name, "error", err)
			res = record.NotFound()
		}

		stats.Processed++
		switch res.Status {
		case record.StatusFound:
			stats.Found++
		case record.StatusNeedsReview:
			stats.NeedsReview++
		default:
			stats.NotFound++
		}
		o.logger.Info("vendor resolved",
			"vendor", rec.Name,
			"status", res.Status,
			"profile", res.ProfileURL,
			"confidence", res.Confidence)

		if o.dryRun {
			continue
		}
		// A failed write leaves the row pending for the next run; the
		// rest of the batch still gets processed.
		if err := o.store.WriteResult(ctx, rec.RowID, res); err != nil {
			o.logger.Error("result write failed", "row", rec.RowID, "error", err)
		}
	}

	return stats, nil
}

// resolveSafely contains a panic from one vendor so a single bad row
// cannot sink the whole batch.
func (o *Orchestrator) resolveSafely(ctx context.Context, rec record.VendorRecord) (res record.ResolutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic resolving vendor", "vendor", rec.Name, "panic", r)
			res = record.NotFound()
			err = nil
		}
	}()
	return o.resolve(ctx, rec)
}

// resolve runs the full decision sequence for one vendor. The fallback
// resolver runs whenever search, scoring, and verification together
// accepted nothing, not just when search came back empty.
func (o *Orchestrator) resolve(ctx context.Context, rec record.VendorRecord) (record.ResolutionResult, error) {
	res := record.NotFound()

	candidates, err := o.searcher.FindCandidates(ctx, rec)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, record.ErrRateLimited) {
			return record.ResolutionResult{}, err
		}
		o.logger.Warn("search failed", "vendor", rec.Name, "error", err)
	}

	if len(candidates) > 0 {
		usernames := make([]string, 0, len(candidates))
		for _, c := range candidates {
			usernames = append(usernames, c.Username)
		}
		metas, err := o.extractAll(ctx, usernames)
		if err != nil {
			return record.ResolutionResult{}, err
		}
		if ranked := score.Rank(rec, metas, score.MinScore); len(ranked) > 0 {
			if res, err = o.decide(ctx, rec, ranked); err != nil {
				return record.ResolutionResult{}, err
			}
		}
	}
	if res.Status != record.StatusNotFound {
		return res, nil
	}

	fb, err := o.fallback.Resolve(ctx, rec)
	if err != nil {
		return record.ResolutionResult{}, err
	}
	if fb == nil {
		return record.NotFound(), nil
	}
	o.logger.Debug("fallback candidate", "vendor", rec.Name, "username", fb.Username, "source", fb.Source)

	metas, err := o.extractAll(ctx, []string{fb.Username})
	if err != nil {
		return record.ResolutionResult{}, err
	}
	ranked := score.Rank(rec, metas, score.FallbackMinScore)
	if len(ranked) == 0 {
		return record.NotFound(), nil
	}
	return o.decide(ctx, rec, ranked)
}

// extractAll fetches profile metadata concurrently, preserving candidate
// order. Missing profiles drop out; rate limiting aborts.
func (o *Orchestrator) extractAll(ctx context.Context, usernames []string) ([]*instagram.Metadata, error) {
	metas := make([]*instagram.Metadata, len(usernames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, username := range usernames {
		g.Go(func() error {
			meta, err := o.fetcher.Fetch(gctx, username)
			switch {
			case err == nil:
				metas[i] = meta
			case errors.Is(err, record.ErrProfileNotFound):
				o.logger.Debug("candidate profile gone", "username", username)
			case errors.Is(err, record.ErrRateLimited):
				return err
			default:
				o.logger.Warn("profile fetch failed", "username", username, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

// decide verifies ranked candidates in order. The first confirmed match
// wins; failing that, the best positive-but-unconfirmed candidate lands
// in the review queue.
func (o *Orchestrator) decide(ctx context.Context, rec record.VendorRecord, ranked []score.Scored) (record.ResolutionResult, error) {
	var review *record.ResolutionResult

	for _, cand := range ranked {
		verdict, verified, err := o.verdictFor(ctx, rec, cand)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return record.ResolutionResult{}, err
			}
			// A verification failure is no evidence either way; the
			// next-ranked candidate still gets its chance.
			o.logger.Warn("verification failed, skipping candidate",
				"vendor", rec.Name,
				"username", cand.Meta.Username,
				"error", err)
			continue
		}

		switch verdict.Status() {
		case record.StatusFound:
			return buildResult(cand.Meta, verdict, record.StatusFound, verified), nil
		case record.StatusNeedsReview:
			if review == nil {
				r := buildResult(cand.Meta, verdict, record.StatusNeedsReview, verified)
				review = &r
			}
		default:
			o.logger.Debug("candidate rejected",
				"vendor", rec.Name,
				"username", cand.Meta.Username,
				"reason", verdict.Reason)
		}
	}

	if review != nil {
		return *review, nil
	}
	return record.NotFound(), nil
}

// verdictFor asks the verifier when one is configured, otherwise derives
// the verdict from the composite score. The returned flag reports
// whether a model stands behind the verdict.
func (o *Orchestrator) verdictFor(ctx context.Context, rec record.VendorRecord, cand score.Scored) (verify.Verdict, record.Verified, error) {
	if o.verifier == nil {
		return verify.FromScore(cand.Score), record.VerifiedUnknown, nil
	}
	verdict, err := o.verifier.Verify(ctx, rec, cand)
	if err != nil {
		return verify.Verdict{}, record.VerifiedUnknown, fmt.Errorf("verifying candidate %s: %w", cand.Meta.Username, err)
	}
	verified := record.VerifiedFalse
	if verdict.Status() == record.StatusFound {
		verified = record.VerifiedTrue
	}
	return verdict, verified, nil
}

func buildResult(meta *instagram.Metadata, verdict verify.Verdict, status record.Status, verified record.Verified) record.ResolutionResult {
	return record.ResolutionResult{
		ProfileURL: meta.URL,
		Confidence: verdict.Confidence,
		Status:     status,
		Followers:  meta.Followers,
		Verified:   verified,
		CheckedAt:  time.Now().UTC(),
	}
}
