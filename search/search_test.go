package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vendorscout/instalink/record"
)

type fakeBackend struct {
	name    string
	results map[string][]Result
	err     error
	errs    map[string]error
	queries []string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Search(_ context.Context, query string) ([]Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func newTestSearcher(backends ...Backend) *Searcher {
	return NewSearcher(backends, WithDelays(0, 0))
}

func TestFindCandidates(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Shobha Bridal", City: "Jaipur"}

	backend := &fakeBackend{
		name: "fake",
		results: map[string][]Result{
			`site:instagram.com "Shobha Bridal" "Jaipur"`: {
				{Title: "Shobha Bridal (@shobhabridal)", URL: "https://www.instagram.com/shobhabridal/"},
				{Title: "A wedding post", URL: "https://www.instagram.com/p/Cx123/"},
				{Title: "Shobha Studio", URL: "https://www.instagram.com/shobhastudio/"},
			},
			`site:instagram.com "Shobha Bridal" wedding Jaipur`: {
				{Title: "dup", URL: "https://instagram.com/ShobhaBridal"},
			},
		},
	}

	got, err := newTestSearcher(backend).FindCandidates(context.Background(), rec)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	var usernames []string
	for _, c := range got {
		usernames = append(usernames, c.Username)
	}
	want := []string{"shobhabridal", "shobhastudio"}
	if diff := cmp.Diff(want, usernames); diff != "" {
		t.Errorf("candidate usernames mismatch (-want +got):\n%s", diff)
	}
	if got[0].URL != "https://www.instagram.com/shobhabridal/" {
		t.Errorf("candidate URL = %q", got[0].URL)
	}
	if len(backend.queries) != 1 {
		t.Errorf("ran %d queries, want 1 (first query produced candidates)", len(backend.queries))
	}
}

func TestFindCandidatesWeakerQueryFallthrough(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Shobha Bridal", City: "Jaipur"}

	backend := &fakeBackend{
		name: "fake",
		results: map[string][]Result{
			`site:instagram.com "Shobha Bridal" "Jaipur"`: {
				{Title: "unrelated", URL: "https://example.com/shobha"},
			},
			`site:instagram.com "Shobha Bridal" wedding Jaipur`: {
				{URL: "https://www.instagram.com/shobhabridal/"},
			},
		},
	}

	got, err := newTestSearcher(backend).FindCandidates(context.Background(), rec)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 1 || got[0].Username != "shobhabridal" {
		t.Errorf("candidates = %+v, want shobhabridal via second variant", got)
	}
	if len(backend.queries) != 2 {
		t.Errorf("ran %d queries, want 2", len(backend.queries))
	}
}

func TestFindCandidatesEarlyStop(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Big Vendor", City: "Mumbai"}

	firstQuery := `site:instagram.com "Big Vendor" "Mumbai"`
	results := make([]Result, 0, 8)
	for _, u := range []string{"one_studio", "two_studio", "three_studio", "four_studio", "five_studio", "six_studio"} {
		results = append(results, Result{URL: "https://www.instagram.com/" + u + "/"})
	}
	backend := &fakeBackend{name: "fake", results: map[string][]Result{firstQuery: results}}

	got, err := newTestSearcher(backend).FindCandidates(context.Background(), rec)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != defaultMaxCandidates {
		t.Errorf("got %d candidates, want %d", len(got), defaultMaxCandidates)
	}
	if len(backend.queries) != 1 {
		t.Errorf("ran %d queries, want 1 (early stop)", len(backend.queries))
	}
}

func TestFindCandidatesBackendFailover(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Shobha Bridal", City: "Jaipur"}

	limited := &fakeBackend{name: "primary", err: record.ErrRateLimited}
	fallback := &fakeBackend{
		name: "fallback",
		results: map[string][]Result{
			`site:instagram.com "Shobha Bridal" "Jaipur"`: {
				{URL: "https://www.instagram.com/shobhabridal/"},
			},
		},
	}

	got, err := newTestSearcher(limited, fallback).FindCandidates(context.Background(), rec)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 1 || got[0].Username != "shobhabridal" {
		t.Errorf("candidates = %+v, want shobhabridal via fallback", got)
	}
	if len(limited.queries) == 0 {
		t.Error("primary backend was never tried")
	}
}

func TestFindCandidatesAllBackendsLimited(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Shobha Bridal", City: "Jaipur"}
	limited := &fakeBackend{name: "only", err: record.ErrRateLimited}

	got, err := newTestSearcher(limited).FindCandidates(context.Background(), rec)
	if err != nil {
		t.Fatalf("FindCandidates: %v, want nil so the vendor is not failed", err)
	}
	if len(got) != 0 {
		t.Errorf("candidates = %+v, want none", got)
	}
	if len(limited.queries) != 3 {
		t.Errorf("ran %d queries, want all 3 variants tried", len(limited.queries))
	}
}

func TestFindCandidatesSwallowsBackendErrors(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Shobha Bridal", City: "Jaipur"}

	backend := &fakeBackend{
		name: "flaky",
		errs: map[string]error{
			`site:instagram.com "Shobha Bridal" "Jaipur"`: errors.New("connection reset by peer"),
		},
		results: map[string][]Result{
			`site:instagram.com "Shobha Bridal" wedding Jaipur`: {
				{URL: "https://www.instagram.com/shobhabridal/"},
			},
		},
	}

	got, err := newTestSearcher(backend).FindCandidates(context.Background(), rec)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 1 || got[0].Username != "shobhabridal" {
		t.Errorf("candidates = %+v, want shobhabridal from the second variant", got)
	}
	if len(backend.queries) != 2 {
		t.Errorf("ran %d queries, want 2", len(backend.queries))
	}
}

type coolingBackend struct {
	fakeBackend
	until time.Time
}

func (c *coolingBackend) CooldownUntil() time.Time { return c.until }

func TestFindCandidatesHoldsForCooldown(t *testing.T) {
	rec := record.VendorRecord{NormalizedName: "Shobha Bridal", City: "Jaipur"}

	until := time.Now().Add(30 * time.Millisecond)
	limited := &coolingBackend{
		fakeBackend: fakeBackend{name: "blocked", err: record.ErrRateLimited},
		until:       until,
	}

	s := newTestSearcher(limited)
	if _, err := s.FindCandidates(context.Background(), rec); err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}

	s.limiter.mu.Lock()
	pushed := s.limiter.cooldownUntil
	s.limiter.mu.Unlock()
	if pushed.Before(until) {
		t.Errorf("limiter cooldown = %v, want at least %v", pushed, until)
	}
}

func TestFindCandidatesEmptyName(t *testing.T) {
	got, err := newTestSearcher(&fakeBackend{name: "fake"}).FindCandidates(
		context.Background(), record.VendorRecord{City: "Jaipur"})
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if got != nil {
		t.Errorf("candidates = %+v, want none", got)
	}
}
