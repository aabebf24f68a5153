package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vendorscout/instalink/record"
)

func TestNewCSERequiresCredentials(t *testing.T) {
	if _, err := NewCSE("", "engine"); !errors.Is(err, record.ErrNoCredentials) {
		t.Errorf("missing key: err = %v, want ErrNoCredentials", err)
	}
	if _, err := NewCSE("key", ""); !errors.Is(err, record.ErrNoCredentials) {
		t.Errorf("missing engine: err = %v, want ErrNoCredentials", err)
	}
}

func TestCSESearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("cx") != "test-cx" {
			t.Errorf("credentials not forwarded: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [
			{"title": "Shobha Bridal (@shobhabridal)",
			 "link": "https://www.instagram.com/shobhabridal/",
			 "snippet": "12.3K Followers - Bridal makeup in Jaipur"},
			{"title": "Shobha on WeddingWire",
			 "link": "https://www.weddingwire.in/shobha"}
		]}`))
	}))
	defer server.Close()

	b, err := NewCSE("test-key", "test-cx", WithCSEEndpoint(server.URL))
	if err != nil {
		t.Fatalf("NewCSE: %v", err)
	}

	results, err := b.Search(context.Background(), "shobha bridal jaipur")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://www.instagram.com/shobhabridal/" {
		t.Errorf("first URL = %q", results[0].URL)
	}
}

func TestCSEQuotaCooldown(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	b, err := NewCSE("test-key", "test-cx", WithCSEEndpoint(server.URL))
	if err != nil {
		t.Fatalf("NewCSE: %v", err)
	}

	if _, err := b.Search(context.Background(), "first"); !errors.Is(err, record.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	callsAfterFirst := calls

	// The cooldown suppresses the second request entirely.
	if _, err := b.Search(context.Background(), "second"); !errors.Is(err, record.ErrRateLimited) {
		t.Fatalf("cooldown err = %v, want ErrRateLimited", err)
	}
	if calls != callsAfterFirst {
		t.Errorf("request sent during cooldown (%d calls)", calls)
	}
}

func TestCSEEmptyItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	b, err := NewCSE("test-key", "test-cx", WithCSEEndpoint(server.URL))
	if err != nil {
		t.Fatalf("NewCSE: %v", err)
	}
	results, err := b.Search(context.Background(), "no hits")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
