package fallback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vendorscout/instalink/record"
)

func TestResolveFromWebsite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>
		<footer>
			<a href="https://www.facebook.com/shobhabridal">Facebook</a>
			<a href="https://www.instagram.com/shobhabridal/">Instagram</a>
		</footer>
		</body></html>`))
	}))
	defer server.Close()

	r := NewResolver()
	got, err := r.Resolve(context.Background(), record.VendorRecord{Website: server.URL})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil {
		t.Fatal("Resolve returned nil candidate")
	}
	if got.Username != "shobhabridal" || got.Source != SourceWebsite {
		t.Errorf("candidate = %+v, want shobhabridal from website", got)
	}
	if got.URL != "https://www.instagram.com/shobhabridal/" {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestResolveWebsiteRawTextBackstop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>
		<p>Find us on Instagram: instagram.com/shobha.bridal</p>
		</body></html>`))
	}))
	defer server.Close()

	got, err := NewResolver().Resolve(context.Background(), record.VendorRecord{Website: server.URL})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.Username != "shobha.bridal" {
		t.Errorf("candidate = %+v, want shobha.bridal via text scan", got)
	}
}

func TestResolveFromListingJSONLD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head>
		<script type="application/ld+json">
		{"@type": "LocalBusiness", "name": "Shobha Bridal",
		 "sameAs": ["https://www.facebook.com/shobhabridal",
		            "https://www.instagram.com/shobhabridal/"]}
		</script>
		</head><body>
		<p>Unrelated mention of instagram.com/wedmegood in an ad.</p>
		</body></html>`))
	}))
	defer server.Close()

	got, err := NewResolver().Resolve(context.Background(), record.VendorRecord{ListingURL: server.URL})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil {
		t.Fatal("Resolve returned nil candidate")
	}
	if got.Username != "shobhabridal" || got.Source != SourceListing {
		t.Errorf("candidate = %+v, want shobhabridal from listing JSON-LD", got)
	}
}

func TestResolveListingBodyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>
		<a href="https://www.instagram.com/shobhabridal/">IG</a>
		</body></html>`))
	}))
	defer server.Close()

	got, err := NewResolver().Resolve(context.Background(), record.VendorRecord{ListingURL: server.URL})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.Username != "shobhabridal" {
		t.Errorf("candidate = %+v, want shobhabridal from listing body", got)
	}
}

func TestResolveWebsitePreferredOverListing(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<a href="https://www.instagram.com/from_website/">IG</a>`))
	}))
	defer site.Close()
	listing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<a href="https://www.instagram.com/from_listing/">IG</a>`))
	}))
	defer listing.Close()

	got, err := NewResolver().Resolve(context.Background(),
		record.VendorRecord{Website: site.URL, ListingURL: listing.URL})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.Username != "from_website" {
		t.Errorf("candidate = %+v, want from_website", got)
	}
}

func TestResolveWebsiteDownFallsThrough(t *testing.T) {
	listing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<a href="https://www.instagram.com/from_listing/">IG</a>`))
	}))
	defer listing.Close()

	got, err := NewResolver().Resolve(context.Background(), record.VendorRecord{
		Website:    "http://127.0.0.1:1", // refused
		ListingURL: listing.URL,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.Username != "from_listing" {
		t.Errorf("candidate = %+v, want from_listing after website failure", got)
	}
}

func TestResolveNothing(t *testing.T) {
	got, err := NewResolver().Resolve(context.Background(), record.VendorRecord{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Errorf("candidate = %+v, want nil", got)
	}
}
