package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "legal suffix stripped",
			in:   "Shobha Bridal Studio Pvt. Ltd.",
			want: "Shobha Bridal Studio",
		},
		{
			name: "private limited stripped",
			in:   "Raj Caterers Private Limited",
			want: "Raj Caterers",
		},
		{
			name: "llp stripped",
			in:   "Lens & Light LLP",
			want: "Lens Light",
		},
		{
			name: "punctuation removed hyphen kept",
			in:   "D'Souza Photo-Films!",
			want: "D Souza Photo-films",
		},
		{
			name: "whitespace collapsed",
			in:   "  Mehendi   by   Rekha  ",
			want: "Mehendi By Rekha",
		},
		{
			name: "title cased",
			in:   "royal wedding decor",
			want: "Royal Wedding Decor",
		},
		{
			name: "already normalized unchanged",
			in:   "Shobha Bridal Studio",
			want: "Shobha Bridal Studio",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "only suffix",
			in:   "Enterprises",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.in); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"Shobha Bridal Studio Pvt. Ltd.",
		"D'Souza Photo-Films!",
		"royal wedding decor",
	}
	for _, in := range inputs {
		once := Name(in)
		if twice := Name(once); twice != once {
			t.Errorf("Name not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSearchVariants(t *testing.T) {
	tests := []struct {
		name string
		biz  string
		city string
		want []string
	}{
		{
			name: "with city",
			biz:  "Shobha Bridal Studio Pvt. Ltd.",
			city: "jaipur",
			want: []string{
				`site:instagram.com "Shobha Bridal Studio" "Jaipur"`,
				`site:instagram.com "Shobha Bridal Studio" wedding Jaipur`,
				`"Shobha Bridal Studio" "Jaipur" instagram`,
			},
		},
		{
			name: "without city",
			biz:  "Shobha Bridal Studio",
			city: "",
			want: []string{
				`site:instagram.com "Shobha Bridal Studio"`,
				`"Shobha Bridal Studio" instagram`,
			},
		},
		{
			name: "empty name",
			biz:  "",
			city: "Jaipur",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchVariants(tt.biz, tt.city)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SearchVariants mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCategoryKeywords(t *testing.T) {
	tests := []struct {
		category string
		contains string
	}{
		{"Makeup Artist", "makeup"},
		{"wedding photographer", "photography"},
		{"Caterer", "catering"},
		{"DJ", "dj"},
		{"mehendi", "henna"},
	}
	for _, tt := range tests {
		kws := CategoryKeywords(tt.category)
		found := false
		for _, kw := range kws {
			if kw == tt.contains {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("CategoryKeywords(%q) = %v, missing %q", tt.category, kws, tt.contains)
		}
	}

	if got := CategoryKeywords("astrologer"); len(got) != 1 || got[0] != "astrologer" {
		t.Errorf("unknown category = %v, want the category itself", got)
	}
	if got := CategoryKeywords(""); len(got) != 1 || got[0] != "wedding" {
		t.Errorf("empty category = %v, want [wedding]", got)
	}
}
