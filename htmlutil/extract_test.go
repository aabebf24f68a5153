package htmlutil

import (
	"strings"
	"testing"
)

func TestOGTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "property first",
			html: `<meta property="og:title" content="Shobha Bridal Studio" />`,
			want: "Shobha Bridal Studio",
		},
		{
			name: "content first",
			html: `<meta content="Shobha Bridal Studio" property="og:title" />`,
			want: "Shobha Bridal Studio",
		},
		{
			name: "entities decoded",
			html: `<meta property="og:title" content="Shobha &amp; Co &bull; Instagram" />`,
			want: "Shobha & Co • Instagram",
		},
		{
			name: "title tag fallback",
			html: `<html><head><title>Shobha Bridal</title></head></html>`,
			want: "Shobha Bridal",
		},
		{
			name: "og preferred over title",
			html: `<title>Page Title</title><meta property="og:title" content="OG Title" />`,
			want: "OG Title",
		},
		{
			name: "nothing",
			html: `<html><body>no metadata</body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OGTitle(tt.html); got != tt.want {
				t.Errorf("OGTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOGDescription(t *testing.T) {
	html := `<meta property="og:description" content="12.3K Followers, 200 Following" />`
	if got := OGDescription(html); got != "12.3K Followers, 200 Following" {
		t.Errorf("OGDescription = %q", got)
	}
	if got := OGDescription("<p>nothing</p>"); got != "" {
		t.Errorf("OGDescription on empty = %q", got)
	}
}

func TestJSONLDBlocks(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@type": "LocalBusiness"}</script>
	<script type="text/javascript">var x = 1;</script>
	<script type="application/ld+json">
	{"@type": "BreadcrumbList",
	 "items": []}
	</script>
	<script type="application/ld+json">   </script>
	</head></html>`

	got := JSONLDBlocks(html)
	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2: %q", len(got), got)
	}
	if got[0] != `{"@type": "LocalBusiness"}` {
		t.Errorf("first block = %q", got[0])
	}
	if !strings.Contains(got[1], "BreadcrumbList") {
		t.Errorf("second block = %q", got[1])
	}
}
