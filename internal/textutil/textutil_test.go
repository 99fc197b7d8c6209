package textutil

import "testing"

func TestCanonicalURL(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Example.com:443/a/../b/?utm_source=x&z=2&a=1#frag": "https://example.com/b/?a=1&z=2",
		"example.com":                     "https://example.com/",
		"http://example.com:8080/path":    "http://example.com:8080/path",
		"https://www.rover.com/?fbclid=1": "https://www.rover.com/",
	}
	for in, want := range cases {
		got, err := CanonicalURL(in)
		if err != nil {
			t.Fatalf("CanonicalURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("CanonicalURL(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := CanonicalURL("   "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://WWW.TechCrunch.com/2024/x"); got != "techcrunch.com" {
		t.Fatalf("Host = %q", got)
	}
	if got := Host("not a url"); got != "" {
		t.Fatalf("Host = %q, want empty", got)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("<p>Dog <b>walking</b>\n  &amp; <script>alert(1)</script>sitting</p>")
	if got != "Dog walking & sitting" {
		t.Fatalf("PlainText = %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n[\"positive\",\"negative\"]\n```":        `["positive","negative"]`,
		"Here you go: {\"labels\": [\"a\", \"}\"]} thanks": `{"labels": ["a", "}"]}`,
		`["neutral"]`: `["neutral"]`,
	}
	for in, want := range cases {
		got, err := ExtractJSON(in)
		if err != nil || got != want {
			t.Fatalf("ExtractJSON(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ExtractJSON("no json"); err == nil {
		t.Fatalf("expected error")
	}
}
