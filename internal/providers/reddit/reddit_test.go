package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
)

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>reddit search</title>
  <entry>
    <author><name>/u/pawsome</name></author>
    <title>Is there a good dog walking app?</title>
    <link href="https://www.reddit.com/r/dogs/comments/1/"/>
    <content type="html">&lt;p&gt;I &lt;b&gt;love&lt;/b&gt; the idea but Rover is expensive&lt;/p&gt;</content>
    <published>2024-03-01T12:00:00+00:00</published>
    <updated>2024-03-02T12:00:00+00:00</updated>
  </entry>
  <entry>
    <title>Dog walkers wanted</title>
    <link href="https://www.reddit.com/r/jobs/comments/2/"/>
    <updated>2024-03-05T08:00:00+00:00</updated>
  </entry>
</feed>`

func TestFetchParsesSearchFeed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.rss" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	c := New(config.ProviderConfig{BaseURL: srv.URL}, httpx.New(nil, httpx.Options{}))
	p, err := c.Fetch(context.Background(), "dog walking app", "reddit_sentiment")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "dog walking app" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(p.Social) != 2 {
		t.Fatalf("expected two posts, got %+v", p.Social)
	}
	first := p.Social[0]
	if first.Platform != "reddit" || first.Author != "pawsome" {
		t.Fatalf("unexpected first post %+v", first)
	}
	if first.Content != "Is there a good dog walking app? I love the idea but Rover is expensive" {
		t.Fatalf("unexpected content %q", first.Content)
	}
	if first.Date.Day() != 1 {
		t.Fatalf("expected published date, got %v", first.Date)
	}
	if second := p.Social[1]; second.Date.Day() != 5 || second.Author != "" {
		t.Fatalf("expected updated date fallback, got %+v", second)
	}
}

func TestFetchRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not a feed`))
	}))
	defer srv.Close()

	c := New(config.ProviderConfig{BaseURL: srv.URL}, httpx.New(nil, httpx.Options{}))
	if _, err := c.Fetch(context.Background(), "q", "reddit_sentiment"); err == nil {
		t.Fatalf("expected parse error")
	}
}
