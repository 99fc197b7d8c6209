package tavily

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
)

func TestFetchRedditPurposeNarrowsDomains(t *testing.T) {
	errCh := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body request
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			errCh <- fmt.Errorf("decode body: %w", err)
			return
		}
		if body.APIKey != "test-key" || body.MaxResults != 3 {
			errCh <- fmt.Errorf("unexpected request %+v", body)
		}
		if len(body.IncludeDomains) != 1 || body.IncludeDomains[0] != "reddit.com" {
			errCh <- fmt.Errorf("expected reddit domain filter, got %v", body.IncludeDomains)
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"Anyone use a dog walking app?","url":"https://reddit.com/r/dogs/1","content":"I love it","score":0.92}]}`))
	}))
	defer srv.Close()

	c, err := New(config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL, MaxResults: 3}, httpx.New(nil, httpx.Options{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := c.Fetch(context.Background(), "dog walking site:reddit.com", "reddit_sentiment")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("handler: %v", err)
	default:
	}
	if len(p.Organic) != 1 || p.Organic[0].Score != 0.92 || p.Organic[0].Snippet != "I love it" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestDomainsFor(t *testing.T) {
	if got := domainsFor("twitter_buzz"); len(got) != 2 {
		t.Fatalf("twitter purpose should include both domains, got %v", got)
	}
	if got := domainsFor("market_overview"); got != nil {
		t.Fatalf("non-social purpose should not filter domains, got %v", got)
	}
}

func TestFetchPropagatesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := New(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, httpx.New(nil, httpx.Options{}))
	if _, err := c.Fetch(context.Background(), "q", "twitter_buzz"); err == nil {
		t.Fatalf("expected error on 401")
	}
}
