package brave

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
)

func TestFetchNews(t *testing.T) {
	errCh := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news/search" {
			errCh <- fmt.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Subscription-Token") != "token" {
			errCh <- fmt.Errorf("missing subscription token")
		}
		if r.URL.Query().Get("q") != "dog walking news" || r.URL.Query().Get("count") != "10" {
			errCh <- fmt.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Dog walking app raises seed","url":"https://www.example.com/a","description":"Funding news",
			 "page_age":"2024-05-01T10:00:00","meta_url":{"hostname":"www.example.com"}}
		]}`))
	}))
	defer srv.Close()

	c, err := New(config.ProviderConfig{APIKey: "token", BaseURL: srv.URL}, httpx.New(nil, httpx.Options{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := c.Fetch(context.Background(), "dog walking news", "news_recent")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("handler: %v", err)
	default:
	}
	if len(p.News) != 1 {
		t.Fatalf("expected one article, got %+v", p.News)
	}
	a := p.News[0]
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if a.Publisher != "example.com" || !a.PublishedDate.Equal(want) {
		t.Fatalf("unexpected article %+v", a)
	}
}

func TestFetchWeb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/web/search" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"A","url":"https://a.com","description":"first"},{"title":"B","url":"https://b.com"}]}}`))
	}))
	defer srv.Close()

	c, _ := New(config.ProviderConfig{APIKey: "token", BaseURL: srv.URL}, httpx.New(nil, httpx.Options{}))
	p, err := c.Fetch(context.Background(), "dog walking", "market_overview")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(p.Organic) != 2 || p.Organic[1].Position != 2 || len(p.News) != 0 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestParsePageAge(t *testing.T) {
	if !parsePageAge("garbage").IsZero() {
		t.Fatalf("unparseable page age should be zero")
	}
	if parsePageAge("2024-01-02").Day() != 2 {
		t.Fatalf("date-only page age not parsed")
	}
}
