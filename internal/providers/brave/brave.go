// Package brave adapts the Brave Search web and news APIs.
package brave

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
)

const (
	defaultBaseURL    = "https://api.search.brave.com/res/v1"
	defaultMaxResults = 10
)

var pageAgeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

type Client struct {
	apiKey  string
	baseURL string
	count   int
	http    *httpx.Client
}

func New(cfg config.ProviderConfig, hc *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("brave api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	count := cfg.MaxResults
	if count <= 0 {
		count = defaultMaxResults
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, count: count, http: hc}, nil
}

type result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PageAge     string `json:"page_age"`
	MetaURL     struct {
		Hostname string `json:"hostname"`
	} `json:"meta_url"`
}

type newsResponse struct {
	Results []result `json:"results"`
}

type webResponse struct {
	Web struct {
		Results []result `json:"results"`
	} `json:"web"`
}

// Fetch queries the news vertical for news purposes and web search otherwise.
func (c *Client) Fetch(ctx context.Context, query, purpose string) (hub.Payload, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(c.count))
	headers := map[string]string{"X-Subscription-Token": c.apiKey}

	var p hub.Payload
	if strings.Contains(purpose, "news") {
		var resp newsResponse
		if err := c.http.GetJSON(ctx, "brave", c.baseURL+"/news/search?"+params.Encode(), headers, &resp); err != nil {
			return hub.Payload{}, err
		}
		for _, r := range resp.Results {
			p.News = append(p.News, hub.NewsArticle{
				Publisher:     strings.TrimPrefix(r.MetaURL.Hostname, "www."),
				Title:         r.Title,
				URL:           r.URL,
				PublishedDate: parsePageAge(r.PageAge),
				Snippet:       r.Description,
			})
		}
		return p, nil
	}

	var resp webResponse
	if err := c.http.GetJSON(ctx, "brave", c.baseURL+"/web/search?"+params.Encode(), headers, &resp); err != nil {
		return hub.Payload{}, err
	}
	for i, r := range resp.Web.Results {
		p.Organic = append(p.Organic, hub.OrganicResult{URL: r.URL, Title: r.Title, Snippet: r.Description, Position: i + 1})
	}
	return p, nil
}

func parsePageAge(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range pageAgeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
