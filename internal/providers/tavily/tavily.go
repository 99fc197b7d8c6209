// Package tavily adapts the Tavily search API. Social purposes are narrowed
// to the platform's domains.
package tavily

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
)

const (
	defaultURL        = "https://api.tavily.com/search"
	defaultMaxResults = 10
)

type Client struct {
	apiKey     string
	apiURL     string
	maxResults int
	http       *httpx.Client
}

func New(cfg config.ProviderConfig, hc *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("tavily api key is required")
	}
	apiURL := strings.TrimSpace(cfg.BaseURL)
	if apiURL == "" {
		apiURL = defaultURL
	}
	n := cfg.MaxResults
	if n <= 0 {
		n = defaultMaxResults
	}
	return &Client{apiKey: cfg.APIKey, apiURL: apiURL, maxResults: n, http: hc}, nil
}

type request struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type response struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func domainsFor(purpose string) []string {
	switch {
	case strings.Contains(purpose, "reddit"):
		return []string{"reddit.com"}
	case strings.Contains(purpose, "twitter"):
		return []string{"twitter.com", "x.com"}
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context, query, purpose string) (hub.Payload, error) {
	body := request{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    "basic",
		MaxResults:     c.maxResults,
		IncludeDomains: domainsFor(purpose),
	}
	var resp response
	if err := c.http.PostJSON(ctx, "tavily", c.apiURL, body, nil, &resp); err != nil {
		return hub.Payload{}, err
	}
	var p hub.Payload
	for i, r := range resp.Results {
		p.Organic = append(p.Organic, hub.OrganicResult{
			URL:      r.URL,
			Title:    r.Title,
			Snippet:  strings.TrimSpace(r.Content),
			Position: i + 1,
			Score:    r.Score,
		})
	}
	return p, nil
}
