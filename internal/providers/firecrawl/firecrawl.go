// Package firecrawl adapts the Firecrawl search-and-scrape API. Every hit is
// scraped to markdown and reported as a competitor with its prices.
package firecrawl

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
	"github.com/mohammad-safakhou/ideahub/internal/providers/pagescan"
)

const (
	defaultBaseURL = "https://api.firecrawl.dev"
	defaultLimit   = 3
)

type Client struct {
	apiKey  string
	baseURL string
	limit   int
	http    *httpx.Client
}

func New(cfg config.ProviderConfig, hc *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("firecrawl api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	limit := cfg.ScrapePages
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, limit: limit, http: hc}, nil
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type request struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Markdown    string `json:"markdown"`
	} `json:"data"`
}

func (c *Client) Fetch(ctx context.Context, query, _ string) (hub.Payload, error) {
	body := request{Query: query, Limit: c.limit, ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}}}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var resp response
	if err := c.http.PostJSON(ctx, "firecrawl", c.baseURL+"/v1/search", body, headers, &resp); err != nil {
		return hub.Payload{}, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return hub.Payload{}, fmt.Errorf("firecrawl search: %s", msg)
	}
	var p hub.Payload
	for _, d := range resp.Data {
		if d.URL == "" {
			continue
		}
		pg := pagescan.FromMarkdown(d.Markdown, d.URL, d.Title, d.Description)
		p.Competitors = append(p.Competitors, pg.Competitor())
		p.Prices = append(p.Prices, pg.PriceRecords()...)
	}
	return p, nil
}
