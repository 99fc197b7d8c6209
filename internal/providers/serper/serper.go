// Package serper adapts the serper.dev Google search API.
package serper

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
)

const (
	defaultBaseURL    = "https://google.serper.dev"
	defaultMaxResults = 10
)

// Client fetches organic results, or news results for news purposes.
type Client struct {
	apiKey  string
	baseURL string
	num     int
	http    *httpx.Client
}

func New(cfg config.ProviderConfig, hc *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("serper api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	num := cfg.MaxResults
	if num <= 0 {
		num = defaultMaxResults
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, num: num, http: hc}, nil
}

type request struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type response struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
	News []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source"`
	} `json:"news"`
}

func (c *Client) Fetch(ctx context.Context, query, purpose string) (hub.Payload, error) {
	endpoint := "/search"
	news := strings.Contains(purpose, "news")
	if news {
		endpoint = "/news"
	}
	var resp response
	headers := map[string]string{"X-API-KEY": c.apiKey}
	if err := c.http.PostJSON(ctx, "serper", c.baseURL+endpoint, request{Q: query, Num: c.num}, headers, &resp); err != nil {
		return hub.Payload{}, err
	}

	var p hub.Payload
	for i, r := range resp.Organic {
		pos := r.Position
		if pos <= 0 {
			pos = i + 1
		}
		p.Organic = append(p.Organic, hub.OrganicResult{URL: r.Link, Title: r.Title, Snippet: r.Snippet, Position: pos})
	}
	for _, n := range resp.News {
		// serper reports relative dates ("3 hours ago"); ingestion stamps the fetch time
		p.News = append(p.News, hub.NewsArticle{Publisher: n.Source, Title: n.Title, URL: n.Link, Snippet: n.Snippet})
	}
	return p, nil
}
