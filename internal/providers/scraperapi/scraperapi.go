// Package scraperapi adapts ScraperAPI: a structured Google search followed,
// for deep purposes, by full-page scrapes of the top results.
package scraperapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
	"github.com/mohammad-safakhou/ideahub/internal/providers/pagescan"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL     = "https://api.scraperapi.com"
	defaultScrapePages = 3
	maxPageBytes       = 2 << 20
)

type Client struct {
	apiKey      string
	baseURL     string
	scrapePages int
	http        *httpx.Client
}

func New(cfg config.ProviderConfig, hc *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("scraperapi api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	pages := cfg.ScrapePages
	if pages <= 0 {
		pages = defaultScrapePages
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, scrapePages: pages, http: hc}, nil
}

type searchResponse struct {
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

func (c *Client) Fetch(ctx context.Context, query, purpose string) (hub.Payload, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	var resp searchResponse
	if err := c.http.GetJSON(ctx, "scraperapi", c.baseURL+"/structured/google/search?"+params.Encode(), nil, &resp); err != nil {
		return hub.Payload{}, err
	}
	var p hub.Payload
	for i, r := range resp.OrganicResults {
		pos := r.Position
		if pos <= 0 {
			pos = i + 1
		}
		p.Organic = append(p.Organic, hub.OrganicResult{URL: r.Link, Title: r.Title, Snippet: r.Snippet, Position: pos})
	}

	competitors := strings.Contains(purpose, "competitor")
	pricing := strings.Contains(purpose, "pricing")
	if !competitors && !pricing {
		return p, nil
	}

	pages := c.scrapeTop(ctx, p.Organic)
	if competitors {
		// scraped results are reported as competitors only, never twice
		scraped := make(map[string]struct{}, len(pages))
		for _, pg := range pages {
			scraped[pg.URL] = struct{}{}
			p.Competitors = append(p.Competitors, pg.Competitor())
		}
		kept := p.Organic[:0]
		for _, r := range p.Organic {
			if _, ok := scraped[r.URL]; !ok {
				kept = append(kept, r)
			}
		}
		p.Organic = kept
	}
	for _, pg := range pages {
		p.Prices = append(p.Prices, pg.PriceRecords()...)
	}
	return p, nil
}

// scrapeTop fetches the first scrapePages results through the scraping
// endpoint. Pages that fail to load or parse are skipped.
func (c *Client) scrapeTop(ctx context.Context, results []hub.OrganicResult) []pagescan.Page {
	n := c.scrapePages
	if n > len(results) {
		n = len(results)
	}
	pages := make([]*pagescan.Page, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i, target := i, results[i].URL
		g.Go(func() error {
			params := url.Values{}
			params.Set("api_key", c.apiKey)
			params.Set("url", target)
			body, err := c.http.GetBytes(gctx, "scraperapi", c.baseURL+"/?"+params.Encode(), map[string]string{"Accept": "text/html"}, maxPageBytes)
			if err != nil {
				return nil
			}
			pg, err := pagescan.FromHTML(body, target)
			if err != nil {
				return nil
			}
			pages[i] = pg
			return nil
		})
	}
	_ = g.Wait()
	out := make([]pagescan.Page, 0, n)
	for _, pg := range pages {
		if pg != nil {
			out = append(out, *pg)
		}
	}
	return out
}
