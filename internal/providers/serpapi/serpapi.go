// Package serpapi adapts SerpApi's Google Trends and Google search engines.
// One fetch issues the trends timeseries, related queries and an organic
// search; the fetch fails only when all three do.
package serpapi

import (
	"context"
	"errors"
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
	defaultBaseURL    = "https://serpapi.com"
	defaultMaxResults = 10
	breakoutValue     = "breakout"
)

type Client struct {
	apiKey  string
	baseURL string
	num     int
	http    *httpx.Client
}

func New(cfg config.ProviderConfig, hc *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("serpapi api key is required")
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

type timeseriesResponse struct {
	Error            string `json:"error"`
	InterestOverTime struct {
		TimelineData []struct {
			Date      string `json:"date"`
			Timestamp string `json:"timestamp"`
			Values    []struct {
				Query          string  `json:"query"`
				ExtractedValue float64 `json:"extracted_value"`
			} `json:"values"`
		} `json:"timeline_data"`
	} `json:"interest_over_time"`
}

type relatedQuery struct {
	Query string `json:"query"`
	Value string `json:"value"`
}

type relatedResponse struct {
	Error          string `json:"error"`
	RelatedQueries struct {
		Rising []relatedQuery `json:"rising"`
		Top    []relatedQuery `json:"top"`
	} `json:"related_queries"`
}

type organicResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

func (c *Client) Fetch(ctx context.Context, query, _ string) (hub.Payload, error) {
	trends := &hub.TrendsMetrics{Keyword: query}
	var p hub.Payload
	var errs []error

	if err := c.timeseries(ctx, query, trends); err != nil {
		errs = append(errs, err)
	}
	related := true
	if err := c.related(ctx, query, trends); err != nil {
		errs = append(errs, err)
		related = false
	}
	organic, err := c.organic(ctx, query)
	if err != nil {
		errs = append(errs, err)
	}
	p.Organic = organic

	if len(errs) == 3 {
		return hub.Payload{}, errors.Join(errs...)
	}
	if len(trends.InterestOverTime) > 0 || related {
		p.Trends = trends
	}
	return p, nil
}

func (c *Client) url(params url.Values) string {
	params.Set("api_key", c.apiKey)
	return c.baseURL + "/search.json?" + params.Encode()
}

func (c *Client) timeseries(ctx context.Context, query string, out *hub.TrendsMetrics) error {
	params := url.Values{}
	params.Set("engine", "google_trends")
	params.Set("q", query)
	params.Set("data_type", "TIMESERIES")
	var resp timeseriesResponse
	if err := c.http.GetJSON(ctx, "serpapi", c.url(params), nil, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("serpapi trends: %s", resp.Error)
	}
	for _, d := range resp.InterestOverTime.TimelineData {
		if len(d.Values) == 0 {
			continue
		}
		out.InterestOverTime = append(out.InterestOverTime, hub.TrendPoint{
			Date:  pointDate(d.Timestamp, d.Date),
			Value: d.Values[0].ExtractedValue,
		})
	}
	return nil
}

func (c *Client) related(ctx context.Context, query string, out *hub.TrendsMetrics) error {
	params := url.Values{}
	params.Set("engine", "google_trends")
	params.Set("q", query)
	params.Set("data_type", "RELATED_QUERIES")
	var resp relatedResponse
	if err := c.http.GetJSON(ctx, "serpapi", c.url(params), nil, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("serpapi related queries: %s", resp.Error)
	}
	for _, q := range resp.RelatedQueries.Rising {
		out.RelatedQueries = append(out.RelatedQueries, q.Query)
		if strings.EqualFold(strings.TrimSpace(q.Value), breakoutValue) {
			out.BreakoutTerms = append(out.BreakoutTerms, q.Query)
		}
	}
	for _, q := range resp.RelatedQueries.Top {
		out.RelatedQueries = append(out.RelatedQueries, q.Query)
	}
	return nil
}

func (c *Client) organic(ctx context.Context, query string) ([]hub.OrganicResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.num))
	var resp organicResponse
	if err := c.http.GetJSON(ctx, "serpapi", c.url(params), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi search: %s", resp.Error)
	}
	out := make([]hub.OrganicResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		out = append(out, hub.OrganicResult{URL: r.Link, Title: r.Title, Snippet: r.Snippet, Position: r.Position})
	}
	return out, nil
}

// pointDate prefers the unix timestamp, formatted as a day, over the
// human-readable range label.
func pointDate(ts, label string) string {
	if sec, err := strconv.ParseInt(ts, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC().Format("2006-01-02")
	}
	return label
}
