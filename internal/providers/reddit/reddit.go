// Package reddit reads Reddit's public search feed. It needs no API key.
package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
	"github.com/mohammad-safakhou/ideahub/internal/textutil"
)

const (
	defaultBaseURL = "https://www.reddit.com"
	defaultLimit   = 25
	maxFeedBytes   = 4 << 20
	maxContentLen  = 600
)

type Client struct {
	baseURL string
	limit   int
	http    *httpx.Client
	parser  *gofeed.Parser
}

func New(cfg config.ProviderConfig, hc *httpx.Client) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	limit := cfg.MaxResults
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{baseURL: base, limit: limit, http: hc, parser: gofeed.NewParser()}
}

func (c *Client) Fetch(ctx context.Context, query, _ string) (hub.Payload, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "relevance")
	params.Set("t", "year")
	params.Set("limit", strconv.Itoa(c.limit))
	headers := map[string]string{"Accept": "application/atom+xml, application/rss+xml, text/xml"}
	raw, err := c.http.GetBytes(ctx, "reddit", c.baseURL+"/search.rss?"+params.Encode(), headers, maxFeedBytes)
	if err != nil {
		return hub.Payload{}, err
	}
	feed, err := c.parser.ParseString(string(raw))
	if err != nil {
		return hub.Payload{}, fmt.Errorf("parse reddit feed: %w", err)
	}

	var p hub.Payload
	for _, it := range feed.Items {
		body := it.Content
		if body == "" {
			body = it.Description
		}
		content := strings.TrimSpace(it.Title + " " + textutil.Truncate(textutil.PlainText(body), maxContentLen))
		if content == "" {
			continue
		}
		rec := hub.SocialRecord{
			Source:   hub.SourceReddit,
			Platform: "reddit",
			Content:  content,
			URL:      it.Link,
		}
		if it.Author != nil {
			rec.Author = strings.TrimPrefix(it.Author.Name, "/u/")
		}
		switch {
		case it.PublishedParsed != nil:
			rec.Date = it.PublishedParsed.UTC()
		case it.UpdatedParsed != nil:
			rec.Date = it.UpdatedParsed.UTC()
		}
		p.Social = append(p.Social, rec)
	}
	return p, nil
}
