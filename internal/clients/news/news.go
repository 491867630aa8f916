// Package news fetches headlines from NewsAPI and subscribed RSS feeds.
//
// Headlines change slowly compared to how often a /news command is issued,
// so results go through the shared cache store: 15 minutes for NewsAPI and
// 30 minutes for RSS feeds.
package news

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alkaitz/telepilot/internal/cache"
	"github.com/alkaitz/telepilot/internal/metrics"
)

const (
	headlinesTTL = 15 * time.Minute
	feedTTL      = 30 * time.Minute
)

// Categories accepted by NewsAPI's top-headlines endpoint.
var Categories = []string{
	"general", "business", "technology", "science", "health", "sports", "entertainment",
}

var titleCaser = cases.Title(language.English)

// CategoryLabel renders a category slug for display ("technology" ->
// "Technology").
func CategoryLabel(category string) string {
	return titleCaser.String(category)
}

// Client fetches news from NewsAPI and arbitrary RSS feeds.
type Client struct {
	BaseURL string
	APIKey  string
	Country string
	HTTP    *http.Client

	store cache.Store
}

// New returns a Client. store may be nil to disable caching.
func New(apiKey string, store cache.Store) *Client {
	return &Client{
		BaseURL: "https://newsapi.org",
		APIKey:  apiKey,
		Country: "us",
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
	}
}

// Article is one headline, from either source.
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type headlinesResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Headlines returns up to limit top headlines for a category. An empty
// category means the general front page.
func (c *Client) Headlines(ctx context.Context, category string, limit int) ([]Article, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if limit <= 0 {
		limit = 5
	}

	key := fmt.Sprintf("news:%s:%s", c.Country, category)
	if b, ok := c.cached(ctx, key); ok {
		var out []Article
		if json.Unmarshal(b, &out) == nil {
			return clip(out, limit), nil
		}
	}

	q := url.Values{}
	q.Set("country", c.Country)
	q.Set("apiKey", c.APIKey)
	if category != "" {
		q.Set("category", category)
	}
	raw, err := c.fetch(ctx, c.BaseURL+"/v2/top-headlines?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var body headlinesResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("news: decode headlines: %w", err)
	}
	if body.Status != "ok" {
		return nil, fmt.Errorf("news: newsapi error: %s", body.Message)
	}

	out := make([]Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" {
			continue
		}
		out = append(out, Article{
			Title:       a.Title,
			Source:      a.Source.Name,
			URL:         a.URL,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
		})
	}
	c.remember(ctx, key, out, headlinesTTL)
	return clip(out, limit), nil
}

// rssFeed is the subset of RSS 2.0 the bot reads. Parsed with the standard
// encoding/xml decoder since the feeds involved are plain RSS and a full
// feed-parsing dependency would go unused.
type rssFeed struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// Feed fetches one RSS feed and returns up to limit items, newest as
// ordered by the feed itself.
func (c *Client) Feed(ctx context.Context, feedURL string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 5
	}

	key := feedKey(feedURL)
	if b, ok := c.cached(ctx, key); ok {
		var out []Article
		if json.Unmarshal(b, &out) == nil {
			return clip(out, limit), nil
		}
	}

	raw, err := c.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("news: parse feed %s: %w", feedURL, err)
	}

	out := make([]Article, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		a := Article{
			Title:  strings.TrimSpace(it.Title),
			Source: strings.TrimSpace(feed.Channel.Title),
			URL:    strings.TrimSpace(it.Link),
		}
		if t, err := parsePubDate(it.PubDate); err == nil {
			a.PublishedAt = t
		}
		if a.Title != "" {
			out = append(out, a)
		}
	}
	c.remember(ctx, key, out, feedTTL)
	return clip(out, limit), nil
}

// feedKey hashes the feed URL into a short fixed-length cache key.
func feedKey(feedURL string) string {
	h := fnv.New64a()
	_, _ = io.WriteString(h, feedURL)
	return fmt.Sprintf("rss:%x", h.Sum64())
}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("news: unrecognized pubDate %q", s)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news: upstream returned %d", resp.StatusCode)
	}
	return raw, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	b, ok := c.store.Get(ctx, key)
	if ok {
		metrics.CacheHits.WithLabelValues("news").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("news").Inc()
	}
	return b, ok
}

func (c *Client) remember(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		c.store.Set(ctx, key, b, ttl)
	}
}

func clip(a []Article, limit int) []Article {
	if len(a) > limit {
		return a[:limit]
	}
	return a
}
