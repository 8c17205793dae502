// Package news fetches top headlines from a news API, with a TTL cache and
// a daily request quota so research runs never burn through the API plan.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shereeef1/meme-generator/pkg/httpclient"
)

// DefaultBaseURL is the headline endpoint.
const DefaultBaseURL = "https://newsdata.io/api/1/latest"

// ErrQuotaExceeded is returned once the daily request budget is spent.
// Cached responses keep working.
var ErrQuotaExceeded = errors.New("news api daily quota exceeded")

// Article is one returned headline.
type Article struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	PubDate     string `json:"pub_date,omitempty"`
}

// Params select headlines. The zero value asks for general top headlines.
type Params struct {
	Country  string
	Category string
	Query    string
	Limit    int
}

// cacheKey must be comparable.
func (p Params) cacheKey() string {
	return strings.Join([]string{p.Country, p.Category, p.Query, strconv.Itoa(p.Limit)}, "|")
}

type cacheEntry struct {
	articles []Article
	fetched  time.Time
}

// Client fetches headlines with caching and quota accounting.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  *slog.Logger
	now     func() time.Time
	ttl     time.Duration

	mu        sync.Mutex
	cache     map[string]cacheEntry
	dailyMax  int
	usedToday int
	quotaDay  time.Time
}

// Config defines the setup for a news Client.
type Config struct {
	BaseURL string
	APIKey  string
	// TTL for cached responses. Defaults to 30 minutes.
	TTL time.Duration
	// DailyQuota caps API calls per UTC day. Defaults to 180.
	DailyQuota int
	Timeout    time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// New creates a news client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("news: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.DailyQuota <= 0 {
		cfg.DailyQuota = 180
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	hc, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		http:     hc,
		logger:   cfg.Logger,
		now:      cfg.Now,
		ttl:      cfg.TTL,
		cache:    make(map[string]cacheEntry),
		dailyMax: cfg.DailyQuota,
	}, nil
}

// TopHeadlines returns headlines for the params, from cache when fresh.
func (c *Client) TopHeadlines(ctx context.Context, p Params) ([]Article, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}
	key := p.cacheKey()

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && c.now().Sub(entry.fetched) < c.ttl {
		articles := entry.articles
		c.mu.Unlock()
		return articles, nil
	}
	if err := c.consumeQuota(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	articles, err := c.fetch(ctx, p)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{articles: articles, fetched: c.now()}
	c.mu.Unlock()
	return articles, nil
}

// consumeQuota spends one request from today's budget. Caller holds mu.
func (c *Client) consumeQuota() error {
	today := c.now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(c.quotaDay) {
		c.quotaDay = today
		c.usedToday = 0
	}
	if c.usedToday >= c.dailyMax {
		return ErrQuotaExceeded
	}
	c.usedToday++
	return nil
}

type apiResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		Description string   `json:"description"`
		SourceName  string   `json:"source_name"`
		PubDate     string   `json:"pubDate"`
		Creator     []string `json:"creator"`
	} `json:"results"`
}

func (c *Client) fetch(ctx context.Context, p Params) ([]Article, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	if p.Country != "" {
		q.Set("country", strings.ToLower(p.Country))
	}
	if p.Category != "" {
		q.Set("category", strings.ToLower(p.Category))
	}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	q.Set("size", strconv.Itoa(p.Limit))

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build news request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrQuotaExceeded
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news api returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, fmt.Errorf("news api status %q", body.Status)
	}

	articles := make([]Article, 0, len(body.Results))
	for _, r := range body.Results {
		if r.Title == "" {
			continue
		}
		articles = append(articles, Article{
			Title:       r.Title,
			Link:        r.Link,
			Description: r.Description,
			SourceName:  r.SourceName,
			PubDate:     r.PubDate,
		})
	}
	return articles, nil
}

// FilterForBrand keeps the articles that mention the brand in their title
// or description.
func FilterForBrand(articles []Article, brand string) []Article {
	needle := strings.ToLower(strings.TrimSpace(brand))
	if needle == "" {
		return articles
	}
	var out []Article
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title), needle) ||
			strings.Contains(strings.ToLower(a.Description), needle) {
			out = append(out, a)
		}
	}
	return out
}
