// Package search scrapes the DuckDuckGo HTML endpoint for brand research.
// The endpoint needs no API key but aggressively rate-limits automation, so
// every query goes through retry with rotated User-Agents and paced delays.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shereeef1/meme-generator/internal/fetch"
	"github.com/shereeef1/meme-generator/internal/metrics"
	"github.com/shereeef1/meme-generator/internal/source"
	"github.com/shereeef1/meme-generator/pkg/ratelimit"
	"github.com/shereeef1/meme-generator/pkg/retry"
)

// DefaultEndpoint is the HTML (non-JS) search frontend.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

// ErrRateLimited marks a query rejected by the search engine's bot
// protection after all retries.
var ErrRateLimited = errors.New("search rate limited")

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// QueryFailure records a query from a brand battery that produced nothing.
type QueryFailure struct {
	Query string `json:"query"`
	Error string `json:"error"`
}

// BrandResults aggregates the whole query battery for one brand.
type BrandResults struct {
	Success         bool
	Results         []Result
	Text            string
	Sources         []source.Ref
	PartialFailures []QueryFailure
	Err             error
}

// Client queries the search endpoint.
type Client struct {
	endpoint string
	fetcher  *fetch.Fetcher
	retry    retry.Policy
	pacer    *ratelimit.Pacer
	logger   *slog.Logger
}

// Config defines the setup for a search Client.
type Config struct {
	Endpoint string
	Fetcher  *fetch.Fetcher
	Retry    retry.Policy
	Pacer    *ratelimit.Pacer
	Logger   *slog.Logger
}

// New creates a search client. The Fetcher is required.
func New(cfg Config) (*Client, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("search: fetcher is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		endpoint: cfg.Endpoint,
		fetcher:  cfg.Fetcher,
		retry:    cfg.Retry,
		pacer:    cfg.Pacer,
		logger:   cfg.Logger,
	}, nil
}

// Search runs one query and returns up to max results. Failures degrade to
// an empty slice; callers that need the reason use SearchBrand.
func (c *Client) Search(ctx context.Context, query string, max int) []Result {
	results, err := c.search(ctx, query, max)
	if err != nil {
		c.logger.Warn("search query failed", "query", query, "error", err)
		return nil
	}
	return results
}

func (c *Client) search(ctx context.Context, query string, max int) ([]Result, error) {
	if max <= 0 {
		max = 10
	}

	var results []Result
	err := c.retry.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			metrics.RecordRetry("search")
			c.logger.Info("retrying search", "query", query, "attempt", attempt)
		}

		res := c.fetcher.PostForm(ctx, c.endpoint, url.Values{
			"q":  {query},
			"b":  {""},
			"kl": {"us-en"},
		})
		if res.Error != "" {
			return fmt.Errorf("search request failed: %s", res.Error)
		}
		if res.BotDetected {
			return fmt.Errorf("%w (%s)", ErrRateLimited, res.DetectionSrc)
		}
		if res.StatusCode != 200 {
			return fmt.Errorf("search returned status %d", res.StatusCode)
		}

		parsed, err := parseResults(res.Body, max)
		if err != nil {
			return retry.Permanent(err)
		}
		if len(parsed) == 0 {
			return errors.New("no results parsed")
		}
		results = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// brandQueries is the battery run for every brand research request, each
// query covering a different aspect of the brand.
func brandQueries(brand string) []string {
	return []string{
		fmt.Sprintf("%s official website", brand),
		fmt.Sprintf("%s company about", brand),
		fmt.Sprintf("%s history company", brand),
		fmt.Sprintf("%s products services", brand),
		fmt.Sprintf("%s customers reviews", brand),
	}
}

// SearchBrand runs the full query battery for a brand and merges the hits.
// Individual query failures are recorded as partial failures; the whole
// battery fails only when every query came back empty.
func (c *Client) SearchBrand(ctx context.Context, brand string, maxPerQuery int) BrandResults {
	var out BrandResults

	seen := make(map[string]struct{})
	for i, query := range brandQueries(brand) {
		if i > 0 {
			if err := c.pacer.Wait(ctx); err != nil {
				out.PartialFailures = append(out.PartialFailures, QueryFailure{
					Query: query, Error: err.Error(),
				})
				break
			}
		}

		results, err := c.search(ctx, query, maxPerQuery)
		if err != nil {
			out.PartialFailures = append(out.PartialFailures, QueryFailure{
				Query: query, Error: err.Error(),
			})
			if out.Err == nil && errors.Is(err, ErrRateLimited) {
				out.Err = err
			}
			continue
		}

		for _, r := range results {
			key := strings.ToLower(r.URL)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out.Results = append(out.Results, r)
			out.Sources = append(out.Sources, source.Ref{
				Type: "search", URL: r.URL, Query: query,
			})
		}
	}

	if len(out.Results) == 0 {
		out.Success = false
		if out.Err == nil {
			out.Err = errors.New("search unavailable or rate limited")
		}
		return out
	}

	sortByRelevance(out.Results, brand)
	out.Success = true
	out.Err = nil
	out.Text = formatResults(out.Results)
	return out
}

// sortByRelevance orders results so that pages naming the brand in the
// title or URL come first, with "official" pages boosted further.
func sortByRelevance(results []Result, brand string) {
	lower := strings.ToLower(brand)
	score := func(r Result) int {
		s := 0
		if strings.Contains(strings.ToLower(r.Title), lower) {
			s += 2
		}
		if strings.Contains(strings.ToLower(r.URL), strings.ReplaceAll(lower, " ", "")) {
			s += 2
		}
		if strings.Contains(strings.ToLower(r.Title), "official") ||
			strings.Contains(strings.ToLower(r.Snippet), "official") {
			s++
		}
		return s
	}
	sort.SliceStable(results, func(i, j int) bool {
		return score(results[i]) > score(results[j])
	})
}

func formatResults(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   URL: %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseResults extracts organic hits from the HTML result page.
func parseResults(body []byte, max int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())

		u := unwrapRedirect(href)
		if u == "" || title == "" {
			return true
		}

		results = append(results, Result{Title: title, URL: u, Snippet: snippet})
		return len(results) < max
	})
	return results, nil
}

// unwrapRedirect resolves the engine's /l/?uddg= redirect wrapper back to
// the destination URL.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if uddg := u.Query().Get("uddg"); uddg != "" {
		if dest, err := url.QueryUnescape(uddg); err == nil {
			return dest
		}
	}

	if u.Scheme == "" {
		return ""
	}
	return href
}
