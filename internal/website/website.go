// Package website scrapes a brand's own site for self-description: title,
// tagline, about copy and product names.
package website

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shereeef1/meme-generator/internal/fetch"
	"github.com/shereeef1/meme-generator/internal/metrics"
	"github.com/shereeef1/meme-generator/pkg/retry"
)

// minTextLength is the threshold below which an extraction counts as a
// failure. Pages behind JS shells or interstitials yield almost no text.
const minTextLength = 100

// CompanyInfo is the structured view of what the site says about itself.
type CompanyInfo struct {
	Website  string   `json:"website"`
	Name     string   `json:"name,omitempty"`
	Tagline  string   `json:"tagline,omitempty"`
	Products []string `json:"products,omitempty"`
}

// Result is the outcome of scraping one brand site.
type Result struct {
	Success bool
	Info    *CompanyInfo
	Text    string
	URL     string
	Err     error
}

// Client scrapes brand websites.
type Client struct {
	fetcher *fetch.Fetcher
	retry   retry.Policy
	logger  *slog.Logger
}

// Config defines the setup for a website Client.
type Config struct {
	Fetcher *fetch.Fetcher
	Retry   retry.Policy
	Logger  *slog.Logger
}

// New creates a website client. The Fetcher is required.
func New(cfg Config) (*Client, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("website: fetcher is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{fetcher: cfg.Fetcher, retry: cfg.Retry, logger: cfg.Logger}, nil
}

// Scrape fetches the site and extracts company text. If the homepage links
// to an about page, that page is fetched once and appended.
func (c *Client) Scrape(ctx context.Context, rawURL, brand string) Result {
	out := Result{URL: normalizeURL(rawURL)}
	if out.URL == "" {
		out.Err = fmt.Errorf("invalid website url %q", rawURL)
		return out
	}

	err := c.retry.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			metrics.RecordRetry("website")
		}

		res := c.fetcher.Get(ctx, out.URL)
		if res.Error != "" {
			return fmt.Errorf("website request failed: %s", res.Error)
		}
		if res.BotDetected {
			return fmt.Errorf("website blocked the request (%s)", res.DetectionSrc)
		}
		if res.StatusCode != 200 {
			return fmt.Errorf("website returned status %d", res.StatusCode)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to parse page: %w", err))
		}

		info, text := extract(doc, out.URL, brand)

		// An about page often carries the real company copy; fetch it once.
		if aboutURL := findAboutLink(doc, res.FinalURL); aboutURL != "" {
			if aboutText := c.scrapeAboutPage(ctx, aboutURL); aboutText != "" {
				text += "\n\n--- ABOUT PAGE ---\n" + aboutText
			}
		}

		if len(text) < minTextLength {
			return errors.New("insufficient text extracted")
		}

		out.Info = info
		out.Text = text
		return nil
	})
	if err != nil {
		c.logger.Warn("website scrape failed", "url", out.URL, "error", err)
		out.Err = err
		return out
	}

	out.Success = true
	return out
}

// scrapeAboutPage fetches the about page without retries. Failure here never
// fails the whole scrape.
func (c *Client) scrapeAboutPage(ctx context.Context, aboutURL string) string {
	res := c.fetcher.Get(ctx, aboutURL)
	if !res.OK() {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return ""
	}
	return extractParagraphs(doc, 20)
}

// normalizeURL ensures a scheme and validates the host.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.String()
}

func extract(doc *goquery.Document, pageURL, brand string) (*CompanyInfo, string) {
	info := &CompanyInfo{Website: pageURL}
	var blocks []string

	// Company name from the title, split on common separators.
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		name := title
		for _, sep := range []string{"|", " - ", "–"} {
			if idx := strings.Index(name, sep); idx > 0 {
				name = name[:idx]
				break
			}
		}
		info.Name = strings.TrimSpace(name)
		blocks = append(blocks, "Company: "+info.Name)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		desc = strings.TrimSpace(desc)
		if desc != "" {
			info.Tagline = desc
			blocks = append(blocks, "Tagline: "+desc)
		}
	}

	// About-ish blocks embedded in the homepage.
	aboutSel := `section[id*="about"], div[id*="about"], section[class*="about"], div[class*="about"]`
	doc.Find(aboutSel).Each(func(_ int, s *goquery.Selection) {
		s.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if len(text) > 20 {
				blocks = append(blocks, text)
			}
		})
	})

	// No dedicated about block: take the main content paragraphs.
	if len(blocks) <= 2 {
		if text := extractParagraphs(doc, 50); text != "" {
			blocks = append(blocks, text)
		}
	}

	// Product names from headings inside product-ish containers.
	prodSel := `section[id*="product"] h1, section[id*="product"] h2, section[id*="product"] h3, ` +
		`div[class*="product"] h1, div[class*="product"] h2, div[class*="product"] h3`
	seen := make(map[string]struct{})
	doc.Find(prodSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := strings.TrimSpace(s.Text())
		if name == "" || len(name) > 80 {
			return true
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			return true
		}
		seen[strings.ToLower(name)] = struct{}{}
		info.Products = append(info.Products, name)
		return len(info.Products) < 10
	})
	if len(info.Products) > 0 {
		blocks = append(blocks, "Products: "+strings.Join(info.Products, ", "))
	}

	return info, strings.Join(blocks, "\n\n")
}

// extractParagraphs pulls substantial paragraphs from the page's main
// content region, capped at max paragraphs.
func extractParagraphs(doc *goquery.Document, max int) string {
	var paras []string
	collect := func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len(text) > 20 {
			paras = append(paras, text)
		}
		return len(paras) < max
	}

	for _, sel := range []string{"main p", "article p", ".content p", "#content p", ".main-content p"} {
		doc.Find(sel).EachWithBreak(collect)
		if len(paras) > 0 {
			break
		}
	}
	if len(paras) == 0 {
		doc.Find("p").EachWithBreak(collect)
	}
	return strings.Join(paras, "\n\n")
}

// findAboutLink returns the absolute URL of an about page linked from the
// homepage, or empty.
func findAboutLink(doc *goquery.Document, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		lowerHref := strings.ToLower(href)
		lowerText := strings.ToLower(strings.TrimSpace(s.Text()))

		if !strings.Contains(lowerHref, "about") && !strings.Contains(lowerText, "about us") {
			return true
		}

		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(u)
		if resolved.Host != base.Host {
			return true
		}
		found = resolved.String()
		return false
	})
	return found
}
