// Package wikipedia scrapes Wikipedia for the encyclopedia view of a brand:
// summary, infobox facts and the leading sections of its article.
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shereeef1/meme-generator/internal/fetch"
	"github.com/shereeef1/meme-generator/internal/metrics"
	"github.com/shereeef1/meme-generator/pkg/retry"
)

// DefaultBaseURL is the English Wikipedia origin.
const DefaultBaseURL = "https://en.wikipedia.org"

// companyKeywords disambiguate brand articles from same-named topics.
var companyKeywords = []string{
	"company", "corporation", "brand", "business", "enterprise", "organization",
}

// Page holds the structured article content.
type Page struct {
	Title    string            `json:"title"`
	URL      string            `json:"url"`
	Summary  string            `json:"summary"`
	Infobox  map[string]string `json:"infobox,omitempty"`
	Sections map[string]string `json:"sections,omitempty"`
}

// Result is the outcome of one Wikipedia lookup. On failure Text stays
// empty so the caller can drop the block from the aggregate.
type Result struct {
	Success bool
	Page    *Page
	Text    string
	URL     string
	Err     error
}

// Client scrapes Wikipedia articles.
type Client struct {
	baseURL string
	fetcher *fetch.Fetcher
	retry   retry.Policy
	logger  *slog.Logger
}

// Config defines the setup for a wikipedia Client.
type Config struct {
	BaseURL string
	Fetcher *fetch.Fetcher
	Retry   retry.Policy
	Logger  *slog.Logger
}

// New creates a wikipedia client. The Fetcher is required.
func New(cfg Config) (*Client, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("wikipedia: fetcher is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetcher: cfg.Fetcher,
		retry:   cfg.Retry,
		logger:  cfg.Logger,
	}, nil
}

// Scrape looks up the article for a brand. It tries the direct article URL
// first, falls back to site search, and descends one level through a
// disambiguation page if needed.
func (c *Client) Scrape(ctx context.Context, brand string) Result {
	var out Result

	err := c.retry.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			metrics.RecordRetry("wikipedia")
		}

		page, err := c.lookup(ctx, brand)
		if err != nil {
			return err
		}
		out.Page = page
		return nil
	})
	if err != nil {
		c.logger.Warn("wikipedia lookup failed", "brand", brand, "error", err)
		out.Err = err
		return out
	}

	out.Success = true
	out.URL = out.Page.URL
	out.Text = formatPage(out.Page)
	return out
}

func (c *Client) lookup(ctx context.Context, brand string) (*Page, error) {
	title := strings.ReplaceAll(strings.TrimSpace(brand), " ", "_")
	page, err := c.fetchArticle(ctx, c.baseURL+"/wiki/"+url.PathEscape(title), brand)
	if err == nil {
		return page, nil
	}

	// Direct hit failed; ask the site search for candidates.
	path, searchErr := c.searchArticlePath(ctx, brand)
	if searchErr != nil {
		return nil, fmt.Errorf("article not found directly (%v) and search failed: %w", err, searchErr)
	}
	return c.fetchArticle(ctx, c.baseURL+path, brand)
}

// fetchArticle retrieves and parses one article URL, following at most one
// disambiguation hop.
func (c *Client) fetchArticle(ctx context.Context, articleURL, brand string) (*Page, error) {
	res := c.fetcher.Get(ctx, articleURL)
	if res.Error != "" {
		return nil, fmt.Errorf("wikipedia request failed: %s", res.Error)
	}
	if res.BotDetected {
		return nil, fmt.Errorf("wikipedia blocked the request (%s)", res.DetectionSrc)
	}
	if res.StatusCode == 404 {
		return nil, retry.Permanent(errors.New("article does not exist"))
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("wikipedia returned status %d", res.StatusCode)
	}

	// A redirect off /wiki/ means search or an error page, not an article.
	if !strings.Contains(res.FinalURL, "/wiki/") {
		return nil, retry.Permanent(errors.New("redirected off the article namespace"))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse article: %w", err))
	}

	pageTitle := strings.TrimSpace(doc.Find("#firstHeading").First().Text())
	if pageTitle == "" {
		return nil, retry.Permanent(errors.New("article has no heading"))
	}

	// A redirect is only trusted when the target still shares at least half
	// of the brand's words. "Acme" landing on "Acme (cartoon gag)" is fine,
	// "Apple" landing on "Fruit" is not.
	if !titleMatches(pageTitle, brand) {
		return nil, retry.Permanent(fmt.Errorf("redirected to unrelated article %q", pageTitle))
	}

	if isDisambiguation(doc) {
		target := disambiguationTarget(doc)
		if target == "" {
			return nil, retry.Permanent(errors.New("disambiguation page with no company entry"))
		}
		return c.fetchDisambiguated(ctx, c.baseURL+target, brand)
	}

	return parsePage(doc, pageTitle, res.FinalURL), nil
}

// fetchDisambiguated follows a single disambiguation link without allowing
// a further hop.
func (c *Client) fetchDisambiguated(ctx context.Context, articleURL, brand string) (*Page, error) {
	res := c.fetcher.Get(ctx, articleURL)
	if res.Error != "" {
		return nil, fmt.Errorf("wikipedia request failed: %s", res.Error)
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("wikipedia returned status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse article: %w", err))
	}

	pageTitle := strings.TrimSpace(doc.Find("#firstHeading").First().Text())
	if pageTitle == "" || isDisambiguation(doc) {
		return nil, retry.Permanent(errors.New("disambiguation did not resolve to an article"))
	}
	return parsePage(doc, pageTitle, res.FinalURL), nil
}

// searchArticlePath runs the site search and returns the article path of the
// most plausible hit among the top three. The link's href is what gets
// followed; display text can carry highlighting or context words that are
// not part of the real title.
func (c *Client) searchArticlePath(ctx context.Context, brand string) (string, error) {
	searchURL := fmt.Sprintf("%s/w/index.php?search=%s&title=Special:Search&fulltext=1",
		c.baseURL, url.QueryEscape(brand+" company"))

	res := c.fetcher.Get(ctx, searchURL)
	if res.Error != "" {
		return "", fmt.Errorf("wikipedia search failed: %s", res.Error)
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("wikipedia search returned status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to parse search page: %w", err))
	}

	brandWords := strings.Fields(strings.ToLower(brand))
	if len(brandWords) == 0 {
		return "", retry.Permanent(errors.New("empty brand name"))
	}
	firstWord := brandWords[0]
	var fallback string
	var found string
	doc.Find(".mw-search-result-heading a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= 3 {
			return false
		}
		href, ok := s.Attr("href")
		if !ok || !strings.HasPrefix(href, "/wiki/") {
			return true
		}
		title := strings.TrimSpace(s.Text())
		words := strings.Fields(strings.ToLower(title))

		hasBrandWord := false
		for _, w := range words {
			if strings.Trim(w, "().,") == firstWord {
				hasBrandWord = true
				break
			}
		}
		if !hasBrandWord {
			return true
		}

		if fallback == "" {
			fallback = href
		}
		for _, kw := range companyKeywords {
			if strings.Contains(strings.ToLower(title), kw) {
				found = href
				return false
			}
		}
		return true
	})

	if found != "" {
		return found, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", retry.Permanent(errors.New("no matching article in search results"))
}

// titleMatches requires at least half of the brand's words to appear in the
// article title.
func titleMatches(title, brand string) bool {
	brandWords := strings.Fields(strings.ToLower(brand))
	if len(brandWords) == 0 {
		return false
	}
	titleWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(title)) {
		titleWords[strings.Trim(w, "().,")] = struct{}{}
	}

	matched := 0
	for _, w := range brandWords {
		if _, ok := titleWords[w]; ok {
			matched++
		}
	}
	return matched*2 >= len(brandWords)
}

func isDisambiguation(doc *goquery.Document) bool {
	if doc.Find("#disambigbox, .dmbox-disambig").Length() > 0 {
		return true
	}
	intro := doc.Find(".mw-parser-output > p").First().Text()
	return strings.Contains(intro, "may refer to")
}

// disambiguationTarget picks the first list entry that looks like a company
// article. Returns the href path or empty.
func disambiguationTarget(doc *goquery.Document) string {
	var target string
	doc.Find(".mw-parser-output li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		for _, kw := range companyKeywords {
			if strings.Contains(text, kw) {
				if href, ok := s.Find("a").First().Attr("href"); ok && strings.HasPrefix(href, "/wiki/") {
					target = href
					return false
				}
			}
		}
		return true
	})
	return target
}

// citationRe matches inline citation markers like [3].
var citationRe = regexp.MustCompile(`\[\d+\]`)

var spaceRe = regexp.MustCompile(`\s+`)

// importantSections are the article sections worth keeping for brand
// research; everything else (References, External links and so on) is noise.
var importantSections = []string{"History", "Overview", "Products", "Services", "Business"}

// cleanText strips citation markers and collapses runs of whitespace.
func cleanText(s string) string {
	s = citationRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func parsePage(doc *goquery.Document, title, pageURL string) *Page {
	page := &Page{
		Title:    title,
		URL:      pageURL,
		Infobox:  map[string]string{},
		Sections: map[string]string{},
	}

	// Summary: the first substantial paragraphs before any section heading.
	var summary []string
	doc.Find(".mw-parser-output > p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if len(text) > 20 {
			summary = append(summary, text)
		}
		return len(summary) < 3
	})
	page.Summary = strings.Join(summary, "\n\n")

	doc.Find("table.infobox tr").Each(func(_ int, s *goquery.Selection) {
		key := strings.TrimSpace(s.Find("th").First().Text())
		val := cleanText(s.Find("td").First().Text())
		if key != "" && val != "" {
			page.Infobox[key] = val
		}
	})

	// Full content of the named sections; all other headings are dropped.
	doc.Find(".mw-parser-output h2").Each(func(_ int, s *goquery.Selection) {
		heading := strings.TrimSpace(s.Find(".mw-headline").Text())
		if heading == "" {
			heading = strings.TrimSpace(s.Text())
		}
		if !isImportantSection(heading) {
			return
		}

		var paras []string
		s.NextUntil("h2").Each(func(_ int, p *goquery.Selection) {
			if !p.Is("p") {
				return
			}
			if text := cleanText(p.Text()); text != "" {
				paras = append(paras, text)
			}
		})
		if len(paras) > 0 {
			page.Sections[heading] = strings.Join(paras, "\n")
		}
	})

	return page
}

func isImportantSection(heading string) bool {
	for _, name := range importantSections {
		if strings.Contains(heading, name) {
			return true
		}
	}
	return false
}

func formatPage(p *Page) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "URL: %s\n\n", p.URL)
	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteString("\n")
	}

	if len(p.Infobox) > 0 {
		b.WriteString("\nKey Facts:\n")
		keys := make([]string, 0, len(p.Infobox))
		for k := range p.Infobox {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, p.Infobox[k])
		}
	}

	if len(p.Sections) > 0 {
		names := make([]string, 0, len(p.Sections))
		for k := range p.Sections {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "\n%s:\n%s\n", name, p.Sections[name])
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
