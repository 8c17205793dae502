// Package research orchestrates a full brand research run: encyclopedia
// lookup, web search, the brand's own site, competitor mining and trend
// detection, merged into one raw-text document with provenance.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shereeef1/meme-generator/internal/competitor"
	"github.com/shereeef1/meme-generator/internal/docstore"
	"github.com/shereeef1/meme-generator/internal/metrics"
	"github.com/shereeef1/meme-generator/internal/search"
	"github.com/shereeef1/meme-generator/internal/source"
	"github.com/shereeef1/meme-generator/internal/trend"
	"github.com/shereeef1/meme-generator/internal/website"
	"github.com/shereeef1/meme-generator/internal/wikipedia"
)

// remediationMessage is surfaced to the user when every source fails.
const remediationMessage = "Unable to research this brand. Please try a different brand name or try again later."

// WikipediaClient is the slice of the wikipedia client the coordinator uses.
type WikipediaClient interface {
	Scrape(ctx context.Context, brand string) wikipedia.Result
}

// BrandSearcher runs single queries and the brand query battery.
type BrandSearcher interface {
	Search(ctx context.Context, query string, max int) []search.Result
	SearchBrand(ctx context.Context, brand string, maxPerQuery int) search.BrandResults
}

// WebsiteClient scrapes a brand site.
type WebsiteClient interface {
	Scrape(ctx context.Context, url, brand string) website.Result
}

// CompetitorAnalyzer mines competitors.
type CompetitorAnalyzer interface {
	Analyze(ctx context.Context, brand, category string) competitor.Analysis
}

// TrendDetector mines industry trends.
type TrendDetector interface {
	Detect(ctx context.Context, brand, category string) trend.Trends
}

// Request describes one research run.
type Request struct {
	BrandName          string `json:"brand_name"`
	Category           string `json:"category,omitempty"`
	Country            string `json:"country,omitempty"`
	IncludeCompetitors bool   `json:"include_competitors,omitempty"`
	IncludeTrends      bool   `json:"include_trends,omitempty"`
}

// Failure records one source that contributed nothing.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Aggregate is the merged outcome of a research run.
type Aggregate struct {
	Success         bool                   `json:"success"`
	BrandName       string                 `json:"brand_name"`
	Category        string                 `json:"category,omitempty"`
	Country         string                 `json:"country,omitempty"`
	RawText         string                 `json:"raw_text,omitempty"`
	Sources         []source.Ref           `json:"sources,omitempty"`
	Competitors     []competitor.Candidate `json:"competitors,omitempty"`
	Trends          []trend.Candidate      `json:"trends,omitempty"`
	PartialFailures []Failure              `json:"partial_failures,omitempty"`
	DocumentPath    string                 `json:"document_path,omitempty"`
	Warning         string                 `json:"warning,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Message         string                 `json:"message,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// Config wires a Coordinator. Wikipedia, Search and Website are required;
// Competitors and Trends may be nil when those phases are never requested.
type Config struct {
	Wikipedia   WikipediaClient
	Search      BrandSearcher
	Website     WebsiteClient
	Competitors CompetitorAnalyzer
	Trends      TrendDetector
	Store       docstore.Store
	Logger      *slog.Logger
	Now         func() time.Time
	// MaxResultsPerQuery caps each search query. Defaults to 10.
	MaxResultsPerQuery int
}

// Coordinator runs research requests.
type Coordinator struct {
	cfg Config
}

// New validates the configuration and returns a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Wikipedia == nil || cfg.Search == nil || cfg.Website == nil {
		return nil, errors.New("research: wikipedia, search and website clients are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = 10
	}
	return &Coordinator{cfg: cfg}, nil
}

// Run executes the research phases in a fixed order and merges what
// succeeded. Any single source may fail without failing the run; the run
// fails only when no source produced anything.
func (c *Coordinator) Run(ctx context.Context, req Request) Aggregate {
	start := c.cfg.Now()
	agg := Aggregate{
		BrandName: strings.TrimSpace(req.BrandName),
		Category:  strings.TrimSpace(req.Category),
		Country:   strings.TrimSpace(req.Country),
		Timestamp: start,
	}
	if agg.BrandName == "" {
		agg.Error = "brand name is required"
		return agg
	}

	log := c.cfg.Logger.With("brand", agg.BrandName)
	log.Info("starting brand research", "category", agg.Category, "country", agg.Country)

	var blocks []string
	anySuccess := false
	rateLimited := false

	// Phase 1: Wikipedia.
	wres := c.cfg.Wikipedia.Scrape(ctx, agg.BrandName)
	if wres.Success {
		blocks = append(blocks, "=== WIKIPEDIA INFORMATION ===\n"+wres.Text)
		agg.Sources = append(agg.Sources, source.Ref{Type: "wikipedia", URL: wres.URL})
		anySuccess = true
	} else {
		agg.PartialFailures = append(agg.PartialFailures, Failure{
			Source: "wikipedia", Error: errString(wres.Err),
		})
	}

	// Phase 2: one exploratory query to surface the brand's own site.
	officialURL := ""
	if hits := c.cfg.Search.Search(ctx, agg.BrandName+" official website", 3); len(hits) > 0 {
		officialURL = findOfficialURL(hits, agg.BrandName)
	}

	// Phase 3: the brand's own site, when the exploratory query surfaced it.
	if officialURL != "" {
		log.Info("scraping likely official website", "url", officialURL)
		if c.scrapeWebsite(ctx, officialURL, &agg, &blocks) {
			anySuccess = true
		}
	}

	// Phase 4: the broader search battery.
	sres := c.cfg.Search.SearchBrand(ctx, agg.BrandName, c.cfg.MaxResultsPerQuery)
	if sres.Success {
		banner := "=== SEARCH RESULTS ==="
		if len(sres.PartialFailures) > 0 {
			banner += " (Partial)"
		}
		blocks = append(blocks, banner+"\n"+sres.Text)
		agg.Sources = append(agg.Sources, sres.Sources...)
		anySuccess = true
	} else {
		agg.PartialFailures = append(agg.PartialFailures, Failure{
			Source: "search", Error: errString(sres.Err),
		})
		if errors.Is(sres.Err, search.ErrRateLimited) ||
			strings.Contains(errString(sres.Err), "rate limited") {
			rateLimited = true
		}
	}
	for _, pf := range sres.PartialFailures {
		agg.PartialFailures = append(agg.PartialFailures, Failure{
			Source: "search:" + pf.Query, Error: pf.Error,
		})
	}

	// Phase 5: competitors.
	if req.IncludeCompetitors && c.cfg.Competitors != nil {
		cres := c.cfg.Competitors.Analyze(ctx, agg.BrandName, agg.Category)
		if cres.Success {
			blocks = append(blocks, "=== COMPETITOR ANALYSIS ===\n"+cres.Text)
			agg.Competitors = cres.Competitors
			agg.Sources = append(agg.Sources, cres.Sources...)
			anySuccess = true
		} else {
			agg.PartialFailures = append(agg.PartialFailures, Failure{
				Source: "competitors", Error: errString(cres.Err),
			})
			if strings.Contains(errString(cres.Err), "rate limited") {
				blocks = append(blocks, "=== COMPETITOR ANALYSIS ===\nCompetitor data unavailable: search was rate limited.")
			}
		}
	}

	// Phase 6: industry trends.
	if req.IncludeTrends && c.cfg.Trends != nil {
		tres := c.cfg.Trends.Detect(ctx, agg.BrandName, agg.Category)
		if tres.Success {
			blocks = append(blocks, "=== INDUSTRY TRENDS ===\n"+tres.Text)
			agg.Trends = tres.Items
			agg.Sources = append(agg.Sources, tres.Sources...)
			anySuccess = true
		} else {
			agg.PartialFailures = append(agg.PartialFailures, Failure{
				Source: "trends", Error: errString(tres.Err),
			})
			if strings.Contains(errString(tres.Err), "rate limited") {
				blocks = append(blocks, "=== INDUSTRY TRENDS ===\nTrend data unavailable: search was rate limited.")
			}
		}
	}

	// Last resort: nothing worked even though a site was surfaced, so try
	// the conventional domain directly. A best-effort extra, so its own
	// failure is not recorded.
	if !anySuccess && officialURL != "" {
		guessed := "https://www." + domainSlug(agg.BrandName) + ".com"
		log.Info("all sources failed, trying guessed website", "url", guessed)
		if res := c.cfg.Website.Scrape(ctx, guessed, agg.BrandName); res.Success {
			blocks = append(blocks, "=== WEBSITE INFORMATION ===\n"+res.Text)
			agg.Sources = append(agg.Sources, source.Ref{Type: "website", URL: res.URL})
			anySuccess = true
		}
	}

	duration := c.cfg.Now().Sub(start)
	if !anySuccess {
		agg.Error = "all data sources failed"
		agg.Message = remediationMessage
		if rateLimited {
			agg.Warning = "search engine rate limiting detected"
		}
		metrics.RecordResearch(false, len(agg.PartialFailures), duration)
		log.Warn("brand research failed", "failures", len(agg.PartialFailures))
		return agg
	}

	agg.Success = true
	agg.RawText = strings.Join(blocks, "\n\n")
	agg.Sources = source.DedupeRefs(agg.Sources)
	if len(agg.PartialFailures) > 0 {
		agg.Warning = "some sources were unavailable; results may be incomplete"
	}

	c.saveDocument(ctx, &agg)

	metrics.RecordResearch(true, len(agg.PartialFailures), duration)
	log.Info("brand research complete",
		"sources", len(agg.Sources),
		"partial_failures", len(agg.PartialFailures),
		"document", agg.DocumentPath)
	return agg
}

// scrapeWebsite runs the website phase against one URL, appending the block
// and source on success and a failure record otherwise.
func (c *Coordinator) scrapeWebsite(ctx context.Context, url string, agg *Aggregate, blocks *[]string) bool {
	res := c.cfg.Website.Scrape(ctx, url, agg.BrandName)
	if !res.Success {
		agg.PartialFailures = append(agg.PartialFailures, Failure{
			Source: "website", Error: errString(res.Err),
		})
		return false
	}
	*blocks = append(*blocks, "=== WEBSITE INFORMATION ===\n"+res.Text)
	agg.Sources = append(agg.Sources, source.Ref{Type: "website", URL: res.URL})
	return true
}

// saveDocument persists the raw text through the configured store. Failure
// to save degrades to a warning; the research result is still returned.
func (c *Coordinator) saveDocument(ctx context.Context, agg *Aggregate) {
	if c.cfg.Store == nil || agg.RawText == "" {
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.txt",
		fileSlug(agg.BrandName),
		c.cfg.Now().Format("20060102_150405"),
		uuid.NewString()[:8])

	path, err := c.cfg.Store.SaveText(ctx, agg.RawText, filename, agg.Category, agg.Country)
	if err != nil {
		c.cfg.Logger.Warn("failed to save research document", "error", err)
		if agg.Warning == "" {
			agg.Warning = "research completed but the document could not be saved"
		}
		return
	}
	agg.DocumentPath = path
}

// findOfficialURL scans search hits for the brand's own site: any word of
// the brand name in the URL, excluding aggregator and social domains.
// Multi-word brands rarely use their full name as a domain, so a single
// token is enough.
func findOfficialURL(results []search.Result, brand string) string {
	terms := strings.Fields(strings.ToLower(brand))
	if len(terms) == 0 {
		return ""
	}
	excluded := []string{
		"wikipedia.org", "linkedin.com", "facebook.com", "twitter.com",
		"x.com", "instagram.com", "youtube.com", "crunchbase.com",
	}

	for _, r := range results {
		lower := strings.ToLower(r.URL)
		skip := false
		for _, ex := range excluded {
			if strings.Contains(lower, ex) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		for _, term := range terms {
			if strings.Contains(lower, term) {
				return r.URL
			}
		}
	}
	return ""
}

// domainSlug lowers the brand and strips everything but letters and digits,
// the shape brand domains usually take.
func domainSlug(brand string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(brand) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fileSlug keeps the brand readable in filenames: lowercased with word
// separators collapsed to underscores.
func fileSlug(brand string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(brand)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
