// Package trend mines search results for industry trend phrases. Phrases
// are n-grams from result titles and snippets, scored by frequency and
// boosted when the surrounding result looks recent.
package trend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shereeef1/meme-generator/internal/search"
	"github.com/shereeef1/meme-generator/internal/source"
	"github.com/shereeef1/meme-generator/pkg/ratelimit"
)

// Searcher is the slice of the search client the detector needs.
type Searcher interface {
	Search(ctx context.Context, query string, max int) []search.Result
}

// Candidate is one trend phrase with its recency-weighted score.
type Candidate struct {
	Phrase string `json:"phrase"`
	Score  int    `json:"score"`
}

// Trends aggregates the detection for one brand and category.
type Trends struct {
	Success bool
	Items   []Candidate
	Sources []source.Ref
	Text    string
	Err     error
}

// Detector mines trend phrases via search queries.
type Detector struct {
	searcher Searcher
	pacer    *ratelimit.Pacer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Detector. The Searcher is required; a nil pacer disables
// the inter-query delay; now defaults to time.Now and exists so tests can
// pin the clock.
func New(searcher Searcher, pacer *ratelimit.Pacer, logger *slog.Logger, now func() time.Time) (*Detector, error) {
	if searcher == nil {
		return nil, errors.New("trend: searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Detector{searcher: searcher, pacer: pacer, logger: logger, now: now}, nil
}

func queries(brand, category string) []string {
	qs := []string{
		fmt.Sprintf("%s trends", brand),
		fmt.Sprintf("%s latest news", brand),
		fmt.Sprintf("%s innovation", brand),
	}
	if category != "" {
		qs = append(qs,
			fmt.Sprintf("%s industry trends", category),
			fmt.Sprintf("%s latest developments", category),
			fmt.Sprintf("trends in %s market", category),
		)
	}
	return qs
}

// Detect runs the trend queries and mines phrases. Phrases made only of the
// brand or category's own words are excluded; they describe the subject,
// not a trend around it.
func (d *Detector) Detect(ctx context.Context, brand, category string) Trends {
	var out Trends
	scores := make(map[string]int)
	seen := make(map[string]struct{})

	anyResults := false
	for i, q := range queries(brand, category) {
		if i > 0 {
			if err := d.pacer.Wait(ctx); err != nil {
				break
			}
		}
		results := d.searcher.Search(ctx, q, 10)
		if len(results) == 0 {
			continue
		}
		anyResults = true

		// Mine each URL once; the same page surfacing under several
		// queries must not inflate its phrases.
		for _, r := range results {
			key := strings.ToLower(r.URL)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			text := r.Title + " " + r.Snippet
			mult := d.recencyMultiplier(text)
			for _, phrase := range extractPhrases(text) {
				scores[phrase] += mult
			}

			if len(out.Sources) < 10 {
				out.Sources = append(out.Sources, source.Ref{
					Type: "trend-search", URL: r.URL, Query: q,
				})
			}
		}
	}

	if !anyResults {
		out.Err = errors.New("search unavailable or rate limited")
		return out
	}

	exclude := wordSet(brand + " " + category)
	out.Items = rank(scores, exclude, 15, 10)
	out.Success = true
	out.Text = formatTrends(category, out.Items)
	return out
}

var explicitDatePatterns = []string{
	"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006", "2006-01-02",
}

var explicitDateRe = regexp.MustCompile(
	`(?:\d{4}-\d{2}-\d{2})|(?:(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})|(?:\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{4})`)

// recencyMultiplier infers how fresh a result is from date clues in its
// text: 3x when under a week old, 2x under a month, 1x otherwise.
func (d *Detector) recencyMultiplier(text string) int {
	now := d.now()
	when := d.dateClue(text, now)
	age := now.Sub(when)
	switch {
	case age < 7*24*time.Hour:
		return 3
	case age < 30*24*time.Hour:
		return 2
	default:
		return 1
	}
}

// dateClue extracts the best timestamp hint from the text. Relative words
// win over explicit dates because snippets quote them verbatim from the
// result page. Texts without any clue count as old.
func (d *Detector) dateClue(text string, now time.Time) time.Time {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "today") || strings.Contains(lower, "hours ago"):
		return now
	case strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1)
	case strings.Contains(lower, "this week"):
		return now.AddDate(0, 0, -3)
	case strings.Contains(lower, "last week"):
		return now.AddDate(0, 0, -7)
	case strings.Contains(lower, "this month"):
		return now.AddDate(0, 0, -15)
	case strings.Contains(lower, "last month"):
		return now.AddDate(0, 0, -30)
	}

	if m := explicitDateRe.FindString(text); m != "" {
		for _, layout := range explicitDatePatterns {
			if t, err := time.Parse(layout, m); err == nil {
				return t
			}
		}
	}

	return now.AddDate(0, 0, -60)
}

// stopwords filtered from phrase extraction.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "are": {}, "was": {},
	"this": {}, "that": {}, "from": {}, "have": {}, "has": {}, "will": {},
	"its": {}, "their": {}, "into": {}, "your": {}, "our": {}, "about": {},
	"more": {}, "most": {}, "how": {}, "why": {}, "what": {}, "when": {},
	"where": {}, "who": {}, "which": {}, "than": {}, "then": {}, "them": {},
	"they": {}, "you": {}, "all": {}, "can": {}, "not": {}, "but": {},
	"new": {}, "news": {}, "top": {}, "best": {}, "2024": {}, "2025": {},
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9\s]+`)

// extractPhrases lowercases, strips punctuation, drops stopwords and short
// tokens, and emits 1- to 4-grams over the surviving words.
func extractPhrases(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		words = append(words, w)
	}

	var phrases []string
	for n := 1; n <= 4; n++ {
		for i := 0; i+n <= len(words); i++ {
			phrases = append(phrases, strings.Join(words[i:i+n], " "))
		}
	}
	return phrases
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(s), " ")
	for _, w := range strings.Fields(cleaned) {
		set[w] = struct{}{}
	}
	return set
}

// rank keeps the top prelim phrases by score, drops phrases whose every
// word names the brand or category, drops scores of 1, and returns the
// top final candidates.
func rank(scores map[string]int, exclude map[string]struct{}, prelim, final int) []Candidate {
	candidates := make([]Candidate, 0, len(scores))
	for phrase, score := range scores {
		candidates = append(candidates, Candidate{Phrase: phrase, Score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Phrase < candidates[j].Phrase
	})
	if len(candidates) > prelim {
		candidates = candidates[:prelim]
	}

	out := make([]Candidate, 0, final)
	for _, c := range candidates {
		if c.Score <= 1 {
			continue
		}
		if allWordsIn(c.Phrase, exclude) {
			continue
		}
		out = append(out, c)
		if len(out) == final {
			break
		}
	}
	return out
}

func allWordsIn(phrase string, set map[string]struct{}) bool {
	for _, w := range strings.Fields(phrase) {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func formatTrends(category string, items []Candidate) string {
	subject := category
	if subject == "" {
		subject = "the industry"
	}
	if len(items) == 0 {
		return fmt.Sprintf("No notable trends detected for %s.", subject)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Current trends in %s:\n", subject)
	for i, c := range items {
		fmt.Fprintf(&b, "%d. %s (score %d)\n", i+1, c.Phrase, c.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}
