// Package competitor mines search results for the names of a brand's
// competitors. The extraction is purely lexical: names that co-occur with
// the brand in "vs", "alternatives" and list phrasings, weighted by how
// strong the phrasing is.
package competitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/shereeef1/meme-generator/internal/search"
	"github.com/shereeef1/meme-generator/internal/source"
	"github.com/shereeef1/meme-generator/pkg/ratelimit"
)

// Searcher is the slice of the search client the analyzer needs.
type Searcher interface {
	Search(ctx context.Context, query string, max int) []search.Result
}

// Candidate is one mined competitor name with its weighted mention count.
type Candidate struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// Analysis aggregates the competitor mining for one brand.
type Analysis struct {
	Success     bool
	Competitors []Candidate
	Sources     []source.Ref
	Text        string
	Err         error
}

// Analyzer finds competitors via search queries.
type Analyzer struct {
	searcher Searcher
	pacer    *ratelimit.Pacer
	logger   *slog.Logger
}

// New creates an Analyzer. The Searcher is required; a nil pacer disables
// the inter-query delay.
func New(searcher Searcher, pacer *ratelimit.Pacer, logger *slog.Logger) (*Analyzer, error) {
	if searcher == nil {
		return nil, errors.New("competitor: searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{searcher: searcher, pacer: pacer, logger: logger}, nil
}

// queries builds the competitor query battery. Category queries are added
// when a category is known.
func queries(brand, category string) []string {
	qs := []string{
		fmt.Sprintf("%s competitors", brand),
		fmt.Sprintf("%s alternatives", brand),
		fmt.Sprintf("%s vs", brand),
	}
	if category != "" {
		qs = append(qs,
			fmt.Sprintf("top %s brands like %s", category, brand),
			fmt.Sprintf("best %s companies", category),
		)
	}
	return qs
}

// Analyze runs the query battery and mines competitor names from titles and
// snippets. It fails only when every query returned nothing.
func (a *Analyzer) Analyze(ctx context.Context, brand, category string) Analysis {
	var out Analysis
	votes := make(map[string]int)
	seen := make(map[string]struct{})

	anyResults := false
	for i, q := range queries(brand, category) {
		if i > 0 {
			if err := a.pacer.Wait(ctx); err != nil {
				break
			}
		}
		results := a.searcher.Search(ctx, q, 10)
		if len(results) == 0 {
			continue
		}
		anyResults = true

		for _, r := range results {
			mineCompetitors(brand, r.Title+" "+r.Snippet, votes)

			key := strings.ToLower(r.URL)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if len(out.Sources) < 10 {
				out.Sources = append(out.Sources, source.Ref{
					Type: "competitor-search", URL: r.URL, Query: q,
				})
			}
		}
	}

	if !anyResults {
		out.Err = errors.New("search unavailable or rate limited")
		return out
	}

	out.Competitors = rank(votes, 10)
	out.Success = true
	out.Text = formatAnalysis(brand, out.Competitors)
	return out
}

// mentionPatterns maps phrasing strength to a weighted vote. "X vs Y" is
// the strongest signal, "alternatives to X" weaker, bare list mentions
// weakest.
// nameExpr matches a capitalized name of up to three words. It stays
// case-sensitive even though the connectives around it are not, so
// lowercase filler never gets captured as part of a name.
const nameExpr = `([A-Z][A-Za-z0-9&'-]*(?:\s+[A-Z][A-Za-z0-9&'-]*){0,2})`

var mentionPatterns = []struct {
	weight  int
	pattern string
}{
	{3, `%s\s+[Vv][Ss]\.?\s+` + nameExpr},
	{3, nameExpr + `\s+[Vv][Ss]\.?\s+%s`},
	{2, `[Aa]lternatives?\s+to[:\s]\s*` + nameExpr},
	{2, `[Aa]lternatives?\s+(?:like|such as|include)\s+` + nameExpr},
	{1, `(?:[Ll]ike|[Ss]uch as|[Ii]ncluding)\s+` + nameExpr},
}

// listRe finds comma/"and"-joined runs of names; each listed name counts as
// one weak mention.
var (
	listNameExpr = `[A-Z][A-Za-z0-9&'-]*(?:\s+[A-Z][A-Za-z0-9&'-]*){0,2}`
	listRe       = regexp.MustCompile(
		listNameExpr + `(?:\s*,\s*` + listNameExpr + `)*\s*,?\s+(?:and|&)\s+` + listNameExpr)
	listSplitRe = regexp.MustCompile(`\s*(?:,|\band\b|&)\s*`)
)

// noiseWords are capitalized tokens that pattern-match like names but are
// never competitors.
var noiseWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "best": {}, "top": {}, "free": {},
	"review": {}, "reviews": {}, "comparison": {}, "compare": {},
	"which": {}, "what": {}, "other": {}, "others": {}, "more": {},
	"alternatives": {}, "competitors": {}, "vs": {},
}

// mineCompetitors extracts weighted competitor mentions from one block of
// text into votes.
func mineCompetitors(brand, text string, votes map[string]int) {
	quoted := regexp.QuoteMeta(brand)
	brandLower := strings.ToLower(brand)

	vote := func(raw string, weight int) {
		name := cleanName(raw)
		if name == "" {
			return
		}
		if strings.EqualFold(name, brand) || strings.Contains(strings.ToLower(name), brandLower) {
			return
		}
		votes[name] += weight
	}

	for _, mp := range mentionPatterns {
		p := mp.pattern
		if strings.Contains(p, "%s") {
			p = fmt.Sprintf(p, quoted)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			vote(m[1], mp.weight)
		}
	}

	for _, region := range listRe.FindAllString(text, -1) {
		for _, item := range listSplitRe.Split(region, -1) {
			vote(item, 1)
		}
	}
}

func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	words := strings.Fields(name)

	// Trim trailing noise words picked up by the capture.
	for len(words) > 0 {
		last := strings.ToLower(words[len(words)-1])
		if _, ok := noiseWords[last]; ok {
			words = words[:len(words)-1]
			continue
		}
		break
	}
	if len(words) == 0 {
		return ""
	}
	name = strings.Join(words, " ")
	if _, ok := noiseWords[strings.ToLower(name)]; ok {
		return ""
	}
	if len(name) < 2 || len(name) > 40 {
		return ""
	}
	return name
}

// rank orders candidates by mention count, name as tiebreak, and keeps the
// top n. The tiebreak keeps repeated runs deterministic.
func rank(votes map[string]int, n int) []Candidate {
	candidates := make([]Candidate, 0, len(votes))
	for name, count := range votes {
		candidates = append(candidates, Candidate{Name: name, Mentions: count})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Mentions != candidates[j].Mentions {
			return candidates[i].Mentions > candidates[j].Mentions
		}
		return candidates[i].Name < candidates[j].Name
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

func formatAnalysis(brand string, competitors []Candidate) string {
	if len(competitors) == 0 {
		return fmt.Sprintf("No direct competitors of %s were identified in search results.", brand)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top competitors of %s:\n", brand)
	for i, c := range competitors {
		fmt.Fprintf(&b, "%d. %s (%d mentions)\n", i+1, c.Name, c.Mentions)
	}
	return strings.TrimRight(b.String(), "\n")
}
