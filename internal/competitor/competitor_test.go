package competitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shereeef1/meme-generator/internal/search"
	"github.com/shereeef1/meme-generator/pkg/ratelimit"
)

type fakeSearcher struct {
	results map[string][]search.Result
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) []search.Result {
	f.queries = append(f.queries, query)
	for prefix, results := range f.results {
		if strings.HasPrefix(query, prefix) || strings.Contains(query, prefix) {
			return results
		}
	}
	return nil
}

func TestAnalyze_MinesWeightedCompetitors(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]search.Result{
		"Acme": {
			{Title: "Acme vs Globex: which is better?", URL: "https://a.example/1", Snippet: "Acme vs Globex in depth"},
			{Title: "Top Acme alternatives like Initech", URL: "https://a.example/2", Snippet: "alternatives include Initech"},
			{Title: "Brands like Hooli reviewed", URL: "https://a.example/3", Snippet: "brands like Hooli are rising"},
		},
	}}

	a, err := New(fs, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := a.Analyze(context.Background(), "Acme", "gadgets")
	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}
	if len(res.Competitors) == 0 {
		t.Fatal("expected mined competitors")
	}
	// "vs" mentions outweigh "like" mentions.
	if res.Competitors[0].Name != "Globex" {
		t.Errorf("expected Globex ranked first, got %+v", res.Competitors)
	}

	found := map[string]int{}
	for _, c := range res.Competitors {
		found[c.Name] = c.Mentions
	}
	if found["Globex"] <= found["Hooli"] {
		t.Errorf("expected vs-mention to outweigh list mention: %v", found)
	}
	if !strings.Contains(res.Text, "Top competitors of Acme") {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestAnalyze_CategoryQueriesIncluded(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]search.Result{
		"Acme": {{Title: "Acme vs Globex", URL: "https://a.example/1"}},
	}}
	a, _ := New(fs, nil, nil)
	a.Analyze(context.Background(), "Acme", "gadgets")

	joined := strings.Join(fs.queries, "\n")
	if !strings.Contains(joined, "top gadgets brands like Acme") || !strings.Contains(joined, "best gadgets companies") {
		t.Errorf("expected category queries, got %v", fs.queries)
	}
}

func TestMineCompetitors_AlternativesTo(t *testing.T) {
	votes := map[string]int{}
	mineCompetitors("Acme", "Looking for alternatives to: Globex this year", votes)
	if votes["Globex"] != 2 {
		t.Errorf("expected weight 2 for alternatives-to mention, got %v", votes)
	}

	votes = map[string]int{}
	mineCompetitors("Acme", "alternatives to Initech reviewed", votes)
	if votes["Initech"] != 2 {
		t.Errorf("expected weight 2 without the colon, got %v", votes)
	}
}

func TestMineCompetitors_ListMentions(t *testing.T) {
	votes := map[string]int{}
	mineCompetitors("Acme", "Asana, Trello and Wrike are the big names", votes)
	for _, name := range []string{"Asana", "Trello", "Wrike"} {
		if votes[name] != 1 {
			t.Errorf("expected 1 vote for listed name %s, got %v", name, votes)
		}
	}

	// Ampersand-joined pairs count too, and the brand itself never votes.
	votes = map[string]int{}
	mineCompetitors("Acme", "Acme & Globex compared", votes)
	if votes["Globex"] != 1 {
		t.Errorf("expected 1 vote for Globex, got %v", votes)
	}
	if _, ok := votes["Acme"]; ok {
		t.Errorf("brand leaked into votes: %v", votes)
	}
}

func TestAnalyze_PacerStopsOnCancel(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]search.Result{
		"Acme": {{Title: "Acme vs Globex", URL: "https://a.example/1"}},
	}}
	a, _ := New(fs, ratelimit.NewPacer(time.Millisecond, 2*time.Millisecond), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Analyze(ctx, "Acme", "gadgets")
	if len(fs.queries) != 1 {
		t.Errorf("expected the query loop to stop after cancellation, got %v", fs.queries)
	}
}

func TestAnalyze_AllQueriesEmpty(t *testing.T) {
	a, _ := New(&fakeSearcher{}, nil, nil)
	res := a.Analyze(context.Background(), "Acme", "")

	if res.Success {
		t.Fatal("expected failure when every query is empty")
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "rate limited") {
		t.Errorf("expected a rate limited style error, got %v", res.Err)
	}
}

func TestAnalyze_ExcludesBrandItself(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]search.Result{
		"Acme": {{Title: "Globex vs Acme", URL: "https://a.example/1", Snippet: "Acme vs Acme Pro"}},
	}}
	a, _ := New(fs, nil, nil)
	res := a.Analyze(context.Background(), "Acme", "")

	for _, c := range res.Competitors {
		if strings.Contains(strings.ToLower(c.Name), "acme") {
			t.Errorf("brand variant leaked into competitors: %q", c.Name)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]search.Result{
		"Acme": {{Title: "brands like Zeta and like Yotta here", URL: "https://a.example/1"}},
	}}
	a, _ := New(fs, nil, nil)

	first := a.Analyze(context.Background(), "Acme", "")
	for i := 0; i < 5; i++ {
		again := a.Analyze(context.Background(), "Acme", "")
		if len(again.Competitors) != len(first.Competitors) {
			t.Fatalf("run %d: differing lengths", i)
		}
		for j := range again.Competitors {
			if again.Competitors[j] != first.Competitors[j] {
				t.Fatalf("run %d: nondeterministic order %v vs %v", i, again.Competitors, first.Competitors)
			}
		}
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Globex", "Globex"},
		{"Globex Reviews", "Globex"},
		{"The", ""},
		{"X", ""},
	}
	for _, tt := range tests {
		if got := cleanName(tt.in); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
