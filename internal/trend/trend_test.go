package trend

import (
	"context"
	"testing"
	"time"

	"github.com/shereeef1/meme-generator/internal/search"
	"github.com/shereeef1/meme-generator/pkg/ratelimit"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeSearcher struct {
	results []search.Result
	calls   int
}

func (f *fakeSearcher) Search(context.Context, string, int) []search.Result {
	f.calls++
	return f.results
}

func newDetector(t *testing.T, results []search.Result) *Detector {
	t.Helper()
	d, err := New(&fakeSearcher{results: results}, nil, nil, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDetect_ScoresRecentPhrasesHigher(t *testing.T) {
	d := newDetector(t, []search.Result{
		{Title: "sustainable packaging boom today", URL: "https://t.example/1", Snippet: "sustainable packaging everywhere today"},
		{Title: "vintage logos return", URL: "https://t.example/2", Snippet: "vintage logos from May 1, 2024"},
	})

	res := d.Detect(context.Background(), "Acme", "gadgets")
	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}

	scores := map[string]int{}
	for _, c := range res.Items {
		scores[c.Phrase] = c.Score
	}
	// "sustainable packaging" appears twice in a today-dated result (3x
	// multiplier); "vintage logos" twice in a year-old one (1x).
	if scores["sustainable packaging"] <= scores["vintage logos"] {
		t.Errorf("expected recency boost: %v", scores)
	}
}

func TestDetect_ExcludesBrandAndCategoryWords(t *testing.T) {
	d := newDetector(t, []search.Result{
		{Title: "acme gadgets acme gadgets today", URL: "https://t.example/1", Snippet: "acme gadgets again today"},
		{Title: "eco friendly materials rising today", URL: "https://t.example/2", Snippet: "eco friendly materials today"},
	})

	res := d.Detect(context.Background(), "Acme", "gadgets")
	for _, c := range res.Items {
		if c.Phrase == "acme gadgets" || c.Phrase == "acme" || c.Phrase == "gadgets" {
			t.Errorf("brand/category phrase leaked: %q", c.Phrase)
		}
	}

	found := false
	for _, c := range res.Items {
		if c.Phrase == "eco friendly materials" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected real trend phrase, got %+v", res.Items)
	}
}

func TestDetect_DropsSingleMentions(t *testing.T) {
	d := newDetector(t, []search.Result{
		{Title: "quantum widgets mentioned once", URL: "https://t.example/1"},
	})

	res := d.Detect(context.Background(), "Acme", "")
	for _, c := range res.Items {
		if c.Score <= 1 {
			t.Errorf("score-1 phrase kept: %+v", c)
		}
	}
}

func TestDetect_CountsEachURLOnce(t *testing.T) {
	// The same page comes back for all three brand queries; its phrases
	// must be scored once, not once per query.
	d := newDetector(t, []search.Result{
		{Title: "solar chargers boom today", URL: "https://t.example/1", Snippet: "solar chargers everywhere"},
	})

	res := d.Detect(context.Background(), "Acme", "")
	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}
	for _, c := range res.Items {
		if c.Phrase == "solar chargers" && c.Score != 6 {
			t.Errorf("expected score 6 for a twice-mentioned phrase, got %d", c.Score)
		}
	}
	if len(res.Sources) != 1 {
		t.Errorf("expected 1 deduped source, got %d", len(res.Sources))
	}
}

func TestDetect_PacerStopsOnCancel(t *testing.T) {
	fs := &fakeSearcher{results: []search.Result{
		{Title: "eco packaging today", URL: "https://t.example/1"},
	}}
	d, err := New(fs, ratelimit.NewPacer(time.Millisecond, 2*time.Millisecond), nil,
		func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Detect(ctx, "Acme", "gadgets")
	if fs.calls != 1 {
		t.Errorf("expected the query loop to stop after cancellation, got %d calls", fs.calls)
	}
}

func TestQueries(t *testing.T) {
	want := []string{
		"Acme trends",
		"Acme latest news",
		"Acme innovation",
		"gadgets industry trends",
		"gadgets latest developments",
		"trends in gadgets market",
	}
	got := queries("Acme", "gadgets")
	if len(got) != len(want) {
		t.Fatalf("expected %d queries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := queries("Acme", ""); len(got) != 3 {
		t.Errorf("expected only brand queries without a category, got %v", got)
	}
}

func TestDetect_NoResults(t *testing.T) {
	d := newDetector(t, nil)
	res := d.Detect(context.Background(), "Acme", "gadgets")
	if res.Success {
		t.Fatal("expected failure with no search results")
	}
	if res.Err == nil {
		t.Fatal("expected an error")
	}
}

func TestDateClue(t *testing.T) {
	d := newDetector(t, nil)
	tests := []struct {
		text string
		want time.Time
	}{
		{"breaking news today", fixedNow},
		{"reported yesterday", fixedNow.AddDate(0, 0, -1)},
		{"published this week", fixedNow.AddDate(0, 0, -3)},
		{"from last month", fixedNow.AddDate(0, 0, -30)},
		{"posted on 2025-06-10", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)},
		{"posted on Jun 1, 2025", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"no clue at all", fixedNow.AddDate(0, 0, -60)},
	}
	for _, tt := range tests {
		if got := d.dateClue(tt.text, fixedNow); !got.Equal(tt.want) {
			t.Errorf("dateClue(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestExtractPhrases(t *testing.T) {
	phrases := extractPhrases("The Best Eco-Friendly Packaging!")
	want := map[string]bool{"eco": true, "friendly": true, "packaging": true, "eco friendly packaging": true}
	got := map[string]bool{}
	for _, p := range phrases {
		got[p] = true
	}
	for w := range want {
		if !got[w] {
			t.Errorf("missing phrase %q in %v", w, phrases)
		}
	}
	if got["the"] || got["best"] {
		t.Errorf("stopwords leaked: %v", phrases)
	}
}
