package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shereeef1/meme-generator/internal/fetch"
	"github.com/shereeef1/meme-generator/internal/fingerprint"
	"github.com/shereeef1/meme-generator/pkg/retry"
)

const acmeArticle = `<html><body>
<h1 id="firstHeading">Acme Corporation</h1>
<div class="mw-parser-output">
<p>Acme Corporation is a fictional company that manufactures everything from anvils to rocket skates.[1]</p>
<p>The company appears throughout classic animation as the supplier of improbable devices.</p>
<table class="infobox">
<tr><th>Industry</th><td>Manufacturing</td></tr>
<tr><th>Founded</th><td>1920[2]</td></tr>
</table>
<h2><span class="mw-headline">History</span></h2>
<p>The company first appeared in early animated shorts and became a running gag.[3]</p>
<p>Later decades saw the name reused across unrelated productions.</p>
<h2><span class="mw-headline">Controversies</span></h2>
<p>Critics have questioned the safety record of its rocket products.</p>
<h2><span class="mw-headline">References</span></h2>
<p>Reference list here.</p>
</div>
</body></html>`

const disambigPage = `<html><body>
<h1 id="firstHeading">Acme</h1>
<div class="mw-parser-output">
<p>Acme may refer to:</p>
<ul>
<li><a href="/wiki/Acme_(band)">Acme (band)</a>, a music group</li>
<li><a href="/wiki/Acme_Corporation">Acme Corporation</a>, a fictional company</li>
</ul>
</div>
</body></html>`

const searchPage = `<html><body>
<div class="mw-search-result-heading"><a href="/wiki/Acme_(band)">Acme (band)</a></div>
<div class="mw-search-result-heading"><a href="/wiki/Acme_Corporation">Acme Corporation company</a></div>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f, err := fetch.NewFetcher(fetch.Config{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	c, err := New(Config{
		BaseURL: srv.URL,
		Fetcher: f,
		Retry:   retry.Policy{MaxAttempts: 2, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestScrape_DirectHit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wiki/Acme_Corporation" {
			fmt.Fprint(w, acmeArticle)
			return
		}
		http.NotFound(w, r)
	}))

	res := c.Scrape(context.Background(), "Acme Corporation")
	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}
	if res.Page.Title != "Acme Corporation" {
		t.Errorf("unexpected title %q", res.Page.Title)
	}
	if res.Page.Infobox["Industry"] != "Manufacturing" {
		t.Errorf("expected infobox industry, got %+v", res.Page.Infobox)
	}
	if res.Page.Infobox["Founded"] != "1920" {
		t.Errorf("expected citation marker stripped from infobox, got %q", res.Page.Infobox["Founded"])
	}
	history, ok := res.Page.Sections["History"]
	if !ok {
		t.Fatal("expected History section")
	}
	if !strings.Contains(history, "running gag") || !strings.Contains(history, "Later decades") {
		t.Errorf("expected full History content, got %q", history)
	}
	if _, ok := res.Page.Sections["Controversies"]; ok {
		t.Error("unlisted section should be dropped")
	}
	if _, ok := res.Page.Sections["References"]; ok {
		t.Error("References section should be skipped")
	}
	if !strings.Contains(res.Text, "fictional company") {
		t.Errorf("expected summary in text, got %q", res.Text)
	}
	for _, marker := range []string{"[1]", "[2]", "[3]"} {
		if strings.Contains(res.Text, marker) {
			t.Errorf("citation marker %s leaked into text", marker)
		}
	}
	if !strings.Contains(res.Text, "Key Facts:") {
		t.Error("expected infobox facts in text")
	}
}

func TestScrape_FallsBackToSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wiki/Acme":
			http.NotFound(w, r)
		case r.URL.Path == "/w/index.php":
			fmt.Fprint(w, searchPage)
		case r.URL.Path == "/wiki/Acme_Corporation":
			fmt.Fprint(w, acmeArticle)
		default:
			http.NotFound(w, r)
		}
	}))

	res := c.Scrape(context.Background(), "Acme")
	if !res.Success {
		t.Fatalf("expected success via search, err=%v", res.Err)
	}
	if res.Page.Title != "Acme Corporation" {
		t.Errorf("unexpected title %q", res.Page.Title)
	}
	// The result's href is followed, not its display text, which here
	// carries an extra context word that is not part of the title.
	if !strings.HasSuffix(res.URL, "/wiki/Acme_Corporation") {
		t.Errorf("expected article URL from search result href, got %q", res.URL)
	}
}

func TestScrape_DisambiguationDescent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wiki/Acme":
			fmt.Fprint(w, disambigPage)
		case "/wiki/Acme_Corporation":
			fmt.Fprint(w, acmeArticle)
		default:
			http.NotFound(w, r)
		}
	}))

	res := c.Scrape(context.Background(), "Acme")
	if !res.Success {
		t.Fatalf("expected success via disambiguation, err=%v", res.Err)
	}
	if res.Page.Title != "Acme Corporation" {
		t.Errorf("unexpected title %q", res.Page.Title)
	}
}

func TestScrape_RejectsUnrelatedRedirect(t *testing.T) {
	unrelated := strings.Replace(acmeArticle, "Acme Corporation</h1>", "Fruit</h1>", 1)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wiki/Apple_Computers_Global":
			fmt.Fprint(w, unrelated)
		case "/w/index.php":
			fmt.Fprint(w, "<html><body>no results</body></html>")
		default:
			http.NotFound(w, r)
		}
	}))

	res := c.Scrape(context.Background(), "Apple Computers Global")
	if res.Success {
		t.Fatal("expected failure for an unrelated redirect target")
	}
	if res.Text != "" {
		t.Errorf("failed lookup must leave Text empty, got %q", res.Text)
	}
}

func TestScrape_NotFoundAnywhere(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/w/index.php" {
			fmt.Fprint(w, "<html><body></body></html>")
			return
		}
		http.NotFound(w, r)
	}))

	res := c.Scrape(context.Background(), "Nonexistent Brand XYZ")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err == nil {
		t.Fatal("expected an error")
	}
}

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		title, brand string
		want         bool
	}{
		{"Acme Corporation", "Acme Corporation", true},
		{"Acme (company)", "Acme", true},
		{"Fruit", "Apple", false},
		{"Tata Consultancy Services", "Tata Consultancy", true},
	}
	for _, tt := range tests {
		if got := titleMatches(tt.title, tt.brand); got != tt.want {
			t.Errorf("titleMatches(%q, %q) = %v, want %v", tt.title, tt.brand, got, tt.want)
		}
	}
}
