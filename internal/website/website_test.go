package website

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shereeef1/meme-generator/internal/bypass"
	"github.com/shereeef1/meme-generator/internal/fetch"
	"github.com/shereeef1/meme-generator/internal/fingerprint"
	"github.com/shereeef1/meme-generator/pkg/retry"
)

const homePage = `<html><head>
<title>Acme Corp | Everything for Everyone</title>
<meta name="description" content="Acme builds anvils, rockets and more.">
</head><body>
<a href="/about">About Us</a>
<section id="about-acme">
<p>Acme Corp has been manufacturing improbable devices since 1920, serving customers worldwide.</p>
</section>
<div class="products">
<h2>Rocket Skates</h2>
<h2>Portable Holes</h2>
<h2>Rocket Skates</h2>
</div>
</body></html>`

const aboutPage = `<html><body><main>
<p>Our mission is to supply every coyote with the tools they need to succeed in the desert.</p>
</main></body></html>`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	f, err := fetch.NewFetcher(fetch.Config{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		Detectors:   bypass.WebsiteDetectors(),
	})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	c, err := New(Config{
		Fetcher: f,
		Retry:   retry.Policy{MaxAttempts: 2, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestScrape_ExtractsCompanyInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, homePage)
		case "/about":
			fmt.Fprint(w, aboutPage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t)
	res := c.Scrape(context.Background(), srv.URL, "Acme")

	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}
	if res.Info.Name != "Acme Corp" {
		t.Errorf("expected name from title, got %q", res.Info.Name)
	}
	if res.Info.Tagline != "Acme builds anvils, rockets and more." {
		t.Errorf("unexpected tagline %q", res.Info.Tagline)
	}
	if len(res.Info.Products) != 2 {
		t.Errorf("expected 2 deduped products, got %v", res.Info.Products)
	}
	if !strings.Contains(res.Text, "improbable devices since 1920") {
		t.Errorf("expected about copy in text, got %q", res.Text)
	}
	if !strings.Contains(res.Text, "--- ABOUT PAGE ---") {
		t.Error("expected the about page appended")
	}
	if !strings.Contains(res.Text, "every coyote") {
		t.Error("expected about page content in text")
	}
}

func TestScrape_InsufficientText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>JS required</p></body></html>")
	}))
	defer srv.Close()

	c := newTestClient(t)
	res := c.Scrape(context.Background(), srv.URL, "Acme")

	if res.Success {
		t.Fatal("expected failure on a near-empty page")
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "insufficient text") {
		t.Errorf("expected insufficient text error, got %v", res.Err)
	}
}

func TestScrape_BotBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>Access Denied - captcha required</body></html>")
	}))
	defer srv.Close()

	c := newTestClient(t)
	res := c.Scrape(context.Background(), srv.URL, "Acme")

	if res.Success {
		t.Fatal("expected failure when the site blocks the scraper")
	}
}

func TestScrape_InvalidURL(t *testing.T) {
	c := newTestClient(t)
	res := c.Scrape(context.Background(), "", "Acme")
	if res.Success || res.Err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme.com", "https://acme.com"},
		{"http://acme.com/x", "http://acme.com/x"},
		{"  www.acme.com ", "https://www.acme.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScrape_FallbackParagraphs(t *testing.T) {
	body := `<html><head><title>Acme</title></head><body>
<p>Acme Corp has been manufacturing improbable devices since 1920, serving customers worldwide with dedication.</p>
<p>We believe every customer deserves quality gadgets delivered at cartoonish speed, anywhere on earth.</p>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := newTestClient(t)
	res := c.Scrape(context.Background(), srv.URL, "Acme")

	if !res.Success {
		t.Fatalf("expected success from fallback paragraph extraction, err=%v", res.Err)
	}
	if !strings.Contains(res.Text, "cartoonish speed") {
		t.Errorf("expected fallback paragraphs in text, got %q", res.Text)
	}
}
