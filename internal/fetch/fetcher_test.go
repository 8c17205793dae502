package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shereeef1/meme-generator/internal/fingerprint"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(Config{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return f
}

func TestGet_Success(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	res := f.Get(context.Background(), srv.URL)

	if !res.OK() {
		t.Fatalf("expected OK result, got status=%d error=%q detected=%v",
			res.StatusCode, res.Error, res.BotDetected)
	}
	if res.ID == "" {
		t.Error("expected a generated result ID")
	}
	if !strings.Contains(string(res.Body), "hello") {
		t.Errorf("unexpected body: %q", res.Body)
	}
	if gotUA == "" || !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("expected a browser User-Agent, got %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("expected browser Accept header, got %q", gotAccept)
	}
}

func TestGet_RecordsFinalURLAfterRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.Write([]byte("landed"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	res := f.Get(context.Background(), srv.URL+"/start")

	if !res.OK() {
		t.Fatalf("expected OK result, got %+v", res)
	}
	if !strings.HasSuffix(res.FinalURL, "/end") {
		t.Errorf("expected FinalURL to end in /end, got %q", res.FinalURL)
	}
	if !strings.HasSuffix(res.URL, "/start") {
		t.Errorf("expected original URL preserved, got %q", res.URL)
	}
}

func TestGet_BotDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("Please try again later"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	res := f.Get(context.Background(), srv.URL)

	if !res.BotDetected {
		t.Fatal("expected bot detection on a 202 challenge page")
	}
	if res.DetectionSrc != "search-challenge" {
		t.Errorf("unexpected detection source %q", res.DetectionSrc)
	}
	if res.OK() {
		t.Error("detected result must not be OK")
	}
}

func TestGet_TransportError(t *testing.T) {
	f := newTestFetcher(t)
	res := f.Get(context.Background(), "http://127.0.0.1:1/unreachable")

	if res.Error == "" {
		t.Fatal("expected an error string for an unreachable host")
	}
	if res.OK() {
		t.Error("failed fetch must not be OK")
	}
}

func TestPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.FormValue("q"); got != "acme corp" {
			t.Errorf("expected q=acme corp, got %q", got)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	res := f.PostForm(context.Background(), srv.URL, url.Values{"q": {"acme corp"}})

	if !res.OK() {
		t.Fatalf("expected OK result, got %+v", res)
	}
	if res.Method != http.MethodPost {
		t.Errorf("expected POST method recorded, got %q", res.Method)
	}
}

func TestGet_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := newTestFetcher(t)
	res := f.Get(ctx, srv.URL)

	if res.Error == "" {
		t.Fatal("expected an error after context timeout")
	}
}
