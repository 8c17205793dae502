// Package fetch performs the actual HTTP requests for the research sources.
// Every fetch goes out with browser-like headers, a rotated User-Agent and,
// when configured, a uTLS browser fingerprint, so that scraped sources see
// ordinary desktop traffic.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shereeef1/meme-generator/internal/bypass"
	"github.com/shereeef1/meme-generator/internal/fingerprint"
	"github.com/shereeef1/meme-generator/internal/metrics"
	"github.com/shereeef1/meme-generator/pkg/httpclient"
	"github.com/shereeef1/meme-generator/pkg/proxy"
	"github.com/shereeef1/meme-generator/pkg/useragent"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 10 << 20 // 10 MiB

// Result holds everything observed about a single fetch. A failed fetch is
// still a Result; callers check Error instead of an error return so a
// degraded source never aborts a whole research run.
type Result struct {
	ID           string
	URL          string
	FinalURL     string
	Method       string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	BotDetected  bool
	DetectionSrc string
	CreatedAt    time.Time
	Error        string
}

// OK reports whether the fetch produced a usable page: transport success,
// a 2xx status and no bot challenge.
func (r *Result) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300 && !r.BotDetected
}

// Config defines the setup for a Fetcher.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  fingerprint.Profile
	UserAgents   []string
	ProxyPool    *proxy.Pool
	Detectors    []bypass.Detector
	Logger       *slog.Logger
}

// Fetcher retrieves pages on behalf of the research sources.
type Fetcher struct {
	client    *httpclient.Client
	uaPool    *useragent.Pool
	proxies   *proxy.Pool
	detectors []bypass.Detector
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher from the provided configuration.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var proxyFunc func(*http.Request) (*url.URL, error)
	if cfg.ProxyPool != nil {
		pool := cfg.ProxyPool
		proxyFunc = func(*http.Request) (*url.URL, error) {
			return pool.Next(), nil
		}
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, err
	}

	detectors := cfg.Detectors
	if detectors == nil {
		detectors = bypass.DefaultDetectors()
	}

	return &Fetcher{
		client:    client,
		uaPool:    useragent.NewPool(cfg.UserAgents),
		proxies:   cfg.ProxyPool,
		detectors: detectors,
		logger:    cfg.Logger,
	}, nil
}

// Get fetches the URL with browser-like headers.
func (f *Fetcher) Get(ctx context.Context, rawURL string) *Result {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return f.failed(rawURL, http.MethodGet, err)
	}
	return f.do(ctx, req)
}

// PostForm submits an HTML form to the URL. The search endpoint takes its
// query as form data.
func (f *Fetcher) PostForm(ctx context.Context, rawURL string, values url.Values) *Result {
	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return f.failed(rawURL, http.MethodPost, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(ctx, req)
}

func (f *Fetcher) do(ctx context.Context, req *http.Request) *Result {
	res := &Result{
		ID:        uuid.NewString(),
		URL:       req.URL.String(),
		Method:    req.Method,
		CreatedAt: time.Now(),
	}

	f.setBrowserHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(ctx, req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		f.record(req.URL.Host, res)
		f.logger.Warn("fetch failed", "url", res.URL, "error", res.Error)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Headers = resp.Header
	res.FinalURL = res.URL
	if resp.Request != nil && resp.Request.URL != nil {
		res.FinalURL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		res.Error = "failed to read response body: " + err.Error()
		f.record(req.URL.Host, res)
		return res
	}
	res.Body = body

	if det := bypass.Analyze(res.StatusCode, res.Headers, res.Body, f.detectors); det.Detected {
		res.BotDetected = true
		res.DetectionSrc = det.Source
		f.logger.Warn("bot protection detected",
			"url", res.URL, "status", res.StatusCode, "source", det.Source)
	}

	f.record(req.URL.Host, res)
	return res
}

func (f *Fetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.uaPool.GetRandom())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", "https://www.google.com/")
	}
}

func (f *Fetcher) failed(rawURL, method string, err error) *Result {
	return &Result{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Method:    method,
		CreatedAt: time.Now(),
		Error:     err.Error(),
	}
}

func (f *Fetcher) record(host string, res *Result) {
	metrics.RecordFetch(host, res.StatusCode, res.Error,
		res.BotDetected, res.DetectionSrc, res.Duration, len(res.Body))
}
