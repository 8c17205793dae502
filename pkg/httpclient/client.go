// Package httpclient builds the http.Client the fetch layer runs on, with
// the redirect and cookie behavior scrapers care about made explicit.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config controls the constructed client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects caps how many redirects are followed. Negative means
	// follow none and hand back the redirect response itself.
	MaxRedirects int
	// UseCookieJar keeps session cookies between requests; some scraped
	// sites hand out a cookie on the first hit and expect it back.
	UseCookieJar bool
	// Transport overrides the default round tripper, used for proxying
	// and TLS fingerprinting.
	Transport http.RoundTripper
}

// Client is an http.Client assembled from a Config.
type Client struct {
	*http.Client
}

// New builds a client. A zero Timeout defaults to 30 seconds.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c}, nil
}

// Do executes the request under the given context. The request is cloned so
// the caller's copy keeps its original context.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
