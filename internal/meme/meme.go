// Package meme submits captions to a meme rendering API and returns image
// URLs.
package meme

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shereeef1/meme-generator/pkg/httpclient"
)

// maxTextLength is the rendering API's caption limit.
const maxTextLength = 300

// sampleMemes stand in when the API is unreachable.
var sampleMemes = []string{
	"https://i.imgflip.com/30b1gx.jpg",
	"https://i.imgflip.com/1bij.jpg",
	"https://i.imgflip.com/26am.jpg",
}

// Client calls the meme rendering API.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  *slog.Logger
}

// Config defines the setup for a meme Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// New creates a meme client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("meme: base url is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
		logger:  cfg.Logger,
	}, nil
}

type generateRequest struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Memes []string `json:"memes"`
	Error string   `json:"error,omitempty"`
}

// Generate renders memes for the caption. The caption is truncated to the
// API limit; API failure degrades to sample images.
func (c *Client) Generate(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("meme text is required")
	}
	if len(text) > maxTextLength {
		text = text[:maxTextLength]
	}

	body, err := json.Marshal(generateRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode meme request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build meme request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.Warn("meme api unreachable, using samples", "error", err)
		return sampleMemes, nil
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode meme response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return nil, fmt.Errorf("meme api error: %s", out.Error)
		}
		return nil, fmt.Errorf("meme api returned status %d", resp.StatusCode)
	}
	if len(out.Memes) == 0 {
		c.logger.Warn("meme api returned no images, using samples")
		return sampleMemes, nil
	}
	return out.Memes, nil
}
