// Package llm turns research text into marketing content prompts through an
// OpenAI-compatible chat completion API.
package llm

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

// maxPromptLength caps each generated caption, matching downstream
// rendering limits.
const maxPromptLength = 300

// Prompt is one generated content idea.
type Prompt struct {
	Caption    string `json:"caption"`
	Suggestion string `json:"suggestion,omitempty"`
}

// samplePrompts are returned when the API is unreachable so callers always
// have something to render.
var samplePrompts = []Prompt{
	{Caption: "When the market zigs, we zag.", Suggestion: "Pair with a split-panel reaction image."},
	{Caption: "Our users before coffee vs. after our product.", Suggestion: "Before/after format."},
	{Caption: "Nobody: ... Us: shipping another feature.", Suggestion: "Nobody/us format."},
}

// Client calls a chat completion endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *httpclient.Client
	logger      *slog.Logger
}

// Config defines the setup for an llm Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// New creates an llm client. BaseURL and APIKey are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("llm: base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        hc,
		logger:      cfg.Logger,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("completion api error: %s", out.Error.Message)
		}
		return "", fmt.Errorf("completion api returned status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

const systemPrompt = "You are a social media copywriter. Given brand research, write short, punchy meme captions. " +
	"For each idea output two lines: 'Caption:' with the caption and 'Suggestion:' with a visual suggestion. " +
	"No hashtags. Keep every caption under 300 characters."

// GeneratePrompts asks for n content ideas grounded in the research text.
// On API failure it degrades to built-in samples so the pipeline still
// produces output.
func (c *Client) GeneratePrompts(ctx context.Context, brand, researchText string, n int) ([]Prompt, error) {
	if n <= 0 {
		n = 5
	}

	user := fmt.Sprintf("Brand: %s\n\nResearch:\n%s\n\nWrite %d ideas.", brand, truncate(researchText, 8000), n)
	content, err := c.Complete(ctx, systemPrompt, user)
	if err != nil {
		c.logger.Warn("prompt generation failed, using samples", "brand", brand, "error", err)
		if n < len(samplePrompts) {
			return samplePrompts[:n], nil
		}
		return samplePrompts, nil
	}

	prompts := parsePrompts(content, n)
	if len(prompts) == 0 {
		c.logger.Warn("no prompts parsed from completion, using samples", "brand", brand)
		return samplePrompts, nil
	}
	return prompts, nil
}

// parsePrompts walks Caption:/Suggestion: line pairs in the model output.
func parsePrompts(content string, max int) []Prompt {
	var prompts []Prompt
	var current *Prompt

	flush := func() {
		if current != nil && current.Caption != "" {
			prompts = append(prompts, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "caption:"):
			flush()
			caption := cleanCaption(line[len("caption:"):])
			if caption != "" {
				current = &Prompt{Caption: caption}
			}
		case strings.HasPrefix(lower, "suggestion:") && current != nil:
			current.Suggestion = strings.TrimSpace(line[len("suggestion:"):])
		}
		if len(prompts) == max {
			return prompts
		}
	}
	flush()

	if len(prompts) > max {
		prompts = prompts[:max]
	}
	return prompts
}

func cleanCaption(raw string) string {
	caption := strings.TrimSpace(raw)
	caption = strings.Trim(caption, `"`)
	caption = strings.ReplaceAll(caption, "#", "")
	caption = strings.Join(strings.Fields(caption), " ")
	if len(caption) > maxPromptLength {
		caption = caption[:maxPromptLength]
	}
	return caption
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
