// Package agent implements the delegated reasoning boundary: it turns a
// question plus a column-schema description into query.Directive turns
// by calling an OpenAI-compatible chat completion endpoint.
//
// This is the only package that talks to the external reasoning service.
// It never sees raw table data — only column names, row counts, and the
// bounded previews the engine chooses to share.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nfa/internal/query"
)

// Config holds the reasoning-service configuration. The caller owns
// credential acquisition; the core only carries the key through.
type Config struct {
	APIKey   string
	Model    string // default "gpt-4o-mini"
	Endpoint string // default OpenAI chat completions
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Endpoint == "" {
		c.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
}

// Client implements query.Translator against a chat completion API.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient returns a Client with defaults applied.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Next sends the current delegation state and parses the agent's reply
// into a Directive. Transport and API errors are returned as-is; the
// engine treats them as transient and retries with the failure fed back.
func (c *Client) Next(ctx context.Context, req query.TranslateRequest) (*query.Directive, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildPrompt(req.Schema)},
			{Role: "user", Content: buildTurn(req)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agent: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent: http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("agent: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("agent: parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("agent: API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("agent: empty response")
	}

	return ParseDirective(parsed.Choices[0].Message.Content)
}
