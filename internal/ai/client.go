package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/XW123-ART/smart-test-platform/internal/logging"
)

// ErrNotConfigured is returned when a call is attempted without an API
// key. It is checked before any network I/O.
var ErrNotConfigured = errors.New("AI服务未正确配置或初始化失败，请检查配置")

// provider maps a logical provider name to its endpoint and model.
type provider struct {
	BaseURL string
	Model   string
}

var providers = map[string]provider{
	"openai":   {BaseURL: "https://api.openai.com/v1", Model: "gpt-3.5-turbo"},
	"deepseek": {BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
}

const defaultProviderName = "openai"

// maxRetries is the number of additional attempts after the first
// failure: 3 attempts total, no backoff.
const maxRetries = 2

// ProviderError is the final failure surfaced once the retry budget is
// exhausted; Kind names the failing stage.
type ProviderError struct {
	Kind string // "transport" | "status" | "decode" | "empty"
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("AI生成失败：%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	apiKey   string
	provider string
	baseURL  string // test override; empty means use the provider table
	httpc    *http.Client
	log      *slog.Logger
}

type Option func(*Client)

// WithBaseURL overrides the provider endpoint; used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

func NewClient(apiKey, providerName string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		provider: strings.ToLower(providerName),
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      logging.New("ai.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call sends one chat-completion request and returns the raw completion
// text. On any failure it retries with a fresh request, up to 3 attempts
// total with no delay, then surfaces the last failure.
func (c *Client) Call(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	p, ok := providers[c.provider]
	if !ok {
		p = providers[defaultProviderName]
	}
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = p.BaseURL
	}

	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	var lastErr *ProviderError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		text, perr := c.doRequest(ctx, baseURL, chatRequest{
			Model:       p.Model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if perr == nil {
			return text, nil
		}
		lastErr = perr
		c.log.Warn("chat completion attempt failed",
			"provider", c.provider, "attempt", attempt, "kind", perr.Kind, "error", perr.Err)
	}
	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, baseURL string, reqBody chatRequest) (string, *ProviderError) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Kind: "decode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", &ProviderError{Kind: "transport", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &ProviderError{Kind: "transport", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ProviderError{Kind: "status", Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &ProviderError{Kind: "decode", Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return "", &ProviderError{Kind: "empty", Err: errors.New("empty choices in response")}
	}
	return chatResp.Choices[0].Message.Content, nil
}

// TestConnection sends a minimal 5-token request and reports whether a
// non-empty completion came back.
func (c *Client) TestConnection(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	text, err := c.Call(ctx, "Hello", "", 5, 0)
	if err != nil {
		c.log.Warn("connection test failed", "provider", c.provider, "error", err)
		return false
	}
	return text != ""
}
