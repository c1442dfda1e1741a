// Package llm provides text-generation clients for the storefront assistant.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/observability"
)

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel  = "google/gemini-2.0-flash-001"
)

// Generator turns a prompt into free text. Callers must not assume the text
// is well formed.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// GenerateText calls f.
func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config is the explicit configuration handed to generator constructors.
type Config struct {
	Endpoint   string
	Credential string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64 // requests per second, 0 disables limiting
	RateBurst  int
}

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default).
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	logger     *observability.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents the API request structure.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Response represents the API response structure.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Error   *APIErr  `json:"error,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// APIErr is the error object some providers embed in the body.
type APIErr struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// NewClient creates a chat completions client.
func NewClient(cfg Config, logger *observability.Logger) (*Client, error) {
	if cfg.Credential == "" {
		return nil, domain.ValidationError("llm credential is required", nil)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = openRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	retry := DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.Credential,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg),
		retry:      retry,
		logger:     logger.WithComponent("llm"),
	}, nil
}

// GenerateText sends prompt as a single user message and returns the first
// choice's content.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", domain.TransportFailure("rate limiter wait", err)
	}

	body, err := json.Marshal(Request{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", domain.ParseFailure("marshal request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("X-Title", "Market-V Storefront")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", domain.TransportFailure("send request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.TransportFailure("read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.UpstreamError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(string(raw), 200)), nil)
	}

	var parsed Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", domain.UpstreamError("malformed response body", err)
	}
	if parsed.Error != nil {
		return "", domain.UpstreamError("API error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", domain.UpstreamError("response has no content", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

// Model returns the model in use.
func (c *Client) Model() string {
	return c.model
}

func newLimiter(cfg Config) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Generator = (*Client)(nil)
