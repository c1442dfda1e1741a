package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/observability"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient generates text with the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *observability.Logger
}

// NewGeminiClient creates a Gemini-backed generator. A non-empty
// Endpoint overrides the API base URL.
func NewGeminiClient(ctx context.Context, cfg Config, logger *observability.Logger) (*GeminiClient, error) {
	if cfg.Credential == "" {
		return nil, domain.ValidationError("gemini credential is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.Credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, domain.TransportFailure("create gemini client", err)
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		limiter: newLimiter(cfg),
		logger:  logger.WithComponent("gemini"),
	}, nil
}

// GenerateText sends prompt as a single user turn and joins the text
// parts of the first candidate.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", domain.TransportFailure("rate limiter wait", err)
	}

	temp := float32(0.2)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", domain.TransportFailure("gemini generate content", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domain.UpstreamError("empty response from gemini", nil)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", domain.UpstreamError("gemini response has no text", nil)
	}

	g.logger.Debug().Str("model", g.model).Int("chars", len(text)).Msg("Gemini response received")
	return text, nil
}

var _ Generator = (*GeminiClient)(nil)
