package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/observability"
)

// Provider names accepted by New.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOffline    = "offline"
)

// New builds the generator for provider, wrapped with metrics.
func New(ctx context.Context, provider string, cfg Config, logger *observability.Logger, metrics *observability.Metrics) (Generator, error) {
	var (
		gen Generator
		err error
	)

	switch provider {
	case ProviderOpenRouter:
		gen, err = NewClient(cfg, logger)
	case ProviderGemini:
		gen, err = NewGeminiClient(ctx, cfg, logger)
	case ProviderOffline:
		gen = NewScriptedGenerator()
	default:
		return nil, domain.ValidationError(fmt.Sprintf("unknown llm provider %q", provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(provider, gen, metrics), nil
}

// Instrument records the latency and outcome of every call to gen.
func Instrument(provider string, gen Generator, metrics *observability.Metrics) Generator {
	if metrics == nil {
		return gen
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		text, err := gen.GenerateText(ctx, prompt)
		metrics.GeneratorCall(provider, err, time.Since(start))
		return text, err
	})
}

// ScriptedGenerator replays queued replies in order. Once the queue is
// drained every call fails with a transport error, so an empty
// ScriptedGenerator behaves like an unreachable service.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
}

type scriptedReply struct {
	text string
	err  error
}

// NewScriptedGenerator returns a generator with no queued replies.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{}
}

// Reply queues a successful reply.
func (s *ScriptedGenerator) Reply(text string) *ScriptedGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, scriptedReply{text: text})
	return s
}

// Fail queues a failing reply.
func (s *ScriptedGenerator) Fail(err error) *ScriptedGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, scriptedReply{err: err})
	return s
}

// GenerateText pops the next queued reply.
func (s *ScriptedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", domain.TransportFailure("generator call cancelled", err)
	}
	if len(s.replies) == 0 {
		return "", domain.TransportFailure("text generation service unavailable", nil)
	}

	next := s.replies[0]
	s.replies = s.replies[1:]
	return next.text, next.err
}

// Prompts returns every prompt received so far.
func (s *ScriptedGenerator) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns how many times GenerateText was called.
func (s *ScriptedGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

var _ Generator = (*ScriptedGenerator)(nil)
