package assistant

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/llm"
	"github.com/market-v/storefront/internal/observability"
)

//go:embed companyinfo.md
var DefaultCompanyInfo string

const generalPrompt = "Answer only based on the following information: %s\n\nUser: %s"

// ApologyText is the reply used when a turn fails internally.
const ApologyText = "Sorry, something went wrong while preparing a reply. Please try again in a moment."

// LoadCompanyInfo reads the grounding document at path, or returns the
// built-in one when path is empty.
func LoadCompanyInfo(path string) (string, error) {
	if path == "" {
		return DefaultCompanyInfo, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read company info: %w", err)
	}
	return string(data), nil
}

// Searcher finds products for an intent.
type Searcher interface {
	SearchWithStrategy(ctx context.Context, intent QueryIntent, raw string) SearchResult
}

// IntentAnalyzer reads intents from utterances.
type IntentAnalyzer interface {
	Analyze(ctx context.Context, utterance string) QueryIntent
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Analyzer    IntentAnalyzer
	Searcher    Searcher
	Generator   llm.Generator
	StoreName   string
	CompanyInfo string
	CallTimeout time.Duration
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

// Controller runs chat turns.
type Controller struct {
	analyzer    IntentAnalyzer
	searcher    Searcher
	gen         llm.Generator
	storeName   string
	companyInfo string
	timeout     time.Duration
	logger      *observability.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewController creates a chat controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "Market-V"
	}
	if cfg.CompanyInfo == "" {
		cfg.CompanyInfo = DefaultCompanyInfo
	}
	return &Controller{
		analyzer:    cfg.Analyzer,
		searcher:    cfg.Searcher,
		gen:         cfg.Generator,
		storeName:   cfg.StoreName,
		companyInfo: cfg.CompanyInfo,
		timeout:     cfg.CallTimeout,
		logger:      cfg.Logger.WithComponent("chat"),
		metrics:     cfg.Metrics,
		now:         time.Now,
	}
}

// WelcomeText is the reply to a greeting.
func (c *Controller) WelcomeText() string {
	return "Hello! Welcome to " + c.storeName + ". We're your AI-powered e-commerce platform for all your supermarket and grocery needs. How can I assist you today?"
}

// OutOfScopeText replaces general answers that do not mention the store.
func (c *Controller) OutOfScopeText() string {
	return "I'm sorry, but I can only answer questions related to " + c.storeName + "."
}

// Send runs one turn: it appends the user's message, computes the reply
// and appends it. Only blank input and a concurrent turn are errors; every
// other failure becomes an apologetic reply.
func (c *Controller) Send(ctx context.Context, s *Session, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, domain.ValidationError("message text is required", nil)
	}
	if !s.turn.TryLock() {
		return ChatMessage{}, ErrTurnInProgress
	}
	defer s.turn.Unlock()

	log := c.logger.WithContext(ctx).WithSession(s.ID)
	s.append(ChatMessage{Text: text, Timestamp: c.now(), Direction: DirectionSent}, StateAwaitingReply)

	start := time.Now()
	reply, outcome := c.respond(ctx, text)
	reply.Timestamp = c.now()
	reply.Direction = DirectionReceived

	s.append(reply, StateIdle)

	c.metrics.ChatTurn(outcome)
	log.Info().
		Str("outcome", outcome).
		Int("suggestions", len(reply.ProductSuggestions)).
		Dur("duration", time.Since(start)).
		Msg("Chat turn completed")
	return reply, nil
}

func (c *Controller) respond(ctx context.Context, text string) (reply ChatMessage, outcome string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithContext(ctx).Error().Str("panic", fmt.Sprint(r)).Msg("Chat turn panicked")
			reply, outcome = ChatMessage{Text: ApologyText}, "failed"
		}
	}()

	if IsGreeting(text) {
		return ChatMessage{Text: c.WelcomeText()}, "greeting"
	}

	intent := c.analyzer.Analyze(ctx, text)
	if intent.IsProductQuery {
		res := c.searcher.SearchWithStrategy(ctx, intent, text)
		found := len(res.Products) > 0
		msg := ChatMessage{Text: ComposeReply(intent, found)}
		if found {
			msg.ProductSuggestions = res.Products
			return msg, "product_results"
		}
		return msg, "product_not_found"
	}

	answer, err := c.generalAnswer(ctx, text)
	if err != nil {
		c.logger.WithContext(ctx).Warn().Err(err).Msg("General answer failed")
		return ChatMessage{Text: ApologyText}, "failed"
	}
	if !strings.Contains(strings.ToLower(answer), strings.ToLower(c.storeName)) {
		return ChatMessage{Text: c.OutOfScopeText()}, "out_of_scope"
	}
	return ChatMessage{Text: strings.TrimSpace(answer)}, "general"
}

func (c *Controller) generalAnswer(ctx context.Context, text string) (string, error) {
	if c.gen == nil {
		return "", domain.TransportFailure("no generator configured", nil)
	}
	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	return c.gen.GenerateText(callCtx, fmt.Sprintf(generalPrompt, c.companyInfo, text))
}
