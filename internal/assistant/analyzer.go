package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/market-v/storefront/internal/llm"
	"github.com/market-v/storefront/internal/observability"
)

const intentPrompt = `You are the shopping assistant of an online supermarket and general store.
Classify the customer's message and extract what they are looking for.

Reply with a single JSON object and nothing else. Use exactly these fields:
- isProductQuery (boolean): true when the customer wants to find, browse or buy products.
- productType (string): for example "running shoes" or "milk"; "" when unknown.
- brands (array of strings): brand names mentioned, most important first.
- attributes (array of strings): colors, sizes, materials, dietary needs.
- audience (string): for example "kids" or "men"; "" when unknown.
- priceRange (string): for example "under 50"; "" when unknown.
- searchTerms (array of strings): short catalog search queries, best first.
- sentiment (string): "positive", "neutral" or "negative".

Example reply:
{"isProductQuery": true, "productType": "running shoes", "brands": ["Nike"], "attributes": ["blue"], "audience": "men", "priceRange": "under 100", "searchTerms": ["nike running shoes", "running shoes"], "sentiment": "neutral"}

Customer message: %q`

// Analyzer turns utterances into QueryIntents using the generator, falling
// back to the keyword heuristic whenever the generator fails or replies
// with something unusable.
type Analyzer struct {
	gen     llm.Generator
	timeout time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAnalyzer creates an analyzer. timeout bounds each generator call.
func NewAnalyzer(gen llm.Generator, timeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Analyzer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Analyzer{
		gen:     gen,
		timeout: timeout,
		logger:  logger.WithComponent("analyzer"),
		metrics: metrics,
	}
}

// Analyze never fails; every error path resolves to the heuristic intent.
func (a *Analyzer) Analyze(ctx context.Context, utterance string) QueryIntent {
	intent, err := a.analyzeWithAI(ctx, utterance)
	if err != nil {
		a.logger.WithContext(ctx).Warn().Err(err).Msg("Intent analysis fell back to heuristic")
		intent = HeuristicIntent(utterance)
	}

	a.metrics.IntentAnalyzed(string(intent.Source))
	a.logger.WithContext(ctx).Debug().
		Str("source", string(intent.Source)).
		Bool("product_query", intent.IsProductQuery).
		Strs("search_terms", intent.SearchTerms).
		Msg("Intent analyzed")
	return intent
}

func (a *Analyzer) analyzeWithAI(ctx context.Context, utterance string) (QueryIntent, error) {
	if a.gen == nil {
		return QueryIntent{}, fmt.Errorf("no generator configured")
	}

	callCtx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.gen.GenerateText(callCtx, fmt.Sprintf(intentPrompt, utterance))
	if err != nil {
		return QueryIntent{}, err
	}
	return ParseIntent(reply)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
