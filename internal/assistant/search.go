package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/observability"
)

// Catalog is the product lookup the assistant searches against.
type Catalog interface {
	Search(ctx context.Context, q string) ([]catalog.Product, error)
	ListAll(ctx context.Context) ([]catalog.Product, error)
}

// Strategy is one query formulation tried against the catalog.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) []catalog.Product
}

// SearchResult is the outcome of an orchestrated search. Strategy is empty
// when nothing matched.
type SearchResult struct {
	Products []catalog.Product
	Strategy string
}

// Orchestrator tries progressively looser strategies until one matches.
type Orchestrator struct {
	catalog Catalog
	matcher *FlexibleMatcher
	timeout time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewOrchestrator creates a search orchestrator. timeout bounds each
// catalog call.
func NewOrchestrator(c Catalog, timeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Orchestrator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Orchestrator{
		catalog: c,
		matcher: NewFlexibleMatcher(c, timeout, logger),
		timeout: timeout,
		logger:  logger.WithComponent("search"),
		metrics: metrics,
	}
}

// Search returns the first non-empty result in strategy order.
func (o *Orchestrator) Search(ctx context.Context, intent QueryIntent, raw string) []catalog.Product {
	return o.SearchWithStrategy(ctx, intent, raw).Products
}

// SearchWithStrategy is Search that also reports which strategy matched.
func (o *Orchestrator) SearchWithStrategy(ctx context.Context, intent QueryIntent, raw string) SearchResult {
	for _, s := range o.Strategies(intent, raw) {
		if ctx.Err() != nil {
			break
		}
		if products := s.Run(ctx); len(products) > 0 {
			o.metrics.SearchStrategyHit(s.Name)
			o.logger.WithContext(ctx).Debug().
				Str("strategy", s.Name).
				Int("results", len(products)).
				Msg("Search strategy matched")
			return SearchResult{Products: products, Strategy: s.Name}
		}
	}

	o.metrics.SearchStrategyHit("none")
	return SearchResult{}
}

// Strategies lists the strategies for intent in precedence order.
func (o *Orchestrator) Strategies(intent QueryIntent, raw string) []Strategy {
	var out []Strategy

	for i, term := range intent.SearchTerms {
		if term = strings.TrimSpace(term); term != "" {
			out = append(out, o.query(fmt.Sprintf("term[%d]", i), term))
		}
	}

	brand := strings.TrimSpace(intent.FirstBrand())
	productType := strings.TrimSpace(intent.ProductType)

	if brand != "" && productType != "" {
		out = append(out, o.query("brand+type", brand+" "+productType))
	}
	if brand != "" {
		out = append(out, o.query("brand", brand))
	}
	if productType != "" {
		out = append(out, o.query("type", productType))
	}

	for i, attr := range intent.Attributes {
		if attr = strings.TrimSpace(attr); attr != "" {
			out = append(out, o.query(fmt.Sprintf("attribute[%d]", i), attr))
		}
	}

	out = append(out, Strategy{
		Name: "flexible",
		Run: func(ctx context.Context) []catalog.Product {
			return o.matcher.FlexibleSearch(ctx, raw)
		},
	})
	return out
}

func (o *Orchestrator) query(name, q string) Strategy {
	return Strategy{
		Name: name,
		Run: func(ctx context.Context) []catalog.Product {
			callCtx, cancel := withTimeout(ctx, o.timeout)
			defer cancel()

			products, err := o.catalog.Search(callCtx, q)
			if err != nil {
				o.logger.WithContext(ctx).Warn().
					Str("strategy", name).
					Str("query", q).
					Err(err).
					Msg("Catalog search failed, treating as empty")
				return nil
			}
			return products
		},
	}
}
