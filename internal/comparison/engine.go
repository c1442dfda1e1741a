// Package comparison provides AI-written side-by-side product comparisons.
package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/market-v/storefront/internal/cache"
	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/llm"
	"github.com/market-v/storefront/internal/observability"
)

// ProductLookup resolves products by ID. A miss is catalog.ErrNotFound.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Request names the two products to compare. SubcategoryID is optional;
// when set, both products must belong to it.
type Request struct {
	ProductAID    string
	ProductBID    string
	SubcategoryID string
}

// Result is a finished comparison.
type Result struct {
	ProductAName string `json:"productAName"`
	ProductBName string `json:"productBName"`
	Narrative    string `json:"narrative"`
}

// Config for the engine.
type Config struct {
	CallTimeout time.Duration
	CacheTTL    time.Duration
}

// Engine validates comparison requests and asks the generator for a
// narrative.
type Engine struct {
	products ProductLookup
	gen      llm.Generator
	cache    cache.Client
	cfg      Config
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewEngine creates a comparison engine. cache may be nil.
func NewEngine(products ProductLookup, gen llm.Generator, c cache.Client, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Engine{
		products: products,
		gen:      gen,
		cache:    c,
		cfg:      cfg,
		logger:   logger.WithComponent("comparison"),
		metrics:  metrics,
	}
}

// Compare validates the pair and returns the generated comparison.
// Comparing a product with itself is allowed.
func (e *Engine) Compare(ctx context.Context, req Request) (Result, error) {
	res, err := e.compare(ctx, req)
	e.metrics.Comparison(outcome(err))
	if err != nil {
		e.logger.WithContext(ctx).Warn().
			Str("product_a", req.ProductAID).
			Str("product_b", req.ProductBID).
			Err(err).
			Msg("Comparison failed")
	}
	return res, err
}

func (e *Engine) compare(ctx context.Context, req Request) (Result, error) {
	a, b, err := e.resolve(ctx, req)
	if err != nil {
		return Result{}, err
	}

	key := cache.Key("compare", version(a), version(b))
	if cached, ok := e.cached(ctx, key); ok {
		return cached, nil
	}

	reply, err := e.generate(ctx, buildPrompt(a, b))
	if err != nil {
		return Result{}, domain.UpstreamError("comparison service unavailable", err)
	}

	narrative, err := parseNarrative(reply)
	if err != nil {
		return Result{}, err
	}

	res := Result{ProductAName: a.Name, ProductBName: b.Name, Narrative: narrative}
	e.store(ctx, key, res)
	return res, nil
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.gen == nil {
		return "", errors.New("no generator configured")
	}
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	return e.gen.GenerateText(ctx, prompt)
}

// resolve loads both products and checks they can be compared.
func (e *Engine) resolve(ctx context.Context, req Request) (*catalog.Product, *catalog.Product, error) {
	aID, bID := strings.TrimSpace(req.ProductAID), strings.TrimSpace(req.ProductBID)
	if aID == "" || bID == "" {
		return nil, nil, domain.ValidationError("missing product IDs", nil)
	}

	a, err := e.lookup(ctx, aID)
	if err != nil {
		return nil, nil, err
	}
	b, err := e.lookup(ctx, bID)
	if err != nil {
		return nil, nil, err
	}

	if sub := strings.TrimSpace(req.SubcategoryID); sub != "" {
		if a.SubcategoryID != sub || b.SubcategoryID != sub {
			return nil, nil, domain.ValidationError("one or both products are not in the requested subcategory", nil)
		}
	}

	if err := SameSubcategory(a, b); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (e *Engine) lookup(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := e.products.GetByID(ctx, id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return nil, domain.ValidationError("one or both products not found", err)
	case err != nil:
		return nil, domain.TransportFailure("product lookup failed", err)
	case p == nil:
		return nil, domain.ValidationError("one or both products not found", catalog.ErrNotFound)
	}
	return p, nil
}

// SameSubcategory requires equal subcategory identifiers and equal
// subcategory labels (case-insensitive).
func SameSubcategory(a, b *catalog.Product) error {
	if a.SubcategoryID == "" || a.SubcategoryID != b.SubcategoryID {
		return domain.ValidationError("products belong to different subcategories", nil)
	}
	if !strings.EqualFold(strings.TrimSpace(a.Subcategory), strings.TrimSpace(b.Subcategory)) {
		return domain.ValidationError("products belong to different subcategories", nil)
	}
	return nil
}

type promptProduct struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
	Price    float64  `json:"price"`
}

func buildPrompt(a, b *catalog.Product) string {
	input, _ := json.MarshalIndent(map[string]promptProduct{
		"product1": {Name: a.Name, Features: nonNil(a.Features), Price: a.Price},
		"product2": {Name: b.Name, Features: nonNil(b.Features), Price: b.Price},
	}, "", "  ")

	return fmt.Sprintf(`Compare these two products for a shopper deciding between them.
Cover features, value for money and who each product suits best. Be concise and factual.

Products:
%s

Reply with a single JSON object and nothing else: {"generatedText": "<your comparison>"}`, input)
}

func parseNarrative(reply string) (string, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return "", domain.UpstreamError("invalid AI response", errors.New("no JSON object in reply"))
	}

	var body struct {
		GeneratedText *string `json:"generatedText"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &body); err != nil {
		return "", domain.UpstreamError("invalid AI response", err)
	}
	if body.GeneratedText == nil || strings.TrimSpace(*body.GeneratedText) == "" {
		return "", domain.UpstreamError("invalid AI response", errors.New("generatedText is missing"))
	}
	return strings.TrimSpace(*body.GeneratedText), nil
}

func (e *Engine) cached(ctx context.Context, key string) (Result, bool) {
	if e.cache == nil || e.cfg.CacheTTL <= 0 {
		return Result{}, false
	}
	var res Result
	err := cache.GetJSON(ctx, e.cache, key, &res)
	if err == nil {
		return res, true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		e.logger.WithContext(ctx).Warn().Err(err).Str("key", key).Msg("Comparison cache read failed")
	}
	return Result{}, false
}

func (e *Engine) store(ctx context.Context, key string, res Result) {
	if e.cache == nil || e.cfg.CacheTTL <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, e.cache, key, res, e.cfg.CacheTTL); err != nil {
		e.logger.WithContext(ctx).Warn().Err(err).Str("key", key).Msg("Comparison cache write failed")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind) + "_error"
	}
	return "error"
}

// version identifies a product revision, so edits miss old cache entries.
func version(p *catalog.Product) string {
	return p.ID + "@" + strconv.FormatInt(p.UpdatedAt.UnixNano(), 10)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
