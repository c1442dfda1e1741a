package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/observability"
)

const (
	minTokenLen       = 3
	minMatchCount     = 2
	matchRatioPercent = 30
)

// FlexibleMatcher scores every catalog product by token overlap.
type FlexibleMatcher struct {
	catalog Catalog
	timeout time.Duration
	logger  *observability.Logger
}

// NewFlexibleMatcher creates a matcher over c.
func NewFlexibleMatcher(c Catalog, timeout time.Duration, logger *observability.Logger) *FlexibleMatcher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &FlexibleMatcher{catalog: c, timeout: timeout, logger: logger.WithComponent("matcher")}
}

// FlexibleSearch returns, in catalog order, the products whose name, brand
// and description together match enough query tokens. Each field counts
// separately, so one token can score up to 3.
func (m *FlexibleMatcher) FlexibleSearch(ctx context.Context, query string) []catalog.Product {
	tokens := matchTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	callCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()

	products, err := m.catalog.ListAll(callCtx)
	if err != nil {
		m.logger.WithContext(ctx).Warn().Err(err).Msg("Catalog listing failed, flexible search is empty")
		return nil
	}

	threshold := matchThreshold(len(tokens))

	var out []catalog.Product
	for _, p := range products {
		if matchCount(p, tokens) >= threshold {
			out = append(out, p)
		}
	}
	return out
}

// matchTokens lowercases and splits query, dropping tokens of two
// characters or fewer.
func matchTokens(query string) []string {
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(f)) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// matchThreshold is max(2, floor(0.3*n)).
func matchThreshold(n int) int {
	t := n * matchRatioPercent / 100
	if t < minMatchCount {
		return minMatchCount
	}
	return t
}

func matchCount(p catalog.Product, tokens []string) int {
	fields := [3]string{
		strings.ToLower(p.Name),
		strings.ToLower(p.Brand),
		strings.ToLower(p.Description),
	}

	count := 0
	for _, tok := range tokens {
		for _, f := range fields {
			if strings.Contains(f, tok) {
				count++
			}
		}
	}
	return count
}
