package assistant

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/market-v/storefront/internal/domain"
)

// IntentSource tells where a QueryIntent came from.
type IntentSource string

const (
	SourceAI        IntentSource = "ai"
	SourceHeuristic IntentSource = "heuristic"
)

// QueryIntent is the structured reading of one user utterance.
type QueryIntent struct {
	IsProductQuery bool     `json:"isProductQuery"`
	ProductType    string   `json:"productType,omitempty"`
	Brands         []string `json:"brands,omitempty"`
	Attributes     []string `json:"attributes,omitempty"`
	Audience       string   `json:"audience,omitempty"`
	PriceRange     string   `json:"priceRange,omitempty"`
	SearchTerms    []string `json:"searchTerms,omitempty"`
	Sentiment      string   `json:"sentiment,omitempty"`

	Source IntentSource `json:"-"`
}

// FirstBrand returns the first brand, or "".
func (q QueryIntent) FirstBrand() string {
	if len(q.Brands) == 0 {
		return ""
	}
	return q.Brands[0]
}

var productKeywords = []string{"product", "buy", "purchase", "show me", "find", "recommend", "suggest"}

// HeuristicIntent classifies utterance by keyword alone.
func HeuristicIntent(utterance string) QueryIntent {
	lower := strings.ToLower(utterance)
	isProduct := false
	for _, kw := range productKeywords {
		if strings.Contains(lower, kw) {
			isProduct = true
			break
		}
	}
	return QueryIntent{
		IsProductQuery: isProduct,
		SearchTerms:    []string{utterance},
		Source:         SourceHeuristic,
	}
}

// wireIntent mirrors QueryIntent with a required isProductQuery.
type wireIntent struct {
	IsProductQuery *bool    `json:"isProductQuery"`
	ProductType    *string  `json:"productType"`
	Brands         []string `json:"brands"`
	Attributes     []string `json:"attributes"`
	Audience       *string  `json:"audience"`
	PriceRange     *string  `json:"priceRange"`
	SearchTerms    []string `json:"searchTerms"`
	Sentiment      *string  `json:"sentiment"`
}

var errNoJSON = errors.New("no JSON object in reply")

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(reply string) (string, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return reply[start : end+1], nil
}

// ParseIntent decodes the JSON object embedded in reply. Any schema
// violation yields a ParseFailure.
func ParseIntent(reply string) (QueryIntent, error) {
	raw, err := extractJSONObject(reply)
	if err != nil {
		return QueryIntent{}, domain.ParseFailure("extract intent", err)
	}

	var w wireIntent
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return QueryIntent{}, domain.ParseFailure("decode intent", err)
	}
	if w.IsProductQuery == nil {
		return QueryIntent{}, domain.ParseFailure("decode intent", errors.New("isProductQuery is missing"))
	}

	return QueryIntent{
		IsProductQuery: *w.IsProductQuery,
		ProductType:    trimPtr(w.ProductType),
		Brands:         cleanList(w.Brands),
		Attributes:     cleanList(w.Attributes),
		Audience:       trimPtr(w.Audience),
		PriceRange:     trimPtr(w.PriceRange),
		SearchTerms:    cleanList(w.SearchTerms),
		Sentiment:      trimPtr(w.Sentiment),
		Source:         SourceAI,
	}, nil
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
