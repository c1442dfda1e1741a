package handlers

import (
	"context"
	"net/http"

	"github.com/market-v/storefront/internal/comparison"
	"github.com/market-v/storefront/internal/observability"
)

// Comparer produces product comparisons.
type Comparer interface {
	Compare(ctx context.Context, req comparison.Request) (comparison.Result, error)
}

// ComparisonHandler handles product comparison requests.
type ComparisonHandler struct {
	logger *observability.Logger
	engine Comparer
}

// NewComparisonHandler creates a new comparison handler.
func NewComparisonHandler(logger *observability.Logger, engine Comparer) *ComparisonHandler {
	return &ComparisonHandler{
		logger: logger,
		engine: engine,
	}
}

// ComparisonRequestDTO represents the API request for comparison.
type ComparisonRequestDTO struct {
	Product1ID    string `json:"product1Id"`
	Product2ID    string `json:"product2Id"`
	SubcategoryID string `json:"subcategoryId,omitempty"`
}

// ComparisonResponseDTO represents the API response for comparison.
type ComparisonResponseDTO struct {
	Product1   string `json:"product1"`
	Product2   string `json:"product2"`
	Comparison string `json:"comparison"`
}

// Compare handles POST /api/compare-products.
func (h *ComparisonHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO ComparisonRequestDTO
	if err := decodeJSON(w, r, &reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	h.logger.WithContext(ctx).Info().
		Str("product_1", reqDTO.Product1ID).
		Str("product_2", reqDTO.Product2ID).
		Msg("Processing comparison request")

	result, err := h.engine.Compare(ctx, comparison.Request{
		ProductAID:    reqDTO.Product1ID,
		ProductBID:    reqDTO.Product2ID,
		SubcategoryID: reqDTO.SubcategoryID,
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ComparisonResponseDTO{
		Product1:   result.ProductAName,
		Product2:   result.ProductBName,
		Comparison: result.Narrative,
	})
}
