package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/observability"
)

// ProductService is the catalog surface the API exposes.
type ProductService interface {
	Search(ctx context.Context, q string) ([]catalog.Product, error)
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	List(ctx context.Context, f catalog.Filter) (*catalog.Page, error)
	Create(ctx context.Context, p *catalog.Product) error
}

// CatalogHandler handles product endpoints.
type CatalogHandler struct {
	logger   *observability.Logger
	products ProductService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(logger *observability.Logger, products ProductService) *CatalogHandler {
	return &CatalogHandler{
		logger:   logger,
		products: products,
	}
}

// Search handles GET /api/search?q=.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required", "")
		return
	}

	products, err := h.products.Search(r.Context(), q)
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Str("q", q).Msg("Product search failed")
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productsOrEmpty(products))
}

// List handles GET /api/products.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	page, err := h.products.List(r.Context(), f)
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Product listing failed")
		fail(w, err)
		return
	}
	page.Products = productsOrEmpty(page.Products)
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/products/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/products.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		fail(w, err)
		return
	}

	h.logger.WithContext(r.Context()).Info().
		Str("product_id", p.ID).
		Str("name", p.Name).
		Msg("Product created")
	writeJSON(w, http.StatusCreated, p)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{SubcategoryID: q.Get("subCatId")}

	floats := map[string]*float64{
		"minPrice": &f.MinPrice,
		"maxPrice": &f.MaxPrice,
		"rating":   &f.MinRating,
	}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || n < 0 {
				return f, fmt.Errorf("%s: invalid value %q", name, v)
			}
			*dst = n
		}
	}

	ints := map[string]*int{
		"page":    &f.Page,
		"perPage": &f.PerPage,
	}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return f, fmt.Errorf("%s: invalid value %q", name, v)
			}
			*dst = n
		}
	}
	return f.Normalize(), nil
}
