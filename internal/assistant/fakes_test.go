package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/market-v/storefront/internal/catalog"
)

// fakeCatalog records every call. Search returns the scripted result for
// an exact query, or falls back to matching products whose name, brand or
// description contain all query words.
type fakeCatalog struct {
	mu        sync.Mutex
	products  []catalog.Product
	byQuery   map[string][]catalog.Product
	searchErr map[string]error
	listErr   error
	queries   []string
	listCalls int
	exactOnly bool
}

func (f *fakeCatalog) Search(ctx context.Context, q string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	if err := f.searchErr[q]; err != nil {
		return nil, err
	}
	if res, ok := f.byQuery[q]; ok {
		return res, nil
	}
	if f.exactOnly {
		return nil, nil
	}

	words := strings.Fields(strings.ToLower(q))
	var out []catalog.Product
	for _, p := range f.products {
		hay := strings.ToLower(p.Name + " " + p.Brand + " " + p.Description)
		all := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				all = false
				break
			}
		}
		if all {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListAll(ctx context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.products, nil
}

func (f *fakeCatalog) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *fakeCatalog) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func product(id, name, brand, description string) catalog.Product {
	return catalog.Product{ID: id, Name: name, Brand: brand, Description: description, SubcategoryID: "s-" + id}
}

func nikeShoeCatalog() *fakeCatalog {
	return &fakeCatalog{products: []catalog.Product{
		product("1", "Nike Pegasus Running Shoes", "Nike", "Everyday trainer"),
		product("2", "Nike Vomero Running Shoes", "Nike", "Max cushion"),
		product("3", "Nike Invincible Running Shoes", "Nike", "Soft ride"),
		product("4", "Nike Structure Running Shoes", "Nike", "Stability"),
		product("5", "Adidas Ultraboost Running Shoes", "Adidas", "Boost foam"),
		product("6", "Organic Whole Milk", "Farmhouse", "Fresh milk"),
	}}
}
