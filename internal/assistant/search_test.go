package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/observability"
)

func newTestOrchestrator(c Catalog) *Orchestrator {
	return NewOrchestrator(c, time.Second, observability.NopLogger(), nil)
}

func TestOrchestrator_StrategyOrder(t *testing.T) {
	o := newTestOrchestrator(&fakeCatalog{})
	intent := QueryIntent{
		SearchTerms: []string{"trail shoes", " ", "hiking boots"},
		Brands:      []string{"Salomon", "Merrell"},
		ProductType: "footwear",
		Attributes:  []string{"waterproof", "", "wide"},
	}

	var names []string
	for _, s := range o.Strategies(intent, "raw") {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"term[0]", "term[2]",
		"brand+type", "brand", "type",
		"attribute[0]", "attribute[2]",
		"flexible",
	}, names)
}

func TestOrchestrator_StopsAtFirstNonEmptyStrategy(t *testing.T) {
	hit := []catalog.Product{product("h", "Hiking Boots", "Merrell", "")}
	c := &fakeCatalog{
		exactOnly: true,
		byQuery:   map[string][]catalog.Product{"hiking boots": hit},
	}
	o := newTestOrchestrator(c)

	intent := QueryIntent{
		SearchTerms: []string{"trail shoes", "hiking boots", "sandals"},
		Brands:      []string{"Merrell"},
		ProductType: "boots",
		Attributes:  []string{"waterproof"},
	}

	res := o.SearchWithStrategy(context.Background(), intent, "raw text")
	assert.Equal(t, hit, res.Products)
	assert.Equal(t, "term[1]", res.Strategy)
	assert.Equal(t, []string{"trail shoes", "hiking boots"}, c.Queries())
	assert.Zero(t, c.ListCalls())
}

func TestOrchestrator_BrandAndTypeBeforeBrandAlone(t *testing.T) {
	nikeShoes := []catalog.Product{product("n1", "Air Max", "Nike", "")}
	c := &fakeCatalog{
		exactOnly: true,
		byQuery: map[string][]catalog.Product{
			"Nike shoes": nikeShoes,
			"Nike":       {product("n2", "Nike Cap", "Nike", "")},
		},
	}
	o := newTestOrchestrator(c)

	got := o.Search(context.Background(), QueryIntent{Brands: []string{"Nike"}, ProductType: "shoes"}, "nike shoes please")
	assert.Equal(t, nikeShoes, got)
	assert.Equal(t, []string{"Nike shoes"}, c.Queries())
}

func TestOrchestrator_FallsThroughEveryStrategy(t *testing.T) {
	c := &fakeCatalog{exactOnly: true}
	o := newTestOrchestrator(c)

	intent := QueryIntent{
		SearchTerms: []string{"a"},
		Brands:      []string{"B"},
		ProductType: "t",
		Attributes:  []string{"x", "y"},
	}
	res := o.SearchWithStrategy(context.Background(), intent, "zz")
	assert.Empty(t, res.Products)
	assert.Empty(t, res.Strategy)
	assert.Equal(t, []string{"a", "B t", "B", "t", "x", "y"}, c.Queries())
	// "zz" has no usable tokens so the catalog is never listed
	assert.Zero(t, c.ListCalls())
}

func TestOrchestrator_SearchErrorsAreTreatedAsEmpty(t *testing.T) {
	want := []catalog.Product{product("m", "Whole Milk", "Farmhouse", "")}
	c := &fakeCatalog{
		exactOnly: true,
		searchErr: map[string]error{"milk": errors.New("connection reset")},
		byQuery:   map[string][]catalog.Product{"Farmhouse": want},
	}
	o := newTestOrchestrator(c)

	got := o.Search(context.Background(), QueryIntent{SearchTerms: []string{"milk"}, Brands: []string{"Farmhouse"}}, "milk")
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"milk", "Farmhouse"}, c.Queries())
}

func TestOrchestrator_FlexibleIsLastResort(t *testing.T) {
	c := &fakeCatalog{
		exactOnly: true,
		products: []catalog.Product{
			product("1", "Nike Red Running Shoes", "Nike", "Lightweight"),
			product("2", "Blue Jeans", "Levi's", "Denim"),
		},
	}
	o := newTestOrchestrator(c)

	res := o.SearchWithStrategy(context.Background(), QueryIntent{SearchTerms: []string{"crimson sneakers"}}, "red running shoes")
	require.Len(t, res.Products, 1)
	assert.Equal(t, "1", res.Products[0].ID)
	assert.Equal(t, "flexible", res.Strategy)
	assert.Equal(t, 1, c.ListCalls())
}

func TestOrchestrator_CatalogCallTimeout(t *testing.T) {
	slow := &blockingCatalog{}
	o := NewOrchestrator(slow, 10*time.Millisecond, nil, nil)

	got := o.Search(context.Background(), QueryIntent{SearchTerms: []string{"milk"}}, "milk")
	assert.Empty(t, got)
	assert.Equal(t, 1, slow.calls)
}

func TestOrchestrator_StopsWhenContextCancelled(t *testing.T) {
	c := &fakeCatalog{exactOnly: true}
	o := newTestOrchestrator(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := o.Search(ctx, QueryIntent{SearchTerms: []string{"a", "b"}}, "running shoes")
	assert.Empty(t, got)
	assert.Empty(t, c.Queries())
}

type blockingCatalog struct {
	calls int
}

func (b *blockingCatalog) Search(ctx context.Context, q string) ([]catalog.Product, error) {
	b.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingCatalog) ListAll(ctx context.Context) ([]catalog.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
