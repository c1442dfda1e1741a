package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "catalog.db"), OpenOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := NewMigrator(db, "sqlite").Up(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_products_sqlite.sql"}, applied)

	return NewRepository(db, "sqlite")
}

func seedProducts(t *testing.T, repo *Repository, products ...Product) []Product {
	t.Helper()
	for i := range products {
		require.NoError(t, repo.Create(context.Background(), &products[i]))
	}
	return products
}

func TestMigrator_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "m.db"), OpenOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db, "sqlite")
	_, err = m.Up(ctx)
	require.NoError(t, err)

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.UpToDate)
	assert.Equal(t, 1, status.Total)
}

func TestMigrator_ListsDriverSpecificFiles(t *testing.T) {
	pg := &Migrator{driver: "postgres", files: NewMigrator(nil, "postgres").files}
	files, err := pg.listMigrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_products.sql"}, files)
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	p := &Product{
		Name:          "Nike Air Zoom Running Shoes",
		Brand:         "Nike",
		SubcategoryID: "sub-shoes",
		Subcategory:   "Shoes",
		Price:         129.99,
		Images:        []string{"a.jpg"},
		Features:      []string{"breathable mesh", "foam midsole"},
		Rating:        4.5,
		CountInStock:  3,
	}
	require.NoError(t, repo.Create(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Features, got.Features)
	assert.Equal(t, p.Images, got.Images)
	assert.InDelta(t, 129.99, got.Price, 0.001)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &Product{ID: p.ID, Name: "dup", SubcategoryID: "sub-shoes"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrConflict)
}

func TestRepository_CreateValidates(t *testing.T) {
	repo := setupTestRepository(t)
	err := repo.Create(context.Background(), &Product{Name: "no subcategory"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRepository_Search(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	seedProducts(t, repo,
		Product{Name: "Organic Milk", Brand: "Farmhouse", SubcategoryID: "dairy"},
		Product{Name: "Running Shoes", Brand: "Nike", SubcategoryID: "shoes"},
		Product{Name: "Trail Shoes", Brand: "Adidas", Description: "great for RUNNING", SubcategoryID: "shoes"},
		Product{Name: "100% Juice", Brand: "Sunny", SubcategoryID: "drinks"},
	)

	got, err := repo.Search(ctx, "running", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Running Shoes", got[0].Name)
	assert.Equal(t, "Trail Shoes", got[1].Name)

	got, err = repo.Search(ctx, "NIKE", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repo.Search(ctx, "shoes", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = repo.Search(ctx, "%", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% Juice", got[0].Name)

	got, err = repo.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepository_SearchFoldsNonASCII(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	seedProducts(t, repo,
		Product{Name: "Äpfel Saft", Brand: "Öko", SubcategoryID: "drinks"},
		Product{Name: "Crème Brûlée", Brand: "ÉCLAIR", Description: "Dessert à la FRANÇAISE", SubcategoryID: "desserts"},
	)

	for _, q := range []string{"Äpfel", "äpfel", "ÄPFEL SAFT"} {
		got, err := repo.Search(ctx, q, 0)
		require.NoError(t, err, q)
		require.Len(t, got, 1, q)
		assert.Equal(t, "Äpfel Saft", got[0].Name)
	}

	got, err := repo.Search(ctx, "ÖKO", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repo.Search(ctx, "éclair", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Crème Brûlée", got[0].Name)

	got, err = repo.Search(ctx, "française", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}))
	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: products.id")))
}

func TestRepository_ListAllKeepsInsertionOrder(t *testing.T) {
	repo := setupTestRepository(t)

	seedProducts(t, repo,
		Product{ID: "c", Name: "Third", SubcategoryID: "x"},
		Product{ID: "a", Name: "First", SubcategoryID: "x"},
		Product{ID: "b", Name: "Second", SubcategoryID: "x"},
	)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestRepository_ListFilters(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	seedProducts(t, repo,
		Product{Name: "Cheap Milk", SubcategoryID: "dairy", Price: 1.5, Rating: 3},
		Product{Name: "Fancy Milk", SubcategoryID: "dairy", Price: 6, Rating: 5},
		Product{Name: "Cheddar", SubcategoryID: "dairy", Price: 4, Rating: 4},
		Product{Name: "Cola", SubcategoryID: "drinks", Price: 2, Rating: 4},
	)

	tests := []struct {
		name      string
		filter    Filter
		wantNames []string
		wantTotal int
	}{
		{name: "subcategory", filter: Filter{SubcategoryID: "dairy"}, wantNames: []string{"Cheddar", "Fancy Milk", "Cheap Milk"}, wantTotal: 3},
		{name: "price range", filter: Filter{MinPrice: 2, MaxPrice: 5}, wantNames: []string{"Cola", "Cheddar"}, wantTotal: 2},
		{name: "rating", filter: Filter{MinRating: 4.5}, wantNames: []string{"Fancy Milk"}, wantTotal: 1},
		{name: "paging", filter: Filter{Page: 2, PerPage: 3}, wantNames: []string{"Cheap Milk"}, wantTotal: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.Total)

			var names []string
			for _, p := range page.Products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	var ticks int
	res, err := LoadSeedFile(ctx, filepath.Join("testdata", "products.json"), repo, func() { ticks++ })
	require.NoError(t, err)
	assert.Equal(t, 5, res.Created)
	assert.Equal(t, 5, ticks)

	res, err = LoadSeedFile(ctx, filepath.Join("testdata", "products.json"), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 5, res.Skipped)

	_, err = LoadSeedFile(ctx, "testdata/missing.json", repo, nil)
	assert.Error(t, err)
}
