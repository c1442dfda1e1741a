package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrConflict is returned when a product ID is already taken.
var ErrConflict = errors.New("product already exists")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository handles product persistence. Queries use $n placeholders,
// which both sqlite3 and postgres accept.
type Repository struct {
	db    DB
	lower string
}

// NewRepository creates a new product repository. driver is "sqlite" or
// "postgres", matching Open.
func NewRepository(db DB, driver string) *Repository {
	lower := "LOWER"
	if driver == "sqlite" {
		lower = "ulower"
	}
	return &Repository{db: db, lower: lower}
}

const productColumns = `id, name, brand, description, category_id, subcategory_id, subcategory,
	price, images, features, rating, count_in_stock, created_at, updated_at`

// Create inserts a product, assigning an ID and timestamps when missing.
func (r *Repository) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	images, err := encodeList(p.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	features, err := encodeList(p.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Brand, p.Description, p.CategoryID, p.SubcategoryID, p.Subcategory,
		p.Price, images, features, p.Rating, p.CountInStock, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, p.ID)
	}
	return err
}

// GetByID retrieves a product by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Search returns products whose name, brand or description contains q,
// case-insensitively, in catalog order. A limit <= 0 means no limit.
func (r *Repository) Search(ctx context.Context, q string, limit int) ([]Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	query := fmt.Sprintf(`
		SELECT %[1]s FROM products
		WHERE %[2]s(name) LIKE $1 ESCAPE '\'
			OR %[2]s(brand) LIKE $1 ESCAPE '\'
			OR %[2]s(description) LIKE $1 ESCAPE '\'
		ORDER BY seq
	`, productColumns, r.lower)
	args := []interface{}{pattern}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	return r.queryProducts(ctx, query, args...)
}

// ListAll returns the full catalog in insertion order.
func (r *Repository) ListAll(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
}

// List returns one filtered page, newest first.
func (r *Repository) List(ctx context.Context, f Filter) (*Page, error) {
	f = f.Normalize()

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.SubcategoryID != "" {
		add("subcategory_id = $%d", f.SubcategoryID)
	}
	if f.MinPrice > 0 {
		add("price >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price <= $%d", f.MaxPrice)
	}
	if f.MinRating > 0 {
		add("rating >= $%d", f.MinRating)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY seq DESC LIMIT $%d OFFSET $%d",
		productColumns, where, len(args)+1, len(args)+2)
	products, err := r.queryProducts(ctx, query, append(args, f.PerPage, (f.Page-1)*f.PerPage)...)
	if err != nil {
		return nil, err
	}

	return &Page{
		Products:   products,
		Total:      total,
		Page:       f.Page,
		TotalPages: (total + f.PerPage - 1) / f.PerPage,
	}, nil
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (*Product, error) {
	var (
		p                Product
		images, features string
	)
	err := s.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Description, &p.CategoryID, &p.SubcategoryID, &p.Subcategory,
		&p.Price, &images, &features, &p.Rating, &p.CountInStock, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
		return nil, fmt.Errorf("decode features for %s: %w", p.ID, err)
	}
	return &p, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	return string(b), err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
