// Package catalog provides the product model and SQL-backed catalog store.
package catalog

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound = errors.New("product not found")
	ErrInvalid  = errors.New("invalid product")
)

// Product is a catalog entry. The assistant and comparison engine only
// read it.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Description   string    `json:"description"`
	CategoryID    string    `json:"categoryId"`
	SubcategoryID string    `json:"subCatId"`
	Subcategory   string    `json:"subcategory"`
	Price         float64   `json:"price"`
	Images        []string  `json:"images"`
	Features      []string  `json:"features"`
	Rating        float64   `json:"rating"`
	CountInStock  int       `json:"countInStock"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate checks the fields required to store a product.
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return errors.Join(ErrInvalid, errors.New("name is required"))
	case p.SubcategoryID == "":
		return errors.Join(ErrInvalid, errors.New("subcategory id is required"))
	case p.Price < 0:
		return errors.Join(ErrInvalid, errors.New("price must not be negative"))
	case p.Rating < 0 || p.Rating > 5:
		return errors.Join(ErrInvalid, errors.New("rating must be between 0 and 5"))
	case p.CountInStock < 0:
		return errors.Join(ErrInvalid, errors.New("count in stock must not be negative"))
	}
	return nil
}

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	SubcategoryID string
	MinPrice      float64
	MaxPrice      float64
	MinRating     float64
	Page          int
	PerPage       int
}

// Normalize fills in paging defaults.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 10
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
	return f
}

// Page is one page of a product listing.
type Page struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}
