package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Creator stores one product.
type Creator interface {
	Create(ctx context.Context, p *Product) error
}

// SeedResult summarizes one seed file import.
type SeedResult struct {
	Created int
	Skipped int
}

// ReadSeedFile decodes a JSON array of products.
func ReadSeedFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return products, nil
}

// LoadSeedFile imports every product in path. Products whose ID already
// exists are skipped. onProduct, when set, is called after each product.
func LoadSeedFile(ctx context.Context, path string, dst Creator, onProduct func()) (SeedResult, error) {
	var res SeedResult

	products, err := ReadSeedFile(path)
	if err != nil {
		return res, err
	}

	for i := range products {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := dst.Create(ctx, &products[i])
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, ErrConflict):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed product %q: %w", products[i].Name, err)
		}

		if onProduct != nil {
			onProduct()
		}
	}
	return res, nil
}
