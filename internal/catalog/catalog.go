// Package catalog holds the product model and the sources that list it.
package catalog

import "context"

// Product is an immutable snapshot of one catalog item.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceUnits  int64  `json:"price_units"`
}

// EmbeddingText is the text embedded for a product at ingestion time.
func (p Product) EmbeddingText() string {
	return p.Name + ". " + p.Description
}

// Source lists the full product catalog.
type Source interface {
	ListProducts(ctx context.Context) ([]Product, error)
}
