// Package vectorstore wraps the vector index holding product embeddings.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
)

// Index is a remote nearest-neighbour index keyed by a fixed name.
type Index interface {
	// EnsureIndex creates the index with the given dimension and cosine
	// metric unless it already exists.
	EnsureIndex(ctx context.Context, dimension int) error
	// CheckDimension is the read-only half of EnsureIndex: it rejects an
	// existing index built for another dimension and never creates one.
	CheckDimension(ctx context.Context, dimension int) error
	// Upsert inserts or overwrites entries by id.
	Upsert(ctx context.Context, entries []Entry) error
	// Query returns at most k matches sorted by descending score.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// Metadata is the denormalized product stored alongside each vector.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceUnits  int64  `json:"price_units"`
}

// Entry is one (id, vector, metadata) triple.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is a single query hit.
type Match struct {
	ID       string   `json:"id"`
	Score    float32  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// NewEntry builds the index entry for a product.
func NewEntry(p catalog.Product, vector []float32) Entry {
	return Entry{
		ID:     p.ID,
		Vector: vector,
		Metadata: Metadata{
			Name:        p.Name,
			Description: p.Description,
			PriceUnits:  p.PriceUnits,
		},
	}
}

// Product projects a match back into a catalog product.
func (m Match) Product() catalog.Product {
	return catalog.Product{
		ID:          m.ID,
		Name:        m.Metadata.Name,
		Description: m.Metadata.Description,
		PriceUnits:  m.Metadata.PriceUnits,
	}
}

// ErrDimensionMismatch means the existing index was built for another
// embedding provider.
var ErrDimensionMismatch = errors.New("index dimension does not match embedding dimension")

func dimensionMismatch(name string, have, want int) error {
	return apperr.Wrap(apperr.ErrConfiguration, "ensure index",
		fmt.Errorf("%w: index %q has %d, provider produces %d", ErrDimensionMismatch, name, have, want))
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
