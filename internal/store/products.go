package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
)

// ListProducts returns the whole catalog ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, price_units
		FROM products
		ORDER BY id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamUnavailable, "list products", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceUnits); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamUnavailable, "list products", err)
	}
	return out, nil
}

// UpsertProducts writes products in one batch, replacing rows with the same id.
func (s *Store) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (id, name, description, price_units)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				price_units = EXCLUDED.price_units,
				updated_at = now()`,
			p.ID, p.Name, p.Description, p.PriceUnits)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	return nil
}
