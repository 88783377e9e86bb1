package store

import (
	"context"
	"fmt"

	"github.com/nidhogg/boutique-stylist/internal/ingest"
)

// RecordIngestRun stores the report of one ingestion run.
func (s *Store) RecordIngestRun(ctx context.Context, r *ingest.Report) error {
	skipped := r.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	batches := make([]int32, len(r.Batches))
	for i, b := range r.Batches {
		batches[i] = int32(b)
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO ingest_runs
			(id, provider, started_at, finished_at, products, embedded, upserted,
			 skipped, batches, failed_batches, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		r.RunID, r.Provider, r.StartedAt, r.FinishedAt, r.Products, r.Embedded, r.Upserted(),
		skipped, batches, r.FailedBatches, r.Error,
	)
	if err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

// ListIngestRuns returns the most recent runs, newest first.
func (s *Store) ListIngestRuns(ctx context.Context, limit int) ([]ingest.Report, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
		SELECT id::text, provider, started_at, finished_at, products, embedded,
		       skipped, batches, failed_batches, error
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()

	var out []ingest.Report
	for rows.Next() {
		var (
			r       ingest.Report
			batches []int32
		)
		if err := rows.Scan(&r.RunID, &r.Provider, &r.StartedAt, &r.FinishedAt, &r.Products,
			&r.Embedded, &r.Skipped, &batches, &r.FailedBatches, &r.Error); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		for _, b := range batches {
			r.Batches = append(r.Batches, int(b))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
