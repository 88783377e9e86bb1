// Package ingest synchronizes the vector index with the product catalog.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/embedding"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds each upsert request.
const DefaultBatchSize = 100

// ErrEmptyCatalog aborts a run when the catalog lists no products.
var ErrEmptyCatalog = errors.New("catalog returned no products")

// Report summarizes one ingestion run.
type Report struct {
	RunID         string    `json:"run_id"`
	Provider      string    `json:"provider"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Products      int       `json:"products"`
	Embedded      int       `json:"embedded"`
	Skipped       []string  `json:"skipped"`
	Batches       []int     `json:"batches"`
	FailedBatches int       `json:"failed_batches"`
	Error         string    `json:"error,omitempty"`
}

// Upserted is the number of entries in committed batches.
func (r *Report) Upserted() int {
	n := 0
	for _, b := range r.Batches {
		n += b
	}
	return n
}

// RunRecorder persists run reports.
type RunRecorder interface {
	RecordIngestRun(ctx context.Context, r *Report) error
}

// Pipeline reads the catalog, embeds every product and upserts the vectors.
type Pipeline struct {
	source    catalog.Source
	embedder  embedding.Provider
	index     vectorstore.Index
	batchSize int
	recorder  RunRecorder
	logger    *zap.Logger
}

// New creates a Pipeline. batchSize <= 0 means DefaultBatchSize.
func New(source catalog.Source, embedder embedding.Provider, index vectorstore.Index, batchSize int, logger *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		source:    source,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SetRecorder enables persisting run reports.
func (p *Pipeline) SetRecorder(r RunRecorder) {
	p.recorder = r
}

// Run performs one full re-embed and re-upsert of the catalog. Products that
// fail to embed are skipped; a failed batch does not stop later batches but
// makes Run return an error once all batches were attempted.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	rep := &Report{
		RunID:     uuid.New().String(),
		Provider:  string(p.embedder.Kind()),
		StartedAt: time.Now().UTC(),
	}

	products, err := p.source.ListProducts(ctx)
	if err != nil {
		return p.finish(ctx, rep, fmt.Errorf("fetch catalog: %w", err))
	}
	if len(products) == 0 {
		return p.finish(ctx, rep, apperr.Wrap(apperr.ErrUpstreamUnavailable, "fetch catalog", ErrEmptyCatalog))
	}
	rep.Products = len(products)
	p.logger.Info("catalog fetched", zap.Int("products", len(products)))

	dim, err := embedding.Probe(ctx, p.embedder)
	if err != nil {
		return p.finish(ctx, rep, fmt.Errorf("probe embedding dimension: %w", err))
	}
	if err := p.index.EnsureIndex(ctx, dim); err != nil {
		return p.finish(ctx, rep, err)
	}

	entries := make([]vectorstore.Entry, 0, len(products))
	for _, prod := range products {
		vec, err := p.embedder.Embed(ctx, prod.EmbeddingText(), embedding.RoleDocument)
		if err == nil && len(vec) != dim {
			err = fmt.Errorf("got dimension %d, want %d", len(vec), dim)
		}
		if err != nil {
			p.logger.Warn("skipping product, embedding failed",
				zap.String("product", prod.ID), zap.Error(err))
			rep.Skipped = append(rep.Skipped, prod.ID)
			continue
		}
		entries = append(entries, vectorstore.NewEntry(prod, vec))
	}
	rep.Embedded = len(entries)
	if len(entries) == 0 {
		return p.finish(ctx, rep, apperr.Wrap(apperr.ErrProvider, "embed catalog", errors.New("no product could be embedded")))
	}

	batches := Batches(entries, p.batchSize)
	for i, batch := range batches {
		if err := p.index.Upsert(ctx, batch); err != nil {
			rep.FailedBatches++
			p.logger.Error("batch upsert failed",
				zap.Int("batch", i), zap.Int("size", len(batch)), zap.Error(err))
			continue
		}
		rep.Batches = append(rep.Batches, len(batch))
		p.logger.Info("upserted vectors", zap.Int("batch", i), zap.Int("size", len(batch)))
	}

	if rep.FailedBatches > 0 {
		return p.finish(ctx, rep, apperr.Wrap(apperr.ErrIndex, "upsert",
			fmt.Errorf("%d of %d batches failed", rep.FailedBatches, len(batches))))
	}
	p.logger.Info("finished upserting product vectors",
		zap.Int("upserted", rep.Upserted()), zap.Int("skipped", len(rep.Skipped)))
	return p.finish(ctx, rep, nil)
}

func (p *Pipeline) finish(ctx context.Context, rep *Report, runErr error) (*Report, error) {
	rep.FinishedAt = time.Now().UTC()
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	if p.recorder != nil {
		if err := p.recorder.RecordIngestRun(ctx, rep); err != nil {
			p.logger.Warn("failed to record ingest run", zap.String("run", rep.RunID), zap.Error(err))
		}
	}
	return rep, runErr
}

// Batches splits entries into consecutive chunks of at most size.
func Batches(entries []vectorstore.Entry, size int) [][]vectorstore.Entry {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]vectorstore.Entry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		out = append(out, entries[start:end])
	}
	return out
}
