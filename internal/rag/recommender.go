// Package rag grounds generated shopping recommendations in products
// retrieved from the vector index.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/provider"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

// NoMatchesMessage is returned instead of a generated text when retrieval
// finds nothing and generation on empty context is disabled.
const NoMatchesMessage = "No relevant products found."

// Result is the response for one query.
type Result struct {
	Recommendation string            `json:"recommendation"`
	Products       []catalog.Product `json:"products"`
}

// Journal records served recommendations.
type Journal interface {
	Record(ctx context.Context, query string, matches []vectorstore.Match) error
}

// Options tunes a Recommender.
type Options struct {
	TopK int
	// GenerateOnEmpty calls the generator even when nothing was retrieved.
	GenerateOnEmpty bool
}

// Recommender runs retrieve → context → prompt → generate for one query.
type Recommender struct {
	retriever *Retriever
	generator provider.Generator
	journal   Journal
	opts      Options
	logger    *zap.Logger
}

// NewRecommender creates a Recommender.
func NewRecommender(retriever *Retriever, generator provider.Generator, opts Options, logger *zap.Logger) *Recommender {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Recommender{retriever: retriever, generator: generator, opts: opts, logger: logger}
}

// SetJournal enables recording of served recommendations.
func (r *Recommender) SetJournal(j Journal) {
	r.journal = j
}

// Recommend answers query with ranked products and a generated text. A blank
// query yields an empty result without calling any provider.
func (r *Recommender) Recommend(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return &Result{Recommendation: NoMatchesMessage, Products: []catalog.Product{}}, nil
	}

	matches, err := r.retriever.Retrieve(ctx, query, r.opts.TopK)
	if err != nil {
		return nil, err
	}

	products := make([]catalog.Product, len(matches))
	for i, m := range matches {
		products[i] = m.Product()
	}

	if len(products) == 0 && !r.opts.GenerateOnEmpty {
		r.logger.Info("no matches, skipping generation", zap.String("query", query))
		return &Result{Recommendation: NoMatchesMessage, Products: products}, nil
	}

	prompt := BuildPrompt(query, FormatContext(products))
	text, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate recommendation: %w", err)
	}

	if r.journal != nil && len(matches) > 0 {
		if err := r.journal.Record(ctx, query, matches); err != nil {
			r.logger.Warn("journal record failed", zap.Error(err))
		}
	}

	r.logger.Info("recommendation served",
		zap.String("query", query),
		zap.Int("products", len(products)),
		zap.String("generator", r.generator.Name()))
	return &Result{Recommendation: text, Products: products}, nil
}
