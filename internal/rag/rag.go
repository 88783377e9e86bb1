package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/embedding"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

// DefaultTopK is the number of products retrieved per query.
const DefaultTopK = 5

// Retriever embeds a query and looks up its nearest products.
type Retriever struct {
	embedder embedding.Provider
	index    vectorstore.Index
	topK     int
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. topK <= 0 means DefaultTopK.
func NewRetriever(embedder embedding.Provider, index vectorstore.Index, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK, logger: logger}
}

// Retrieve returns at most topK matches for query, best first. topK <= 0
// uses the retriever's default. No matches is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = r.topK
	}
	vec, err := r.embedder.Embed(ctx, query, embedding.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, nil
	}

	matches, err := r.index.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	r.logger.Debug("retrieved", zap.Int("matches", len(matches)), zap.Int("top_k", topK))
	return matches, nil
}

// FormatContext renders products into the grounding block, one line each,
// preserving order.
func FormatContext(products []catalog.Product) string {
	lines := make([]string, len(products))
	for i, p := range products {
		lines[i] = fmt.Sprintf("%s - %s ($%d)", p.Name, p.Description, p.PriceUnits)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt embeds the verbatim user query and the context block.
func BuildPrompt(query, contextBlock string) string {
	var b strings.Builder
	b.WriteString("The user said: \"" + query + "\"\n\n")
	b.WriteString("Here are some products from our catalog that might be relevant:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nPlease recommend the best products in a friendly, engaging way. ")
	b.WriteString("Also score each of the products according to the relevance to the user given scenario/context.")
	return b.String()
}
