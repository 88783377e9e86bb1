package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/rag"
)

// Recommender answers shopping queries.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*rag.Result, error)
}

// RegisterSearchCommand registers the /search command.
func RegisterSearchCommand(reg *Registry, rec Recommender) {
	reg.Register(&Command{
		Name:        "search",
		Aliases:     []string{"find", "s"},
		Description: "Recommend catalog products for a request",
		Usage:       "/search <what you are shopping for>",
		Handler: func(ctx context.Context, args string, _ *Origin) (*Reply, error) {
			if strings.TrimSpace(args) == "" {
				return &Reply{Content: "Usage: /search <what you are shopping for>"}, nil
			}
			res, err := rec.Recommend(ctx, args)
			if err != nil {
				return nil, fmt.Errorf("recommend: %w", err)
			}
			return &Reply{Content: FormatReply(res), Data: res}, nil
		},
	})
}

// FormatReply renders a recommendation for chat: the generated text followed
// by the retrieved products in ranking order.
func FormatReply(res *rag.Result) string {
	if len(res.Products) == 0 {
		return res.Recommendation
	}
	var b strings.Builder
	b.WriteString(res.Recommendation)
	b.WriteString("\n\nProducts:\n")
	for i, p := range res.Products {
		fmt.Fprintf(&b, "%d. %s ($%d)\n", i+1, p.Name, p.PriceUnits)
	}
	return strings.TrimRight(b.String(), "\n")
}
