package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/embedding"
	"github.com/nidhogg/boutique-stylist/internal/embedding/embeddingtest"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type fakeJournal struct {
	queries []string
	matches [][]vectorstore.Match
	err     error
}

func (j *fakeJournal) Record(_ context.Context, query string, matches []vectorstore.Match) error {
	j.queries = append(j.queries, query)
	j.matches = append(j.matches, matches)
	return j.err
}

var testCatalog = []catalog.Product{
	{ID: "p1", Name: "Sun Hat", Description: "Wide brim straw hat", PriceUnits: 20},
	{ID: "p2", Name: "Wool Scarf", Description: "Warm knitted scarf for winter", PriceUnits: 35},
	{ID: "p3", Name: "Sunglasses", Description: "Polarized lenses for the beach", PriceUnits: 60},
	{ID: "p4", Name: "Hiking Boots", Description: "Waterproof leather boots", PriceUnits: 120},
	{ID: "p5", Name: "Beach Towel", Description: "Large striped cotton towel", PriceUnits: 25},
	{ID: "p6", Name: "Rain Jacket", Description: "Lightweight waterproof shell", PriceUnits: 90},
	{ID: "p7", Name: "Tote Bag", Description: "Canvas bag for shopping", PriceUnits: 15},
}

func seedIndex(t *testing.T, emb embedding.Provider, products []catalog.Product) *vectorstore.Memory {
	t.Helper()
	ctx := context.Background()
	idx := vectorstore.NewMemory("test")
	dim, err := embedding.Probe(ctx, emb)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.EnsureIndex(ctx, dim); err != nil {
		t.Fatal(err)
	}
	entries := make([]vectorstore.Entry, 0, len(products))
	for _, p := range products {
		vec, err := emb.Embed(ctx, p.EmbeddingText(), embedding.RoleDocument)
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, vectorstore.NewEntry(p, vec))
	}
	if err := idx.Upsert(ctx, entries); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestRetrieveReturnsAtMostKSorted(t *testing.T) {
	emb := embeddingtest.New(32)
	r := NewRetriever(emb, seedIndex(t, emb, testCatalog), 0, zap.NewNop())

	matches, err := r.Retrieve(context.Background(), "waterproof boots for the beach", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not sorted: %v", matches)
		}
	}

	all, err := r.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != DefaultTopK {
		t.Errorf("default top k: got %d", len(all))
	}
	if emb.Calls(embedding.RoleQuery) != 2 {
		t.Errorf("expected queries embedded with query role")
	}
}

func TestRetrieveExactMatchRanksFirst(t *testing.T) {
	emb := embeddingtest.New(32)
	r := NewRetriever(emb, seedIndex(t, emb, testCatalog), 5, zap.NewNop())

	for _, p := range testCatalog {
		matches, err := r.Retrieve(context.Background(), p.EmbeddingText(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 || matches[0].ID != p.ID {
			t.Errorf("query %q: got %v, want %s", p.EmbeddingText(), matches, p.ID)
		}
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	emb := embeddingtest.New(8)
	r := NewRetriever(emb, vectorstore.NewMemory("empty"), 5, zap.NewNop())
	matches, err := r.Retrieve(context.Background(), "socks", 5)
	if err != nil || len(matches) != 0 {
		t.Fatalf("expected no matches and no error, got %v, %v", matches, err)
	}
}

func TestFormatContextKeepsOrder(t *testing.T) {
	products := []catalog.Product{
		{Name: "A", Description: "first", PriceUnits: 1},
		{Name: "B", Description: "second", PriceUnits: 2},
	}
	want := "A - first ($1)\nB - second ($2)"
	if got := FormatContext(products); got != want {
		t.Errorf("FormatContext = %q, want %q", got, want)
	}
	if FormatContext(nil) != "" {
		t.Error("expected empty context for no products")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("beach vacation", "Sun Hat - Wide brim straw hat ($20)")
	for _, want := range []string{
		`"beach vacation"`,
		"Sun Hat - Wide brim straw hat ($20)",
		"recommend the best products",
		"score each of the products",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptKeepsQueryVerbatim(t *testing.T) {
	query := "a \"boho\" dress\nfor café night"
	prompt := BuildPrompt(query, "")
	if !strings.HasPrefix(prompt, "The user said: \""+query+"\"\n\n") {
		t.Errorf("query not embedded verbatim:\n%s", prompt)
	}
}

func TestRecommendEndToEnd(t *testing.T) {
	emb := embeddingtest.New(16)
	gen := &fakeGenerator{reply: "Pack the Sun Hat!"}
	rec := NewRecommender(
		NewRetriever(emb, seedIndex(t, emb, testCatalog[:1]), 5, zap.NewNop()),
		gen, Options{}, zap.NewNop())

	res, err := rec.Recommend(context.Background(), "beach vacation")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Recommendation != "Pack the Sun Hat!" {
		t.Errorf("recommendation = %q", res.Recommendation)
	}
	if len(res.Products) != 1 || res.Products[0] != testCatalog[0] {
		t.Errorf("products = %+v", res.Products)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generate call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "beach vacation") ||
		!strings.Contains(gen.prompts[0], "Sun Hat - Wide brim straw hat ($20)") {
		t.Errorf("prompt not grounded:\n%s", gen.prompts[0])
	}
}

func TestRecommendBlankQuery(t *testing.T) {
	emb := embeddingtest.New(8)
	gen := &fakeGenerator{reply: "x"}
	rec := NewRecommender(NewRetriever(emb, vectorstore.NewMemory("t"), 5, zap.NewNop()), gen, Options{}, zap.NewNop())

	for _, q := range []string{"", "   "} {
		res, err := rec.Recommend(context.Background(), q)
		if err != nil {
			t.Fatalf("Recommend(%q): %v", q, err)
		}
		if res.Products == nil || len(res.Products) != 0 {
			t.Errorf("expected empty product list, got %v", res.Products)
		}
	}
	if emb.Calls(embedding.RoleQuery) != 0 || len(gen.prompts) != 0 {
		t.Error("providers called for blank query")
	}
}

func TestRecommendNoMatches(t *testing.T) {
	emb := embeddingtest.New(8)
	gen := &fakeGenerator{reply: "generic advice"}
	retriever := NewRetriever(emb, vectorstore.NewMemory("t"), 5, zap.NewNop())

	res, err := NewRecommender(retriever, gen, Options{}, zap.NewNop()).Recommend(context.Background(), "socks")
	if err != nil {
		t.Fatal(err)
	}
	if res.Recommendation != NoMatchesMessage || len(res.Products) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator called with no matches")
	}

	res, err = NewRecommender(retriever, gen, Options{GenerateOnEmpty: true}, zap.NewNop()).Recommend(context.Background(), "socks")
	if err != nil {
		t.Fatal(err)
	}
	if res.Recommendation != "generic advice" || len(gen.prompts) != 1 {
		t.Errorf("expected generation on empty context, got %+v", res)
	}
}

func TestRecommendGeneratorError(t *testing.T) {
	emb := embeddingtest.New(16)
	gen := &fakeGenerator{err: apperr.Wrap(apperr.ErrProvider, "generate", errors.New("quota exceeded"))}
	rec := NewRecommender(NewRetriever(emb, seedIndex(t, emb, testCatalog), 5, zap.NewNop()), gen, Options{}, zap.NewNop())

	_, err := rec.Recommend(context.Background(), "beach")
	if !errors.Is(err, apperr.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestRecommendJournal(t *testing.T) {
	emb := embeddingtest.New(16)
	gen := &fakeGenerator{reply: "ok"}
	j := &fakeJournal{err: errors.New("neo4j down")}
	rec := NewRecommender(NewRetriever(emb, seedIndex(t, emb, testCatalog), 2, zap.NewNop()), gen, Options{TopK: 2}, zap.NewNop())
	rec.SetJournal(j)

	res, err := rec.Recommend(context.Background(), "beach towel")
	if err != nil {
		t.Fatalf("journal error must not fail the request: %v", err)
	}
	if len(j.queries) != 1 || j.queries[0] != "beach towel" || len(j.matches[0]) != len(res.Products) {
		t.Errorf("journal got %v / %v", j.queries, j.matches)
	}
}
