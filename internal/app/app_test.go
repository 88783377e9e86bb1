package app

import (
	"context"
	"errors"
	"testing"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/config"
	"github.com/nidhogg/boutique-stylist/internal/embedding"
	"github.com/nidhogg/boutique-stylist/internal/embedding/embeddingtest"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

func devConfig() *config.Config {
	cfg := config.Default()
	cfg.Embedding.Provider = "OLLAMA"
	cfg.Generation.Provider = "OLLAMA"
	cfg.Index.Backend = "memory"
	return cfg
}

func TestOpenMemoryBackend(t *testing.T) {
	c, err := Open(context.Background(), devConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if c.Embedder.Kind() != embedding.KindOllama {
		t.Errorf("embedder kind = %s", c.Embedder.Kind())
	}
	if _, ok := c.Index.(*vectorstore.Memory); !ok {
		t.Errorf("index is %T, want *vectorstore.Memory", c.Index)
	}
	if c.Store != nil || c.Journal != nil {
		t.Error("optional stores should be nil when unconfigured")
	}

	src, err := c.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if _, ok := src.(*catalog.GRPCSource); !ok {
		t.Errorf("catalog is %T", src)
	}
	if _, err := c.Recommender(context.Background()); err != nil {
		t.Errorf("Recommender: %v", err)
	}
}

func TestOpenRejectsUnknownEmbedding(t *testing.T) {
	cfg := devConfig()
	cfg.Embedding.Provider = "COHERE"
	if _, err := Open(context.Background(), cfg, zap.NewNop()); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCatalogPostgresWithoutStore(t *testing.T) {
	cfg := devConfig()
	c, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	cfg.Catalog.Source = "postgres"
	if _, err := c.Catalog(); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCheckIndexRejectsOtherDimension(t *testing.T) {
	ctx := context.Background()
	idx := vectorstore.NewMemory("online-boutique-products")
	if err := idx.EnsureIndex(ctx, 16); err != nil {
		t.Fatal(err)
	}
	c := &Components{Config: devConfig(), Embedder: embeddingtest.New(8), Index: idx, logger: zap.NewNop()}

	_, err := c.CheckIndex(ctx)
	if !errors.Is(err, apperr.ErrConfiguration) || !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}

	c.Embedder = embeddingtest.New(16)
	dim, err := c.CheckIndex(ctx)
	if err != nil || dim != 16 {
		t.Errorf("matching index: dim=%d err=%v", dim, err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn"} {
		if _, err := NewLogger(lvl); err != nil {
			t.Errorf("NewLogger(%q): %v", lvl, err)
		}
	}
	if _, err := NewLogger("loud"); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
