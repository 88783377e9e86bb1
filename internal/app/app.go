// Package app wires configured components for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/config"
	"github.com/nidhogg/boutique-stylist/internal/embedding"
	"github.com/nidhogg/boutique-stylist/internal/journal"
	"github.com/nidhogg/boutique-stylist/internal/provider"
	"github.com/nidhogg/boutique-stylist/internal/rag"
	"github.com/nidhogg/boutique-stylist/internal/store"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

// MigrationsDir is where Store.Migrate looks for .up.sql files.
const MigrationsDir = "migrations"

// Components holds the shared backends. Optional ones are nil when not
// configured or unreachable.
type Components struct {
	Config   *config.Config
	Embedder embedding.Provider
	Index    vectorstore.Index
	Store    *store.Store
	Journal  *journal.Store

	closers []func()
	logger  *zap.Logger
}

// Open connects the embedding provider, the vector index and the optional
// stores. Only failures of required components are returned.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, logger: logger}

	emb, err := embedding.New(ctx, embedding.Config{
		Provider: cfg.Embedding.Provider,
		Endpoint: cfg.Embedding.Endpoint,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
	}, logger)
	if err != nil {
		return nil, err
	}
	c.Embedder = emb

	if cfg.Database.Redis.URL != "" {
		cache, err := embedding.NewRedisCache(ctx, cfg.Database.Redis.URL, cfg.Cache.TTL())
		if err != nil {
			logger.Warn("Redis unavailable, running without embedding cache", zap.Error(err))
		} else {
			c.Embedder = embedding.NewCached(emb, cache, logger)
			c.closers = append(c.closers, func() { cache.Close() })
			logger.Info("Embedding cache enabled", zap.Duration("ttl", cfg.Cache.TTL()))
		}
	}

	switch cfg.Index.Backend {
	case "memory":
		c.Index = vectorstore.NewMemory(cfg.Index.Name)
		logger.Warn("using in-process vector index, contents are lost on exit")
	default:
		qc, err := vectorstore.NewClient(vectorstore.QdrantConfig{
			Host:       cfg.Index.Host,
			Port:       cfg.Index.Port,
			Collection: cfg.Index.Name,
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Index = qc
		c.closers = append(c.closers, func() { qc.Close() })
	}

	if cfg.Database.Postgres.DSN != "" {
		ps, err := store.New(ctx, cfg.Database.Postgres.DSN, logger)
		switch {
		case err != nil && cfg.Catalog.Source == "postgres":
			c.Close()
			return nil, err
		case err != nil:
			logger.Warn("PostgreSQL unavailable, running without run ledger", zap.Error(err))
		default:
			if err := ps.Migrate(ctx, MigrationsDir); err != nil {
				ps.Close()
				c.Close()
				return nil, err
			}
			c.Store = ps
			c.closers = append(c.closers, ps.Close)
		}
	}

	if cfg.Database.Neo4j.URI != "" {
		js, err := journal.NewStore(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if err == nil {
			err = js.Ping(ctx)
		}
		if err != nil {
			logger.Warn("Neo4j unavailable, running without recommendation journal", zap.Error(err))
		} else {
			c.Journal = js
			c.closers = append(c.closers, func() { js.Close(context.Background()) })
		}
	}
	return c, nil
}

// CheckIndex probes the embedder and verifies that an existing index was
// built for the same dimension. It never creates the index.
func (c *Components) CheckIndex(ctx context.Context) (int, error) {
	dim, err := embedding.Probe(ctx, c.Embedder)
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if err := c.Index.CheckDimension(ctx, dim); err != nil {
		return 0, err
	}
	return dim, nil
}

// Catalog returns the configured product source.
func (c *Components) Catalog() (catalog.Source, error) {
	switch c.Config.Catalog.Source {
	case "postgres":
		if c.Store == nil {
			return nil, apperr.Configf("catalog source postgres requires database.postgres.dsn")
		}
		return c.Store, nil
	case "grpc":
		src, err := catalog.NewGRPCSource(c.Config.Catalog.Address, c.logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { src.Close() })
		return src, nil
	default:
		return nil, apperr.Configf("unknown catalog source %q", c.Config.Catalog.Source)
	}
}

// Recommender builds the retrieval and generation chain.
func (c *Components) Recommender(ctx context.Context) (*rag.Recommender, error) {
	gen, err := provider.New(ctx, provider.Config{
		Provider: c.Config.Generation.Provider,
		Endpoint: c.Config.Generation.Endpoint,
		Model:    c.Config.Generation.Model,
		APIKey:   c.Config.Generation.APIKey,
		Timeout:  c.Config.Server.RequestTimeout(),
	}, c.logger)
	if err != nil {
		return nil, err
	}
	retriever := rag.NewRetriever(c.Embedder, c.Index, c.Config.Retrieval.TopK, c.logger)
	rec := rag.NewRecommender(retriever, gen, rag.Options{
		TopK:            c.Config.Retrieval.TopK,
		GenerateOnEmpty: c.Config.Recommend.GenerateOnEmpty,
	}, c.logger)
	if c.Journal != nil {
		rec.SetJournal(c.Journal)
	}
	return rec, nil
}

// Close releases everything Open and Catalog acquired, last first.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// NewLogger returns a development logger for "debug" (or empty) and a JSON
// production logger at the given level otherwise.
func NewLogger(level string) (*zap.Logger, error) {
	switch level {
	case "", "debug":
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "log level", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
