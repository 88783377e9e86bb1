// Package journal records served recommendations as a query → product graph
// in Neo4j.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
	"go.uber.org/zap"
)

// ProductStat aggregates how often a product was recommended.
type ProductStat struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Served    int64   `json:"served"`
	AvgScore  float64 `json:"avg_score"`
	BestRank  int64   `json:"best_rank"`
}

// Store handles Neo4j operations for the recommendation journal.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a new Neo4j journal store.
func NewStore(uri, user, password string, logger *zap.Logger) (*Store, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "create neo4j driver", err)
	}
	return &Store{driver: driver, logger: logger}, nil
}

// Close shuts down the Neo4j driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Record stores one served query with its ranked matches.
func (s *Store) Record(ctx context.Context, query string, matches []vectorstore.Match) error {
	if len(matches) == 0 {
		return nil
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`CREATE (q:Query {id: $id, text: $text, normalized: $normalized, served_at: datetime($servedAt)})
		 WITH q
		 UNWIND $items AS item
		 MERGE (p:Product {id: item.product_id})
		 SET p.name = item.name, p.price_units = item.price_units
		 CREATE (q)-[:RECOMMENDED {rank: item.rank, score: item.score}]->(p)`,
		recordParams(uuid.NewString(), query, time.Now().UTC(), matches))
	if err != nil {
		return fmt.Errorf("record recommendation: %w", err)
	}
	s.logger.Debug("journal recorded", zap.String("query", query), zap.Int("products", len(matches)))
	return nil
}

// Top returns the most frequently recommended products.
func (s *Store) Top(ctx context.Context, limit int) ([]ProductStat, error) {
	if limit <= 0 {
		limit = 10
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (:Query)-[r:RECOMMENDED]->(p:Product)
		 RETURN p.id AS id, p.name AS name, count(r) AS served,
		        avg(r.score) AS avg_score, min(r.rank) AS best_rank
		 ORDER BY served DESC, id ASC LIMIT $limit`,
		map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}

	var stats []ProductStat
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		name, _ := rec.Get("name")
		served, _ := rec.Get("served")
		avg, _ := rec.Get("avg_score")
		best, _ := rec.Get("best_rank")
		stat := ProductStat{ProductID: id.(string), Served: served.(int64), BestRank: best.(int64)}
		if n, ok := name.(string); ok {
			stat.Name = n
		}
		if a, ok := avg.(float64); ok {
			stat.AvgScore = a
		}
		stats = append(stats, stat)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return stats, nil
}

// recordParams builds the Cypher parameters for Record. Ranks start at 1.
func recordParams(id, query string, servedAt time.Time, matches []vectorstore.Match) map[string]interface{} {
	items := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		items[i] = map[string]interface{}{
			"product_id":  m.ID,
			"name":        m.Metadata.Name,
			"price_units": m.Metadata.PriceUnits,
			"rank":        int64(i + 1),
			"score":       float64(m.Score),
		}
	}
	return map[string]interface{}{
		"id":         id,
		"text":       query,
		"normalized": strings.ToLower(strings.Join(strings.Fields(query), " ")),
		"servedAt":   servedAt.Format(time.RFC3339Nano),
		"items":      items,
	}
}
