//go:build integration

package journal

import (
	"context"
	"testing"

	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	"go.uber.org/zap"

	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
)

func TestJournalTop(t *testing.T) {
	ctx := context.Background()
	container, err := tcneo4j.Run(ctx, "neo4j:5-community", tcneo4j.WithoutAuthentication())
	if err != nil {
		t.Fatalf("start neo4j: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	uri, err := container.BoltUrl(ctx)
	if err != nil {
		t.Fatalf("bolt url: %v", err)
	}
	s, err := NewStore(uri, "", "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close(ctx)
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	hat := vectorstore.Match{ID: "p1", Score: 0.8, Metadata: vectorstore.Metadata{Name: "Sun Hat"}}
	bag := vectorstore.Match{ID: "p2", Score: 0.4, Metadata: vectorstore.Metadata{Name: "Tote Bag"}}
	if err := s.Record(ctx, "beach vacation", []vectorstore.Match{hat, bag}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, "summer picnic", []vectorstore.Match{hat}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	top, err := s.Top(ctx, 5)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 products, got %+v", top)
	}
	if top[0].ProductID != "p1" || top[0].Served != 2 || top[0].BestRank != 1 {
		t.Errorf("unexpected top product %+v", top[0])
	}
	if top[1].ProductID != "p2" || top[1].Name != "Tote Bag" || top[1].BestRank != 2 {
		t.Errorf("unexpected second product %+v", top[1])
	}
}
