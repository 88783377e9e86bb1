package journal

import (
	"testing"
	"time"

	"github.com/nidhogg/boutique-stylist/internal/vectorstore"
)

func TestRecordParams(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	matches := []vectorstore.Match{
		{ID: "p1", Score: 0.9, Metadata: vectorstore.Metadata{Name: "Sun Hat", PriceUnits: 20}},
		{ID: "p2", Score: 0.5, Metadata: vectorstore.Metadata{Name: "Tote Bag", PriceUnits: 15}},
	}

	params := recordParams("q1", "  Beach   Vacation ", at, matches)

	if params["normalized"] != "beach vacation" {
		t.Errorf("normalized = %q", params["normalized"])
	}
	if params["text"] != "  Beach   Vacation " {
		t.Errorf("text must be stored verbatim, got %q", params["text"])
	}
	if params["servedAt"] != "2026-03-01T12:00:00Z" {
		t.Errorf("servedAt = %v", params["servedAt"])
	}
	items := params["items"].([]map[string]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0]["rank"] != int64(1) || items[1]["rank"] != int64(2) {
		t.Errorf("ranks not in match order: %v", items)
	}
	if items[1]["product_id"] != "p2" || items[1]["price_units"] != int64(15) {
		t.Errorf("unexpected item %v", items[1])
	}
}
