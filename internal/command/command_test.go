package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/gateway"
	"github.com/nidhogg/boutique-stylist/internal/journal"
	"github.com/nidhogg/boutique-stylist/internal/rag"
)

func echoCommand(name string, aliases ...string) *Command {
	return &Command{
		Name:        name,
		Aliases:     aliases,
		Description: "Echo the arguments",
		Handler: func(_ context.Context, args string, _ *Origin) (*Reply, error) {
			return &Reply{Content: name + ": " + args}, nil
		},
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoCommand("ping", "p"))
	ctx := context.Background()
	origin := &Origin{Platform: "test"}

	tests := []struct {
		input string
		want  string
	}{
		{"/ping hello", "ping: hello"},
		{"  /PING   hello  ", "ping: hello"},
		{"/p hello", "ping: hello"},
		{"/ping\nlinen shirt\nsize M", "ping: linen shirt\nsize M"},
		{"/ping", "ping: "},
	}
	for _, tt := range tests {
		result, err := reg.Dispatch(ctx, tt.input, origin)
		if err != nil {
			t.Fatalf("Dispatch(%q): %v", tt.input, err)
		}
		if result.Content != tt.want {
			t.Errorf("Dispatch(%q) = %q, want %q", tt.input, result.Content, tt.want)
		}
	}

	result, err := reg.Dispatch(ctx, "/unknown", origin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "/unknown") || !strings.Contains(result.Content, "/help") {
		t.Errorf("unexpected unknown-command reply %q", result.Content)
	}
}

func TestDispatchDoesNotHoldRegistryLock(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name: "late",
		Handler: func(_ context.Context, _ string, _ *Origin) (*Reply, error) {
			reg.Register(echoCommand("added"))
			return &Reply{Content: "ok"}, nil
		},
	})
	if _, err := reg.Dispatch(context.Background(), "/late", &Origin{}); err != nil {
		t.Fatal(err)
	}
	result, _ := reg.Dispatch(context.Background(), "/added x", &Origin{})
	if result.Content != "added: x" {
		t.Errorf("got %q", result.Content)
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{Name: "beta", Aliases: []string{"b"}})
	reg.Register(&Command{Name: "alpha"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("got %d commands, want 2", len(list))
	}
	if list[0].Name != "alpha" {
		t.Errorf("got %q first, want %q", list[0].Name, "alpha")
	}
}

type stubRecommender struct {
	res   *rag.Result
	err   error
	query string
}

func (s *stubRecommender) Recommend(_ context.Context, q string) (*rag.Result, error) {
	s.query = q
	return s.res, s.err
}

func TestSearchCommand(t *testing.T) {
	rec := &stubRecommender{res: &rag.Result{
		Recommendation: "Try these!",
		Products: []catalog.Product{
			{ID: "p1", Name: "Sun Hat", PriceUnits: 20},
			{ID: "p2", Name: "Tote Bag", PriceUnits: 15},
		},
	}}
	reg := NewRegistry()
	RegisterSearchCommand(reg, rec)

	result, err := reg.Dispatch(context.Background(), "/search beach vacation", &Origin{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.query != "beach vacation" {
		t.Errorf("query = %q", rec.query)
	}
	want := "Try these!\n\nProducts:\n1. Sun Hat ($20)\n2. Tote Bag ($15)"
	if result.Content != want {
		t.Errorf("got %q, want %q", result.Content, want)
	}

	result, _ = reg.Dispatch(context.Background(), "/search", &Origin{})
	if !strings.HasPrefix(result.Content, "Usage:") {
		t.Errorf("expected usage, got %q", result.Content)
	}

	rec.err = errors.New("boom")
	if _, err := reg.Dispatch(context.Background(), "/search socks", &Origin{}); err == nil {
		t.Error("expected recommender error to propagate")
	}
}

func TestFormatReplyNoProducts(t *testing.T) {
	got := FormatReply(&rag.Result{Recommendation: rag.NoMatchesMessage})
	if got != rag.NoMatchesMessage {
		t.Errorf("got %q", got)
	}
}

type stubTop struct{ limit int }

func (s *stubTop) Top(_ context.Context, limit int) ([]journal.ProductStat, error) {
	s.limit = limit
	return []journal.ProductStat{{ProductID: "p1", Name: "Sun Hat", Served: 3, AvgScore: 0.8}}, nil
}

func TestTopCommand(t *testing.T) {
	top := &stubTop{}
	reg := NewRegistry()
	RegisterInsightCommands(reg, top, nil)
	if len(reg.List()) != 1 {
		t.Fatalf("expected only /top registered, got %d commands", len(reg.List()))
	}

	result, err := reg.Dispatch(context.Background(), "/top 3", &Origin{})
	if err != nil {
		t.Fatal(err)
	}
	if top.limit != 3 || !strings.Contains(result.Content, "Sun Hat (served 3 times") {
		t.Errorf("limit=%d content=%q", top.limit, result.Content)
	}

	result, _ = reg.Dispatch(context.Background(), "/top many", &Origin{})
	if !strings.HasPrefix(result.Content, "Usage:") {
		t.Errorf("expected usage, got %q", result.Content)
	}
}

type stubStatus []gateway.AdapterStatus

func (s stubStatus) StatusAll() []gateway.AdapterStatus { return s }

func TestStatusAndHelp(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg, stubStatus{
		{Platform: "slack", Connected: true},
		{Platform: "discord", Error: "open failed"},
	})

	result, err := reg.Dispatch(context.Background(), "/status", &Origin{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Content, "slack: connected") ||
		!strings.Contains(result.Content, "discord: disconnected (open failed)") {
		t.Errorf("unexpected status %q", result.Content)
	}

	result, _ = reg.Dispatch(context.Background(), "/help", &Origin{})
	if !strings.Contains(result.Content, "/status") || !strings.Contains(result.Content, "/help") {
		t.Errorf("help does not list commands: %q", result.Content)
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("  /help") || IsCommand("red shoes") {
		t.Error("IsCommand misclassified input")
	}
}
