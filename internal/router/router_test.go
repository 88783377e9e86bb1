package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/command"
	"github.com/nidhogg/boutique-stylist/internal/gateway"
	"github.com/nidhogg/boutique-stylist/internal/rag"
	"go.uber.org/zap"
)

type stubRecommender struct {
	res   *rag.Result
	err   error
	delay time.Duration
}

func (s *stubRecommender) Recommend(ctx context.Context, _ string) (*rag.Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.res, s.err
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []*gateway.OutboundMessage
}

func (r *recordingSender) Send(_ context.Context, msg *gateway.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) only(t *testing.T) *gateway.OutboundMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(r.msgs))
	}
	return r.msgs[0]
}

func inbound(content string) *gateway.InboundMessage {
	return &gateway.InboundMessage{Platform: "slack", ChannelID: "C1", UserName: "u", Content: content, ReplyTo: "123.4"}
}

func TestHandleRecommendation(t *testing.T) {
	rec := &stubRecommender{res: &rag.Result{
		Recommendation: "The Sun Hat is perfect.",
		Products:       []catalog.Product{{ID: "p1", Name: "Sun Hat", PriceUnits: 20}},
	}}
	sender := &recordingSender{}
	mr := New(rec, sender, command.NewRegistry(), time.Second, zap.NewNop())

	mr.Handle(inbound("beach vacation"))
	mr.Wait()

	reply := sender.only(t)
	if reply.ChannelID != "C1" || reply.ReplyTo != "123.4" || reply.Platform != "slack" {
		t.Errorf("reply not addressed to origin: %+v", reply)
	}
	if !strings.Contains(reply.Content, "The Sun Hat is perfect.") || !strings.Contains(reply.Content, "1. Sun Hat ($20)") {
		t.Errorf("unexpected reply %q", reply.Content)
	}
}

func TestHandleCommand(t *testing.T) {
	reg := command.NewRegistry()
	reg.Register(&command.Command{
		Name: "ping",
		Handler: func(context.Context, string, *command.Origin) (*command.Reply, error) {
			return &command.Reply{Content: "pong"}, nil
		},
	})
	sender := &recordingSender{}
	mr := New(&stubRecommender{}, sender, reg, time.Second, zap.NewNop())

	mr.Handle(inbound("/ping"))
	mr.Wait()

	if got := sender.only(t).Content; got != "pong" {
		t.Errorf("got %q", got)
	}
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  *stubRecommender
		want string
	}{
		{"upstream", &stubRecommender{err: apperr.Wrap(apperr.ErrUpstreamUnavailable, "query", errors.New("refused"))}, "unavailable"},
		{"provider", &stubRecommender{err: apperr.Wrap(apperr.ErrProvider, "generate", errors.New("quota"))}, "could not come up"},
		{"timeout", &stubRecommender{delay: time.Second}, "took too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			mr := New(tt.rec, sender, nil, 20*time.Millisecond, zap.NewNop())
			mr.Handle(inbound("shoes"))
			mr.Wait()
			if got := sender.only(t).Content; !strings.Contains(got, tt.want) {
				t.Errorf("got %q, want mention of %q", got, tt.want)
			}
		})
	}
}

func TestHandleEmptyMessage(t *testing.T) {
	sender := &recordingSender{}
	mr := New(&stubRecommender{}, sender, nil, time.Second, zap.NewNop())
	mr.Handle(inbound("   "))
	mr.Wait()
	if got := sender.only(t).Content; !strings.Contains(got, "/help") {
		t.Errorf("got %q", got)
	}
}
