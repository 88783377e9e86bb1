// Package embeddingtest provides a deterministic embedding.Provider for tests.
package embeddingtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/embedding"
)

// Provider hashes lowercase words into a fixed number of buckets. The last
// component is a constant so no vector is ever all zeros.
type Provider struct {
	Dim int
	// FailOn makes Embed fail for these exact texts.
	FailOn map[string]bool

	mu    sync.Mutex
	calls map[embedding.Role]int
}

// New returns a Provider producing dim-dimensional vectors.
func New(dim int) *Provider {
	return &Provider{Dim: dim, FailOn: map[string]bool{}, calls: map[embedding.Role]int{}}
}

func (p *Provider) Kind() embedding.Kind { return embedding.KindOllama }

// Model encodes the dimension so differently sized fakes never share a
// cache entry.
func (p *Provider) Model() string { return fmt.Sprintf("hash-%d", p.Dim) }

func (p *Provider) Embed(_ context.Context, text string, role embedding.Role) ([]float32, error) {
	p.mu.Lock()
	p.calls[role]++
	p.mu.Unlock()
	if p.FailOn[text] {
		return nil, apperr.Wrap(apperr.ErrProvider, "fake embed", nil)
	}
	vec := make([]float32, p.Dim)
	vec[p.Dim-1] = 0.1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,!?")))
		vec[h.Sum32()%uint32(p.Dim-1)]++
	}
	return vec, nil
}

// Calls reports how many embeddings were requested for role.
func (p *Provider) Calls(role embedding.Role) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[role]
}
