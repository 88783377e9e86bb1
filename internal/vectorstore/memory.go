package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
)

// Memory is an in-process Index for development and tests.
type Memory struct {
	name    string
	mu      sync.RWMutex
	dim     int
	order   []string
	entries map[string]Entry
}

// NewMemory returns an empty, not yet created index.
func NewMemory(name string) *Memory {
	return &Memory{name: name, entries: make(map[string]Entry)}
}

func (m *Memory) EnsureIndex(_ context.Context, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		m.dim = dimension
		return nil
	}
	if m.dim != dimension {
		return dimensionMismatch(m.name, m.dim, dimension)
	}
	return nil
}

// CheckDimension fails when the index exists with another dimension.
func (m *Memory) CheckDimension(_ context.Context, dimension int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dim != 0 && m.dim != dimension {
		return dimensionMismatch(m.name, m.dim, dimension)
	}
	return nil
}

func (m *Memory) Upsert(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		return apperr.Wrap(apperr.ErrIndex, "upsert", fmt.Errorf("index %q does not exist", m.name))
	}
	for _, e := range entries {
		if len(e.Vector) != m.dim {
			return apperr.Wrap(apperr.ErrIndex, "upsert",
				fmt.Errorf("entry %s has dimension %d, index has %d", e.ID, len(e.Vector), m.dim))
		}
	}
	for _, e := range entries {
		if _, ok := m.entries[e.ID]; !ok {
			m.order = append(m.order, e.ID)
		}
		m.entries[e.ID] = e
	}
	return nil
}

func (m *Memory) Query(_ context.Context, vector []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.order) == 0 {
		return nil, nil
	}
	if len(vector) != m.dim {
		return nil, apperr.Wrap(apperr.ErrIndex, "query",
			fmt.Errorf("query dimension %d, index has %d", len(vector), m.dim))
	}

	matches := make([]Match, 0, len(m.order))
	for _, id := range m.order {
		e := m.entries[id]
		matches = append(matches, Match{ID: id, Score: cosine(vector, e.Vector), Metadata: e.Metadata})
	}
	// Stable keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Snapshot returns every stored entry ordered by id.
func (m *Memory) Snapshot() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
