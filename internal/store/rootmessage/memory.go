package rootmessage

import (
	"context"
	"sort"
	"sync"

	"conduit/internal/models"
	"conduit/internal/store/merge"
)

// InMemory keeps merged root messages in a map, one lock per store so batches
// apply atomically.
type InMemory struct {
	mu    sync.RWMutex
	roots map[key]*models.RootMessage
}

func NewInMemory() *InMemory {
	return &InMemory{roots: make(map[key]*models.RootMessage)}
}

func (s *InMemory) SaveSentRootMessages(ctx context.Context, roots []*models.RootMessage) error {
	return s.save(roots, false)
}

func (s *InMemory) SaveProcessedRootMessages(ctx context.Context, roots []*models.RootMessage) error {
	return s.save(roots, true)
}

func (s *InMemory) save(roots []*models.RootMessage, forceProcessed bool) error {
	if len(roots) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range roots {
		if incomplete(r) {
			continue
		}
		in := r.Clone()
		// The sent path carries no processed value; only the processed path
		// may raise the flag, and merge.Or keeps it from ever dropping.
		in.Processed = forceProcessed
		k := keyOf(in)
		s.roots[k] = merge.RootMessage(s.roots[k], in)
	}
	return nil
}

func (s *InMemory) GetRootMessages(_ context.Context, processed *bool, limit int, order models.SortOrder) ([]*models.RootMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.RootMessage
	for _, r := range s.roots {
		if processed != nil && r.Processed != *processed {
			continue
		}
		out = append(out, r.Clone())
	}
	desc := order.Normalize() == models.OrderDesc
	// Records created by a processed-before-sent write have no block number
	// yet; they sort last in both directions, matching the Postgres store's
	// explicit NULLS LAST.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].BlockNumber, out[j].BlockNumber
		switch {
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		case a != nil && b != nil && *a != *b:
			if desc {
				return *a > *b
			}
			return *a < *b
		}
		// Ties on block number break on the full composite key so the order
		// stays deterministic when the same root spans domain pairs.
		ka, kb := keyOf(out[i]), keyOf(out[j])
		if desc {
			return kb.less(ka)
		}
		return ka.less(kb)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
