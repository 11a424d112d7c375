package message

import (
	"context"
	"sort"
	"sync"

	"conduit/internal/models"
	"conduit/internal/store/merge"
)

// InMemory keeps merged messages in a map, guarded by one lock so each batch
// applies atomically.
type InMemory struct {
	mu       sync.RWMutex
	messages map[string]*models.Message
}

func NewInMemory() *InMemory {
	return &InMemory{messages: make(map[string]*models.Message)}
}

func (s *InMemory) SaveMessages(_ context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range messages {
		if m == nil || m.ID == "" {
			continue
		}
		s.messages[m.ID] = merge.Message(s.messages[m.ID], m)
	}
	return nil
}

func (s *InMemory) GetMessageByID(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages[id].Clone(), nil
}

func (s *InMemory) GetPendingMessages(_ context.Context, originDomain string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.Message
	for _, m := range s.messages {
		if m.Processed {
			continue
		}
		if originDomain != "" && m.OriginDomain != originDomain {
			continue
		}
		pending = append(pending, m.Clone())
	}
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.OriginDomain != b.OriginDomain {
			return a.OriginDomain < b.OriginDomain
		}
		ai, bi := indexOrMax(a), indexOrMax(b)
		if ai != bi {
			return ai < bi
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// Messages whose dispatch record has not arrived yet sort after indexed ones,
// matching NULLS LAST in the Postgres store.
func indexOrMax(m *models.Message) uint64 {
	if m.Index == nil {
		return ^uint64(0)
	}
	return *m.Index
}
