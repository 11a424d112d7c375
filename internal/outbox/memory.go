package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"conduit/internal/models"
)

// InMemory keeps pending events in a slice, insertion-ordered.
type InMemory struct {
	mu        sync.Mutex
	events    []*Event
	published map[uuid.UUID]bool
}

func NewInMemory() *InMemory {
	return &InMemory{published: make(map[uuid.UUID]bool)}
}

func (s *InMemory) TransferStatusChanged(_ context.Context, transferID string, status models.TransferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, &Event{
		ID:         uuid.New(),
		TransferID: transferID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (s *InMemory) ListUnpublished(_ context.Context, limit int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Event
	for _, e := range s.events {
		if s.published[e.ID] {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}
