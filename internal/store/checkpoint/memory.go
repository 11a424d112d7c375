package checkpoint

import (
	"context"
	"sync"
)

// InMemory keeps checkpoints in a map. Used by unit tests and embedded
// drivers; the semantics match PostgresStore exactly.
type InMemory struct {
	mu     sync.RWMutex
	values map[string]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{values: make(map[string]uint64)}
}

func (s *InMemory) GetCheckpoint(_ context.Context, name string) (uint64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name], nil
}

func (s *InMemory) SaveCheckpoint(_ context.Context, name string, value uint64) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	return nil
}
