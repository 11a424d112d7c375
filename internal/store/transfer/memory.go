package transfer

import (
	"context"
	"sort"
	"sync"

	"conduit/internal/models"
	"conduit/internal/store/merge"
)

// InMemory keeps merged transfers in a map guarded by one lock, so each batch
// applies atomically and same-key writers serialize. Status is derived on
// every read, never cached.
type InMemory struct {
	mu        sync.RWMutex
	transfers map[string]*models.Transfer
	sink      StatusEventSink
}

func NewInMemory(sink StatusEventSink) *InMemory {
	return &InMemory{transfers: make(map[string]*models.Transfer), sink: sink}
}

func (s *InMemory) SaveTransfers(ctx context.Context, transfers []*models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range transfers {
		if t == nil || t.TransferID == "" {
			continue
		}
		existing := s.transfers[t.TransferID]
		merged := merge.Transfer(existing, t)
		s.transfers[t.TransferID] = merged

		// New records emit their initial status; existing ones only on change.
		if s.sink != nil && (existing == nil || models.DeriveStatus(existing) != models.DeriveStatus(merged)) {
			if err := s.sink.TransferStatusChanged(ctx, merged.TransferID, models.DeriveStatus(merged)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *InMemory) GetTransferByID(_ context.Context, transferID string) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transfers[transferID].Clone(), nil
}

func (s *InMemory) GetTransfersByStatus(_ context.Context, status models.TransferStatus, limit, offset int, order models.SortOrder) ([]*models.Transfer, error) {
	if !models.KnownStatus(status) {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Transfer
	for _, t := range s.transfers {
		if models.DeriveStatus(t) == status {
			matched = append(matched, t.Clone())
		}
	}
	sortTransfers(matched, order)
	return page(matched, limit, offset), nil
}

func (s *InMemory) GetTransfersWithOriginPending(_ context.Context, domain string, limit int, order models.SortOrder) ([]string, error) {
	return s.pendingIDs(domain, limit, order, func(t *models.Transfer) bool {
		return t.Params.OriginDomain == domain && t.Origin == nil && t.Destination != nil
	})
}

func (s *InMemory) GetTransfersWithDestinationPending(_ context.Context, domain string, limit int, order models.SortOrder) ([]string, error) {
	return s.pendingIDs(domain, limit, order, func(t *models.Transfer) bool {
		return t.Params.DestinationDomain == domain && t.Origin != nil && t.Destination == nil
	})
}

func (s *InMemory) pendingIDs(domain string, limit int, order models.SortOrder, pending func(*models.Transfer) bool) ([]string, error) {
	if domain == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Transfer
	for _, t := range s.transfers {
		if pending(t) {
			matched = append(matched, t)
		}
	}
	sortTransfers(matched, order)
	matched = page(matched, limit, 0)
	ids := make([]string, len(matched))
	for i, t := range matched {
		ids[i] = t.TransferID
	}
	return ids, nil
}

// sortTransfers orders by (nonce, transfer ID); records without a nonce sort
// last in both directions, matching NULLS LAST in the Postgres store.
func sortTransfers(ts []*models.Transfer, order models.SortOrder) {
	desc := order.Normalize() == models.OrderDesc
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i].Params.Nonce, ts[j].Params.Nonce
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
		if desc {
			return ts[i].TransferID > ts[j].TransferID
		}
		return ts[i].TransferID < ts[j].TransferID
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
