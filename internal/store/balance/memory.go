package balance

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"conduit/internal/models"
	"conduit/pkg/platform/sentinel"
)

type key struct {
	router      string
	domain      string
	canonicalID string
}

// InMemory keeps the ledger in a map guarded by one lock so snapshot batches
// apply atomically.
type InMemory struct {
	mu       sync.RWMutex
	balances map[key]*big.Int
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[key]*big.Int)}
}

func (s *InMemory) SaveRouterBalances(_ context.Context, balances []*models.RouterBalance) error {
	if len(balances) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range balances {
		if skippable(b) {
			continue
		}
		s.balances[key{b.Router, b.Domain, b.CanonicalID}] = new(big.Int).Set(b.Balance)
	}
	return nil
}

func (s *InMemory) AddLiquidity(_ context.Context, router, domain, canonicalID string, amount *big.Int) error {
	if err := validDelta(router, domain, canonicalID, amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{router, domain, canonicalID}
	current := s.balances[k]
	if current == nil {
		current = new(big.Int)
	}
	s.balances[k] = new(big.Int).Add(current, amount)
	return nil
}

func (s *InMemory) RemoveLiquidity(_ context.Context, router, domain, canonicalID string, amount *big.Int) error {
	if err := validDelta(router, domain, canonicalID, amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{router, domain, canonicalID}
	current := s.balances[k]
	if current == nil {
		// A zero debit against a missing row is a no-op, never a new entry.
		if amount.Sign() == 0 {
			return nil
		}
		current = new(big.Int)
	}
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("remove %s from balance %s of router %s: %w",
			amount, current, router, sentinel.ErrInvalidState)
	}
	s.balances[k] = new(big.Int).Sub(current, amount)
	return nil
}

func (s *InMemory) GetRouterLiquidity(_ context.Context) ([]*models.RouterLiquidity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]key, 0, len(s.balances))
	for k := range s.balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.router != b.router {
			return a.router < b.router
		}
		if a.domain != b.domain {
			return a.domain < b.domain
		}
		return a.canonicalID < b.canonicalID
	})

	var out []*models.RouterLiquidity
	for _, k := range keys {
		if len(out) == 0 || out[len(out)-1].Router != k.router {
			out = append(out, &models.RouterLiquidity{Router: k.router})
		}
		group := out[len(out)-1]
		group.Balances = append(group.Balances, models.RouterBalance{
			Router:      k.router,
			Domain:      k.domain,
			CanonicalID: k.canonicalID,
			Balance:     new(big.Int).Set(s.balances[k]),
		})
	}
	return out, nil
}
