// Package balance maintains the per-router, per-domain, per-asset liquidity
// ledger and its aggregated read view.
package balance

import (
	"context"
	"fmt"
	"math/big"

	"conduit/internal/models"
	"conduit/pkg/platform/sentinel"
)

// Store is the router balance ledger. Snapshot writes are authoritative
// full-state upserts; the delta path adjusts one balance at a time and fails
// loudly on underflow rather than clamping.
type Store interface {
	// SaveRouterBalances replaces the stored amount for every (router, domain,
	// canonical asset id) in the batch. The input is an authoritative external
	// snapshot, so amounts replace rather than accumulate. Nil or empty
	// batches are no-ops; entries missing a key component or amount are
	// skipped.
	SaveRouterBalances(ctx context.Context, balances []*models.RouterBalance) error
	// AddLiquidity credits one balance, creating it when absent.
	AddLiquidity(ctx context.Context, router, domain, canonicalID string, amount *big.Int) error
	// RemoveLiquidity debits one balance. It returns ErrInvalidState when the
	// debit would take the stored amount below zero; the stored amount is left
	// untouched.
	RemoveLiquidity(ctx context.Context, router, domain, canonicalID string, amount *big.Int) error
	// GetRouterLiquidity returns all balances grouped by router, ordered by
	// (router address, domain, canonical asset id).
	GetRouterLiquidity(ctx context.Context) ([]*models.RouterLiquidity, error)
}

func validDelta(router, domain, canonicalID string, amount *big.Int) error {
	if router == "" || domain == "" || canonicalID == "" {
		return fmt.Errorf("balance key requires router, domain and canonical id: %w", sentinel.ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("liquidity delta must be a non-negative amount: %w", sentinel.ErrInvalidArgument)
	}
	return nil
}

func skippable(b *models.RouterBalance) bool {
	return b == nil || b.Router == "" || b.Domain == "" || b.CanonicalID == "" || b.Balance == nil || b.Balance.Sign() < 0
}
