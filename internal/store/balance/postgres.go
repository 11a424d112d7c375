package balance

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"conduit/internal/models"
	"conduit/pkg/platform/sentinel"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresStore persists the ledger in PostgreSQL. Snapshot upserts replace
// amounts (EXCLUDED wins); deltas are applied with single atomic statements so
// concurrent adjustments of the same balance never interleave partially.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveRouterBalances(ctx context.Context, balances []*models.RouterBalance) error {
	if len(balances) == 0 {
		return nil
	}
	run := func(tx *sql.Tx) error {
		for _, b := range balances {
			if skippable(b) {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO router_balances (router, domain, canonical_id, balance)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (router, domain, canonical_id) DO UPDATE SET
					balance = EXCLUDED.balance,
					updated_at = now()
			`, b.Router, b.Domain, b.CanonicalID, b.Balance.String())
			if err != nil {
				return fmt.Errorf("upsert balance for router %s: %w", b.Router, err)
			}
		}
		return nil
	}
	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save router balances: %w", err)
	}
	if err := run(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) AddLiquidity(ctx context.Context, router, domain, canonicalID string, amount *big.Int) error {
	if err := validDelta(router, domain, canonicalID, amount); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO router_balances (router, domain, canonical_id, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (router, domain, canonical_id) DO UPDATE SET
			balance = router_balances.balance + EXCLUDED.balance,
			updated_at = now()
	`, router, domain, canonicalID, amount.String())
	if err != nil {
		return fmt.Errorf("add liquidity for router %s: %w", router, err)
	}
	return nil
}

func (s *PostgresStore) RemoveLiquidity(ctx context.Context, router, domain, canonicalID string, amount *big.Int) error {
	if err := validDelta(router, domain, canonicalID, amount); err != nil {
		return err
	}
	// The guarded UPDATE only fires when the debit keeps the balance
	// non-negative; zero rows means underflow (a missing row counts as a zero
	// balance).
	res, err := s.db.ExecContext(ctx, `
		UPDATE router_balances
		SET balance = balance - $4, updated_at = now()
		WHERE router = $1 AND domain = $2 AND canonical_id = $3 AND balance >= $4
	`, router, domain, canonicalID, amount.String())
	if err != nil {
		return fmt.Errorf("remove liquidity for router %s: %w", router, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove liquidity for router %s: %w", router, err)
	}
	if affected == 0 {
		if amount.Sign() == 0 {
			return nil
		}
		return fmt.Errorf("remove %s from router %s on domain %s would underflow: %w",
			amount, router, domain, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) GetRouterLiquidity(ctx context.Context) ([]*models.RouterLiquidity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT router, domain, canonical_id, balance
		FROM router_balances
		ORDER BY router ASC, domain ASC, canonical_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list router liquidity: %w", err)
	}
	defer rows.Close()

	var out []*models.RouterLiquidity
	for rows.Next() {
		var b models.RouterBalance
		var balance string
		if err := rows.Scan(&b.Router, &b.Domain, &b.CanonicalID, &balance); err != nil {
			return nil, fmt.Errorf("scan router balance: %w", err)
		}
		v, ok := new(big.Int).SetString(balance, 10)
		if !ok {
			return nil, fmt.Errorf("parse balance %q for router %s: %w", balance, b.Router, sentinel.ErrInvalidState)
		}
		b.Balance = v
		if len(out) == 0 || out[len(out)-1].Router != b.Router {
			out = append(out, &models.RouterLiquidity{Router: b.Router})
		}
		group := out[len(out)-1]
		group.Balances = append(group.Balances, b)
	}
	return out, rows.Err()
}
