package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "conduit/pkg/platform/tx"
)

// PostgresStore persists checkpoints in PostgreSQL. Pure I/O; resume and
// monotonicity policy belong to the calling driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) runner(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetCheckpoint(ctx context.Context, name string) (uint64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	var value uint64
	err := s.runner(ctx).QueryRowContext(ctx,
		`SELECT value FROM checkpoints WHERE name = $1`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get checkpoint %q: %w", name, err)
	}
	return value, nil
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, name string, value uint64) error {
	if err := validateName(name); err != nil {
		return err
	}
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO checkpoints (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("save checkpoint %q: %w", name, err)
	}
	return nil
}
