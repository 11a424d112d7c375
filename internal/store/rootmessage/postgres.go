package rootmessage

import (
	"context"
	"database/sql"
	"fmt"

	"conduit/internal/models"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresStore persists root messages in PostgreSQL. Merge rules live in the
// ON CONFLICT clause; the processed flag combines with OR so no interleaving
// of sent/processed writes can downgrade it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const saveRootSQL = `
	INSERT INTO root_messages (origin_domain, destination_domain, root, caller, tx_hash, sent_timestamp, block_number, processed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (origin_domain, destination_domain, root) DO UPDATE SET
		caller         = COALESCE(EXCLUDED.caller, root_messages.caller),
		tx_hash        = COALESCE(EXCLUDED.tx_hash, root_messages.tx_hash),
		sent_timestamp = COALESCE(EXCLUDED.sent_timestamp, root_messages.sent_timestamp),
		block_number   = COALESCE(EXCLUDED.block_number, root_messages.block_number),
		processed      = root_messages.processed OR EXCLUDED.processed,
		updated_at     = now()
`

func (s *PostgresStore) SaveSentRootMessages(ctx context.Context, roots []*models.RootMessage) error {
	return s.save(ctx, roots, false)
}

func (s *PostgresStore) SaveProcessedRootMessages(ctx context.Context, roots []*models.RootMessage) error {
	return s.save(ctx, roots, true)
}

func (s *PostgresStore) save(ctx context.Context, roots []*models.RootMessage, forceProcessed bool) error {
	if len(roots) == 0 {
		return nil
	}
	run := func(tx *sql.Tx) error {
		for _, r := range roots {
			if incomplete(r) {
				continue
			}
			_, err := tx.ExecContext(ctx, saveRootSQL,
				r.OriginDomain, r.DestinationDomain, r.Root,
				r.Caller, r.TxHash, nullableUint(r.Timestamp), nullableUint(r.BlockNumber),
				forceProcessed,
			)
			if err != nil {
				return fmt.Errorf("upsert root message %s: %w", r.Root, err)
			}
		}
		return nil
	}
	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save root messages: %w", err)
	}
	if err := run(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) GetRootMessages(ctx context.Context, processed *bool, limit int, order models.SortOrder) ([]*models.RootMessage, error) {
	dir := "ASC"
	if order.Normalize() == models.OrderDesc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT origin_domain, destination_domain, root, caller, tx_hash, sent_timestamp, block_number, processed
		FROM root_messages
		WHERE $1::BOOLEAN IS NULL OR processed = $1
		ORDER BY block_number %s NULLS LAST, origin_domain %s, destination_domain %s, root %s
	`, dir, dir, dir, dir)
	args := []any{nullableBool(processed)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list root messages: %w", err)
	}
	defer rows.Close()

	var out []*models.RootMessage
	for rows.Next() {
		var r models.RootMessage
		var ts, block sql.NullInt64
		if err := rows.Scan(&r.OriginDomain, &r.DestinationDomain, &r.Root, &r.Caller, &r.TxHash, &ts, &block, &r.Processed); err != nil {
			return nil, fmt.Errorf("scan root message: %w", err)
		}
		if ts.Valid {
			v := uint64(ts.Int64)
			r.Timestamp = &v
		}
		if block.Valid {
			v := uint64(block.Int64)
			r.BlockNumber = &v
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func nullableUint(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
