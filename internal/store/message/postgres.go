package message

import (
	"context"
	"database/sql"
	"fmt"

	"conduit/internal/models"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresStore persists messages in PostgreSQL. The merge-upsert rules live
// in the ON CONFLICT clause: COALESCE keeps stored values for omitted fields
// and the processed flag combines with OR, mirroring internal/store/merge.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const saveMessageSQL = `
	INSERT INTO messages (id, origin_domain, destination_domain, leaf_index, root, body, processed)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		origin_domain      = COALESCE(NULLIF(EXCLUDED.origin_domain, ''), messages.origin_domain),
		destination_domain = COALESCE(NULLIF(EXCLUDED.destination_domain, ''), messages.destination_domain),
		leaf_index         = COALESCE(EXCLUDED.leaf_index, messages.leaf_index),
		root               = COALESCE(EXCLUDED.root, messages.root),
		body               = COALESCE(EXCLUDED.body, messages.body),
		processed          = messages.processed OR EXCLUDED.processed,
		updated_at         = now()
`

func (s *PostgresStore) SaveMessages(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	run := func(tx *sql.Tx) error {
		for _, m := range messages {
			if m == nil || m.ID == "" {
				continue
			}
			_, err := tx.ExecContext(ctx, saveMessageSQL,
				m.ID, m.OriginDomain, m.DestinationDomain,
				nullableUint(m.Index), m.Root, m.Body, m.Processed,
			)
			if err != nil {
				return fmt.Errorf("upsert message %s: %w", m.ID, err)
			}
		}
		return nil
	}
	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save messages: %w", err)
	}
	if err := run(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, origin_domain, destination_domain, leaf_index, root, body, processed
		FROM messages WHERE id = $1
	`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) GetPendingMessages(ctx context.Context, originDomain string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, origin_domain, destination_domain, leaf_index, root, body, processed
		FROM messages
		WHERE NOT processed AND ($1 = '' OR origin_domain = $1)
		ORDER BY origin_domain ASC, leaf_index ASC NULLS LAST, id ASC
	`
	args := []any{originDomain}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending messages: %w", err)
	}
	defer rows.Close()

	var pending []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending message: %w", err)
		}
		pending = append(pending, m)
	}
	return pending, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	var index sql.NullInt64
	if err := row.Scan(&m.ID, &m.OriginDomain, &m.DestinationDomain, &index, &m.Root, &m.Body, &m.Processed); err != nil {
		return nil, err
	}
	if index.Valid {
		v := uint64(index.Int64)
		m.Index = &v
	}
	return &m, nil
}

func nullableUint(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
