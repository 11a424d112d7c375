package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"conduit/internal/models"
	txcontext "conduit/pkg/platform/tx"
)

// PostgresStore writes events to the transfer_events table. When the context
// carries the transfer save's transaction, the event commits or rolls back
// with the save itself.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) runner(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) TransferStatusChanged(ctx context.Context, transferID string, status models.TransferStatus) error {
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO transfer_events (id, transfer_id, status, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), transferID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert transfer event for %s: %w", transferID, err)
	}
	return nil
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT id, transfer_id, status, occurred_at
		FROM transfer_events
		WHERE published_at IS NULL
		ORDER BY occurred_at ASC, id ASC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		var status string
		if err := rows.Scan(&e.ID, &e.TransferID, &status, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transfer event: %w", err)
		}
		e.Status = models.TransferStatus(status)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE transfer_events SET published_at = now() WHERE id = ANY($1::uuid[])
	`, pq.Array(strs))
	if err != nil {
		return fmt.Errorf("mark events published: %w", err)
	}
	return nil
}
