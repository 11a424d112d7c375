package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"conduit/internal/models"
	"conduit/internal/store/merge"
	txcontext "conduit/pkg/platform/tx"
)

var tracer = otel.Tracer("conduit/store/transfer")

// PostgresStore persists merged transfers in PostgreSQL. Saves lock the row
// (SELECT ... FOR UPDATE), merge in Go through the same primitive the
// in-memory store uses, and write the full merged row back, so concurrent
// same-key batches serialize and the final state is independent of
// interleaving order.
//
// The derived status is also persisted, recomputed from the merged record on
// every write, purely so status queries stay indexable; reads still derive it
// from record shape.
type PostgresStore struct {
	db   *sql.DB
	sink StatusEventSink
}

// NewPostgres builds the store. sink may be nil to disable status-change
// emission.
func NewPostgres(db *sql.DB, sink StatusEventSink) *PostgresStore {
	return &PostgresStore{db: db, sink: sink}
}

const transferColumns = `
	transfer_id, origin_domain, destination_domain, nonce, canonical_id, call_data_hash, force_slow, receive_local,
	origin_present, origin_caller, origin_asset, origin_amount, origin_timestamp, origin_tx_hash,
	destination_present, routers,
	execute_present, execute_caller, execute_tx_hash, execute_timestamp, execute_amount,
	reconcile_present, reconcile_caller, reconcile_tx_hash, reconcile_timestamp, reconcile_amount`

func (s *PostgresStore) SaveTransfers(ctx context.Context, transfers []*models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "transfer.SaveTransfers")
	defer span.End()
	recordBatchSize(span, len(transfers))

	run := func(tx *sql.Tx) error {
		for _, t := range transfers {
			if t == nil || t.TransferID == "" {
				continue
			}
			// FOR UPDATE cannot lock a row that does not exist yet, so two
			// first writers could otherwise both read "absent" and the later
			// full-row upsert would erase the earlier one. Materialize the
			// row first; ON CONFLICT makes racing writers queue on it.
			created, err := s.ensureRow(ctx, tx, t.TransferID)
			if err != nil {
				return err
			}
			var existing *models.Transfer
			if !created {
				existing, err = s.getForUpdate(ctx, tx, t.TransferID)
				if err != nil {
					return err
				}
			}
			merged := merge.Transfer(existing, t)
			status := models.DeriveStatus(merged)
			if err := s.upsert(ctx, tx, merged, status); err != nil {
				return err
			}
			// New records emit their initial status; existing ones only on
			// change.
			if s.sink != nil && (existing == nil || models.DeriveStatus(existing) != status) {
				if err := s.sink.TransferStatusChanged(txcontext.WithTx(ctx, tx), merged.TransferID, status); err != nil {
					return fmt.Errorf("emit status change for %s: %w", merged.TransferID, err)
				}
			}
		}
		return nil
	}
	if tx, ok := txcontext.From(ctx); ok {
		return run(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transfers: %w", err)
	}
	if err := run(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ensureRow(ctx context.Context, tx *sql.Tx, transferID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (transfer_id) VALUES ($1) ON CONFLICT (transfer_id) DO NOTHING`, transferID)
	if err != nil {
		return false, fmt.Errorf("ensure transfer row %s: %w", transferID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure transfer row %s: %w", transferID, err)
	}
	return n == 1, nil
}

func (s *PostgresStore) getForUpdate(ctx context.Context, tx *sql.Tx, transferID string) (*models.Transfer, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE transfer_id = $1 FOR UPDATE`, transferID)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock transfer %s: %w", transferID, err)
	}
	return t, nil
}

func (s *PostgresStore) upsert(ctx context.Context, tx *sql.Tx, t *models.Transfer, status models.TransferStatus) error {
	origin := t.Origin
	if origin == nil {
		origin = &models.OriginTransfer{}
	}
	var routers []string
	execute := &models.ExecuteRecord{}
	reconcile := &models.ReconcileRecord{}
	if t.Destination != nil {
		routers = t.Destination.Routers
		if t.Destination.Execute != nil {
			execute = t.Destination.Execute
		}
		if t.Destination.Reconcile != nil {
			reconcile = t.Destination.Reconcile
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transfers (`+transferColumns+`, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
		        $9, $10, $11, $12, $13, $14,
		        $15, $16,
		        $17, $18, $19, $20, $21,
		        $22, $23, $24, $25, $26,
		        $27)
		ON CONFLICT (transfer_id) DO UPDATE SET
			origin_domain = EXCLUDED.origin_domain,
			destination_domain = EXCLUDED.destination_domain,
			nonce = EXCLUDED.nonce,
			canonical_id = EXCLUDED.canonical_id,
			call_data_hash = EXCLUDED.call_data_hash,
			force_slow = EXCLUDED.force_slow,
			receive_local = EXCLUDED.receive_local,
			origin_present = EXCLUDED.origin_present,
			origin_caller = EXCLUDED.origin_caller,
			origin_asset = EXCLUDED.origin_asset,
			origin_amount = EXCLUDED.origin_amount,
			origin_timestamp = EXCLUDED.origin_timestamp,
			origin_tx_hash = EXCLUDED.origin_tx_hash,
			destination_present = EXCLUDED.destination_present,
			routers = EXCLUDED.routers,
			execute_present = EXCLUDED.execute_present,
			execute_caller = EXCLUDED.execute_caller,
			execute_tx_hash = EXCLUDED.execute_tx_hash,
			execute_timestamp = EXCLUDED.execute_timestamp,
			execute_amount = EXCLUDED.execute_amount,
			reconcile_present = EXCLUDED.reconcile_present,
			reconcile_caller = EXCLUDED.reconcile_caller,
			reconcile_tx_hash = EXCLUDED.reconcile_tx_hash,
			reconcile_timestamp = EXCLUDED.reconcile_timestamp,
			reconcile_amount = EXCLUDED.reconcile_amount,
			status = EXCLUDED.status,
			updated_at = now()
	`,
		t.TransferID, t.Params.OriginDomain, t.Params.DestinationDomain,
		nullableUint(t.Params.Nonce), t.Params.CanonicalID, t.Params.CallDataHash,
		t.Params.ForceSlow, t.Params.ReceiveLocal,
		t.Origin != nil, origin.Caller, origin.Asset, bigString(origin.Amount), int64(origin.Timestamp), origin.TxHash,
		t.Destination != nil, pq.Array(routers),
		t.Destination != nil && t.Destination.Execute != nil,
		execute.Caller, execute.TxHash, int64(execute.Timestamp), bigString(execute.Amount),
		t.Destination != nil && t.Destination.Reconcile != nil,
		reconcile.Caller, reconcile.TxHash, int64(reconcile.Timestamp), bigString(reconcile.Amount),
		string(status),
	)
	if err != nil {
		return fmt.Errorf("upsert transfer %s: %w", t.TransferID, err)
	}
	return nil
}

func (s *PostgresStore) GetTransferByID(ctx context.Context, transferID string) (*models.Transfer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE transfer_id = $1`, transferID)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer %s: %w", transferID, err)
	}
	return t, nil
}

func (s *PostgresStore) GetTransfersByStatus(ctx context.Context, status models.TransferStatus, limit, offset int, order models.SortOrder) ([]*models.Transfer, error) {
	if !models.KnownStatus(status) {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "transfer.GetTransfersByStatus")
	defer span.End()
	span.SetAttributes(attribute.String("transfer.status", string(status)))

	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
		SELECT %s FROM transfers
		WHERE status = $1
		ORDER BY nonce %[2]s NULLS LAST, transfer_id %[2]s
		OFFSET $2
	`, transferColumns, sqlDir(order))
	args := []any{string(status), offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers by status: %w", err)
	}
	defer rows.Close()

	var out []*models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetTransfersWithOriginPending(ctx context.Context, domain string, limit int, order models.SortOrder) ([]string, error) {
	return s.pendingIDs(ctx, `origin_domain = $1 AND NOT origin_present AND destination_present`, domain, limit, order)
}

func (s *PostgresStore) GetTransfersWithDestinationPending(ctx context.Context, domain string, limit int, order models.SortOrder) ([]string, error) {
	return s.pendingIDs(ctx, `destination_domain = $1 AND origin_present AND NOT destination_present`, domain, limit, order)
}

func (s *PostgresStore) pendingIDs(ctx context.Context, where, domain string, limit int, order models.SortOrder) ([]string, error) {
	if domain == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT transfer_id FROM transfers
		WHERE %s
		ORDER BY nonce %[2]s NULLS LAST, transfer_id %[2]s
	`, where, sqlDir(order))
	args := []any{domain}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending transfer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var (
		t models.Transfer

		nonce sql.NullInt64

		originPresent   bool
		origin          models.OriginTransfer
		originAmount    sql.NullString
		originTimestamp int64

		destinationPresent bool
		routers            pq.StringArray

		executePresent   bool
		execute          models.ExecuteRecord
		executeAmount    sql.NullString
		executeTimestamp int64

		reconcilePresent   bool
		reconcile          models.ReconcileRecord
		reconcileAmount    sql.NullString
		reconcileTimestamp int64
	)
	err := row.Scan(
		&t.TransferID, &t.Params.OriginDomain, &t.Params.DestinationDomain, &nonce,
		&t.Params.CanonicalID, &t.Params.CallDataHash, &t.Params.ForceSlow, &t.Params.ReceiveLocal,
		&originPresent, &origin.Caller, &origin.Asset, &originAmount, &originTimestamp, &origin.TxHash,
		&destinationPresent, &routers,
		&executePresent, &execute.Caller, &execute.TxHash, &executeTimestamp, &executeAmount,
		&reconcilePresent, &reconcile.Caller, &reconcile.TxHash, &reconcileTimestamp, &reconcileAmount,
	)
	if err != nil {
		return nil, err
	}
	if nonce.Valid {
		v := uint64(nonce.Int64)
		t.Params.Nonce = &v
	}
	if originPresent {
		origin.Timestamp = uint64(originTimestamp)
		origin.Amount = parseBig(originAmount)
		t.Origin = &origin
	}
	if destinationPresent {
		d := &models.DestinationTransfer{Routers: []string(routers)}
		if executePresent {
			execute.Timestamp = uint64(executeTimestamp)
			execute.Amount = parseBig(executeAmount)
			d.Execute = &execute
		}
		if reconcilePresent {
			reconcile.Timestamp = uint64(reconcileTimestamp)
			reconcile.Amount = parseBig(reconcileAmount)
			d.Reconcile = &reconcile
		}
		t.Destination = d
	}
	return &t, nil
}

func sqlDir(order models.SortOrder) string {
	if order.Normalize() == models.OrderDesc {
		return "DESC"
	}
	return "ASC"
}

func bigString(b *big.Int) any {
	if b == nil {
		return nil
	}
	return b.String()
}

func parseBig(s sql.NullString) *big.Int {
	if !s.Valid {
		return nil
	}
	v, ok := new(big.Int).SetString(s.String, 10)
	if !ok {
		return nil
	}
	return v
}

func nullableUint(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func recordBatchSize(span trace.Span, n int) {
	span.SetAttributes(attribute.Int("transfer.batch_size", n))
}
