// Package transfer is the reconciliation store for cross-domain transfers.
// Origin-side and destination-side observations arrive from separate event
// streams, out of order and repeatedly; each save merges them into one logical
// record without ever erasing a previously observed field.
package transfer

import (
	"context"

	"conduit/internal/models"
)

// Store merges partial transfer observations and answers status and pending
// queries for retry/backfill drivers. All writes are safe to repeat with stale
// or redundant data.
type Store interface {
	// SaveTransfers merge-upserts the batch in one transactional unit. Params,
	// origin, and destination merge independently per record. Nil or empty
	// batches are no-ops; entries without a transfer ID are skipped.
	SaveTransfers(ctx context.Context, transfers []*models.Transfer) error
	// GetTransferByID returns the merged transfer, or nil when unknown.
	GetTransferByID(ctx context.Context, transferID string) (*models.Transfer, error)
	// GetTransfersByStatus pages through transfers with the given derived
	// status, ordered by (nonce, transfer ID). An unknown status yields an
	// empty result. limit <= 0 means no limit; offset < 0 is treated as 0.
	GetTransfersByStatus(ctx context.Context, status models.TransferStatus, limit, offset int, order models.SortOrder) ([]*models.Transfer, error)
	// GetTransfersWithOriginPending returns IDs of transfers observed on the
	// destination side whose origin sub-record is still missing, for transfers
	// originating on domain.
	GetTransfersWithOriginPending(ctx context.Context, domain string, limit int, order models.SortOrder) ([]string, error)
	// GetTransfersWithDestinationPending is the symmetric case: origin
	// observed, destination-side data for domain still missing.
	GetTransfersWithDestinationPending(ctx context.Context, domain string, limit int, order models.SortOrder) ([]string, error)
}

// StatusEventSink receives a notification whenever a save changes a transfer's
// derived status, inside the same transactional unit as the save. The outbox
// implements this; a nil sink disables emission.
type StatusEventSink interface {
	TransferStatusChanged(ctx context.Context, transferID string, status models.TransferStatus) error
}
