// Package outbox emits transfer status-change events to downstream consumers
// (relayers, UIs) without coupling the write path to a broker: the event row
// is written in the same transaction as the transfer save, and a worker
// publishes it afterwards. Delivery is at-least-once; consumers dedupe on the
// event ID.
package outbox

//go:generate mockgen -source=outbox.go -destination=mocks/mocks.go -package=mocks Publisher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"conduit/internal/models"
)

// Event is one observed status transition of a transfer.
type Event struct {
	ID         uuid.UUID             `json:"id"`
	TransferID string                `json:"transfer_id"`
	Status     models.TransferStatus `json:"status"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// Store persists pending events. TransferStatusChanged satisfies
// transfer.StatusEventSink, so wiring the outbox into the transfer store is
// just passing it as the sink.
type Store interface {
	TransferStatusChanged(ctx context.Context, transferID string, status models.TransferStatus) error
	// ListUnpublished returns pending events oldest first. limit <= 0 means no
	// limit.
	ListUnpublished(ctx context.Context, limit int) ([]*Event, error)
	// MarkPublished records that the given events reached the broker.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher delivers a batch of events to the downstream transport.
type Publisher interface {
	Publish(ctx context.Context, events []*Event) error
}
