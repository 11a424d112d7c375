// Package message persists dispatched cross-domain messages and their
// monotone processed flag.
package message

import (
	"context"

	"conduit/internal/models"
)

// Store reconciles dispatch and processing observations of a message, which
// arrive independently and in either order.
type Store interface {
	// SaveMessages merge-upserts the batch in one transactional unit. A nil or
	// empty batch is a no-op; entries without an ID are skipped. Processed
	// never reverts from true to false.
	SaveMessages(ctx context.Context, messages []*models.Message) error
	// GetMessageByID returns the merged message, or nil when unknown.
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	// GetPendingMessages lists unprocessed messages, oldest leaf index first.
	// originDomain narrows the result when non-empty; limit <= 0 means no
	// limit.
	GetPendingMessages(ctx context.Context, originDomain string, limit int) ([]*models.Message, error)
}
