// Package rootmessage persists cross-domain root propagation records. The
// "sent" and "processed" observations arrive on disjoint paths and in either
// order; the store reconciles them under a monotone processed flag.
package rootmessage

import (
	"context"

	"conduit/internal/models"
)

// Store reconciles sent/processed root observations, keyed by
// (origin domain, destination domain, root).
type Store interface {
	// SaveSentRootMessages merge-upserts the sent-side fields. It never clears
	// an existing processed=true, even though a sent observation carries no
	// processed value. Nil or empty batches are no-ops.
	SaveSentRootMessages(ctx context.Context, roots []*models.RootMessage) error
	// SaveProcessedRootMessages merge-upserts and forces processed=true,
	// creating the record when the sent observation has not arrived yet.
	SaveProcessedRootMessages(ctx context.Context, roots []*models.RootMessage) error
	// GetRootMessages lists records ordered by block number (ties broken by
	// the composite key). processed filters tri-state: nil selects all.
	// limit <= 0 means no limit.
	GetRootMessages(ctx context.Context, processed *bool, limit int, order models.SortOrder) ([]*models.RootMessage, error)
}

type key struct {
	origin      string
	destination string
	root        string
}

func keyOf(r *models.RootMessage) key {
	return key{origin: r.OriginDomain, destination: r.DestinationDomain, root: r.Root}
}

func (k key) less(other key) bool {
	if k.origin != other.origin {
		return k.origin < other.origin
	}
	if k.destination != other.destination {
		return k.destination < other.destination
	}
	return k.root < other.root
}

func incomplete(r *models.RootMessage) bool {
	return r == nil || r.Root == "" || r.OriginDomain == "" || r.DestinationDomain == ""
}
