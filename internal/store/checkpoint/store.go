// Package checkpoint persists named high-water marks used by ingestion
// drivers to resume incremental processing.
package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"conduit/pkg/platform/sentinel"
)

// Store is the checkpoint ledger. Saves are plain overwrites: the calling
// driver owns monotonicity of its own cursor, the ledger just remembers the
// last value handed to it.
type Store interface {
	// GetCheckpoint returns the stored value for name, or 0 when the name has
	// never been saved.
	GetCheckpoint(ctx context.Context, name string) (uint64, error)
	// SaveCheckpoint upserts the value for name.
	SaveCheckpoint(ctx context.Context, name string, value uint64) error
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("checkpoint name must be a non-empty identifier: %w", sentinel.ErrInvalidArgument)
	}
	return nil
}
