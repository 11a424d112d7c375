package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so calling drivers can translate them into retry or abort decisions.
//
// These represent factual states about stored entities, not validation of
// request payloads:
// - ErrInvalidArgument: a key or identifier is malformed (empty checkpoint name)
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a concurrent writer won a uniqueness race
// - ErrInvalidState: an update would violate a monotonicity or non-negative invariant
// - ErrUnavailable: the underlying store is unreachable
//
// Read misses on the public query surface are NOT errors; those return empty
// collections or nil so ingestion pipelines stay composable.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
)
