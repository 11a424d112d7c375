// Package merge implements the merge-upsert primitive shared by every store:
// a non-nil incoming field overwrites the stored value, an omitted field keeps
// the stored value, and monotone flags combine with OR. The Postgres stores
// mirror the same rules in SQL (COALESCE and boolean OR); this package is the
// single Go-side source of truth, so applying the same partial write twice
// always yields the same stored state as applying it once.
package merge

import (
	"math/big"

	"conduit/internal/models"
)

// Ptr keeps existing when incoming is nil, otherwise takes incoming.
func Ptr[T any](existing, incoming *T) *T {
	if incoming == nil {
		return existing
	}
	v := *incoming
	return &v
}

// Str treats the empty string as "not observed".
func Str(existing, incoming string) string {
	if incoming == "" {
		return existing
	}
	return incoming
}

// Or is the monotone flag rule: once true, never false again.
func Or(existing, incoming bool) bool {
	return existing || incoming
}

// Slice keeps existing when incoming is empty.
func Slice[T any](existing, incoming []T) []T {
	if len(incoming) == 0 {
		return existing
	}
	return append([]T(nil), incoming...)
}

// Big copies incoming when present so merged records never alias the caller.
func Big(existing, incoming *big.Int) *big.Int {
	if incoming == nil {
		return existing
	}
	return new(big.Int).Set(incoming)
}

// Transfer merges an incoming partial transfer over the stored one. Params
// fields merge individually; the origin and destination sub-records are each
// replaced atomically when supplied, with execute/reconcile independently
// settable inside destination. Either argument may be nil.
func Transfer(existing, incoming *models.Transfer) *models.Transfer {
	if incoming == nil {
		return existing.Clone()
	}
	if existing == nil {
		return incoming.Clone()
	}
	out := existing.Clone()
	out.Params.OriginDomain = Str(out.Params.OriginDomain, incoming.Params.OriginDomain)
	out.Params.DestinationDomain = Str(out.Params.DestinationDomain, incoming.Params.DestinationDomain)
	out.Params.Nonce = Ptr(out.Params.Nonce, incoming.Params.Nonce)
	out.Params.CanonicalID = Ptr(out.Params.CanonicalID, incoming.Params.CanonicalID)
	out.Params.CallDataHash = Ptr(out.Params.CallDataHash, incoming.Params.CallDataHash)
	out.Params.ForceSlow = Ptr(out.Params.ForceSlow, incoming.Params.ForceSlow)
	out.Params.ReceiveLocal = Ptr(out.Params.ReceiveLocal, incoming.Params.ReceiveLocal)
	if incoming.Origin != nil {
		out.Origin = incoming.Clone().Origin
	}
	if incoming.Destination != nil {
		in := incoming.Clone().Destination
		if out.Destination == nil {
			out.Destination = in
		} else {
			out.Destination.Routers = Slice(out.Destination.Routers, in.Routers)
			if in.Execute != nil {
				out.Destination.Execute = in.Execute
			}
			if in.Reconcile != nil {
				out.Destination.Reconcile = in.Reconcile
			}
		}
	}
	return out
}

// Message merges an incoming partial message over the stored one. Processed is
// monotone.
func Message(existing, incoming *models.Message) *models.Message {
	if incoming == nil {
		return existing.Clone()
	}
	if existing == nil {
		return incoming.Clone()
	}
	out := existing.Clone()
	out.OriginDomain = Str(out.OriginDomain, incoming.OriginDomain)
	out.DestinationDomain = Str(out.DestinationDomain, incoming.DestinationDomain)
	out.Index = Ptr(out.Index, incoming.Index)
	out.Root = Ptr(out.Root, incoming.Root)
	out.Body = Ptr(out.Body, incoming.Body)
	out.Processed = Or(out.Processed, incoming.Processed)
	return out
}

// RootMessage merges an incoming partial root message over the stored one.
// Processed is monotone: a "sent" write arriving after a "processed" write
// fills in the sent-side fields without downgrading the flag.
func RootMessage(existing, incoming *models.RootMessage) *models.RootMessage {
	if incoming == nil {
		return existing.Clone()
	}
	if existing == nil {
		return incoming.Clone()
	}
	out := existing.Clone()
	out.Caller = Ptr(out.Caller, incoming.Caller)
	out.TxHash = Ptr(out.TxHash, incoming.TxHash)
	out.Timestamp = Ptr(out.Timestamp, incoming.Timestamp)
	out.BlockNumber = Ptr(out.BlockNumber, incoming.BlockNumber)
	out.Processed = Or(out.Processed, incoming.Processed)
	return out
}
