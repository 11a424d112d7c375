// Package models holds the entities reconciled by the conduit stores.
//
// Entities are assembled from partial observations: a transfer's origin-side
// and destination-side fields arrive from separate event streams, in either
// order, repeatedly. Optional fields are pointers; nil means "not observed
// yet", never "erase". Stores own the persisted state; callers always hold
// copies.
package models

import "math/big"

// SortOrder selects the direction of ordered reads.
type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// Normalize maps any unrecognized value to ascending so partially-initialized
// callers never fail on an ordering token.
func (o SortOrder) Normalize() SortOrder {
	if o == OrderDesc {
		return OrderDesc
	}
	return OrderAsc
}

// CallParams are the origin-determined parameters of a transfer. They are set
// by the first write that carries them and are never erased by later writes
// that omit them. Empty-string domains mean "not observed yet".
type CallParams struct {
	OriginDomain      string
	DestinationDomain string
	Nonce             *uint64
	CanonicalID       *string
	CallDataHash      *string
	ForceSlow         *bool
	ReceiveLocal      *bool
}

// OriginTransfer is the origin-side sub-record, populated atomically once the
// origin event is observed.
type OriginTransfer struct {
	Caller    string
	Asset     string
	Amount    *big.Int
	Timestamp uint64
	TxHash    string
}

// ExecuteRecord captures the expedited completion path on the destination.
type ExecuteRecord struct {
	Caller    string
	TxHash    string
	Timestamp uint64
	Amount    *big.Int
}

// ReconcileRecord captures the arrival of canonical proof on the destination.
type ReconcileRecord struct {
	Caller    string
	TxHash    string
	Timestamp uint64
	Amount    *big.Int
}

// DestinationTransfer is the destination-side sub-record. Routers, Execute and
// Reconcile are each independently optional and independently settable.
type DestinationTransfer struct {
	Routers   []string
	Execute   *ExecuteRecord
	Reconcile *ReconcileRecord
}

// Transfer is the logical record reconciled from both sides, keyed by a
// globally unique transfer identifier. Status is derived, never stored as
// independent truth; see DeriveStatus.
type Transfer struct {
	TransferID  string
	Params      CallParams
	Origin      *OriginTransfer
	Destination *DestinationTransfer
}

// Message is a per-domain dispatched message with a monotone processed flag.
type Message struct {
	ID                string
	OriginDomain      string
	DestinationDomain string
	Index             *uint64
	Root              *string
	Body              *string
	Processed         bool
}

// RootMessage records the propagation of an aggregate root between domains,
// keyed by (origin domain, destination domain, root). Processed is monotone:
// once true it never reverts, regardless of the order in which the "sent" and
// "processed" observations arrive.
type RootMessage struct {
	OriginDomain      string
	DestinationDomain string
	Root              string
	Caller            *string
	TxHash            *string
	Timestamp         *uint64
	BlockNumber       *uint64
	Processed         bool
}

// RouterBalance is one entry of a router's liquidity ledger, keyed by
// (router, domain, canonical asset id). Amounts are arbitrary precision and
// cross every boundary as decimal strings, never floating point.
type RouterBalance struct {
	Router      string
	Domain      string
	CanonicalID string
	Balance     *big.Int
}

// RouterLiquidity is the aggregated read view of a single router's balances,
// ordered by (domain, canonical asset id).
type RouterLiquidity struct {
	Router   string
	Balances []RouterBalance
}

// Clone returns a deep copy so stored state never aliases caller memory.
func (t *Transfer) Clone() *Transfer {
	if t == nil {
		return nil
	}
	out := &Transfer{TransferID: t.TransferID, Params: t.Params.clone()}
	if t.Origin != nil {
		o := *t.Origin
		o.Amount = cloneBig(t.Origin.Amount)
		out.Origin = &o
	}
	if t.Destination != nil {
		d := &DestinationTransfer{}
		if len(t.Destination.Routers) > 0 {
			d.Routers = append([]string(nil), t.Destination.Routers...)
		}
		if t.Destination.Execute != nil {
			e := *t.Destination.Execute
			e.Amount = cloneBig(t.Destination.Execute.Amount)
			d.Execute = &e
		}
		if t.Destination.Reconcile != nil {
			r := *t.Destination.Reconcile
			r.Amount = cloneBig(t.Destination.Reconcile.Amount)
			d.Reconcile = &r
		}
		out.Destination = d
	}
	return out
}

func (p CallParams) clone() CallParams {
	out := p
	out.Nonce = clonePtr(p.Nonce)
	out.CanonicalID = clonePtr(p.CanonicalID)
	out.CallDataHash = clonePtr(p.CallDataHash)
	out.ForceSlow = clonePtr(p.ForceSlow)
	out.ReceiveLocal = clonePtr(p.ReceiveLocal)
	return out
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.Index = clonePtr(m.Index)
	out.Root = clonePtr(m.Root)
	out.Body = clonePtr(m.Body)
	return &out
}

// Clone returns a deep copy of the root message.
func (r *RootMessage) Clone() *RootMessage {
	if r == nil {
		return nil
	}
	out := *r
	out.Caller = clonePtr(r.Caller)
	out.TxHash = clonePtr(r.TxHash)
	out.Timestamp = clonePtr(r.Timestamp)
	out.BlockNumber = clonePtr(r.BlockNumber)
	return &out
}

// Clone returns a deep copy of the balance entry.
func (b *RouterBalance) Clone() *RouterBalance {
	if b == nil {
		return nil
	}
	out := *b
	out.Balance = cloneBig(b.Balance)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBig(b *big.Int) *big.Int {
	if b == nil {
		return nil
	}
	return new(big.Int).Set(b)
}
