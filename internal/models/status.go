package models

// TransferStatus is derived purely from which sub-records are present on a
// transfer. It is recomputed on every read and never written independently.
type TransferStatus string

const (
	// StatusXCalled: the transfer has been called on the origin side but no
	// destination-side completion evidence exists yet.
	StatusXCalled TransferStatus = "XCalled"
	// StatusReconciled: canonical proof arrived on the destination, not yet
	// executed.
	StatusReconciled TransferStatus = "Reconciled"
	// StatusCompletedFast: executed via the expedited router path.
	StatusCompletedFast TransferStatus = "CompletedFast"
	// StatusCompletedSlow: executed without router liquidity fronting.
	StatusCompletedSlow TransferStatus = "CompletedSlow"
	// StatusExecuted: both reconcile and execute observed; terminal combined
	// state.
	StatusExecuted TransferStatus = "Executed"
)

// KnownStatus reports whether s names a derivable status. Queries filtered by
// an unknown status return empty results rather than erring.
func KnownStatus(s TransferStatus) bool {
	switch s {
	case StatusXCalled, StatusReconciled, StatusCompletedFast, StatusCompletedSlow, StatusExecuted:
		return true
	}
	return false
}

// DeriveStatus projects a transfer's status from the presence of its
// sub-records. The fast/slow discriminator is the router assignment already
// present on the destination sub-record; it is not re-derived here.
//
// A destination sub-record carrying only a router assignment (no execute, no
// reconcile) is not completion evidence, so such records still derive XCalled.
func DeriveStatus(t *Transfer) TransferStatus {
	if t == nil || t.Destination == nil {
		return StatusXCalled
	}
	d := t.Destination
	switch {
	case d.Execute != nil && d.Reconcile != nil:
		return StatusExecuted
	case d.Reconcile != nil:
		return StatusReconciled
	case d.Execute != nil:
		if len(d.Routers) > 0 {
			return StatusCompletedFast
		}
		return StatusCompletedSlow
	default:
		return StatusXCalled
	}
}
