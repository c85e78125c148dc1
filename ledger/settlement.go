package ledger

import "github.com/shopspring/decimal"

// RevenueAction tells the posting workflow what to do with the document's
// revenue row after a settlement change.
type RevenueAction int

const (
	RevenueNone RevenueAction = iota
	RevenueCreate
	RevenueDelete
)

// SettlementChange describes one delta-causing event against a document:
// a payment/credit note/debit note being created (positive Delta) or
// deleted (negative Delta).
type SettlementChange struct {
	DocumentNumber string
	Total          decimal.Decimal
	SettledBefore  decimal.Decimal
	Delta          decimal.Decimal
	OldStatus      Status
}

// Outcome is the recomputed document state plus the side effects the change
// carries. Side effects are edge-triggered: they fire only when the status
// actually crosses the paid boundary, never on a level re-write.
type Outcome struct {
	SettledAfter decimal.Decimal
	Outstanding  decimal.Decimal
	NewStatus    Status

	// ConsumesStock: the document entered paid; decrement stock per line item.
	// RestoresStock: the document left paid; re-add stock per line item.
	ConsumesStock bool
	RestoresStock bool

	Revenue RevenueAction
}

// ComputeSettlement recomputes the document's settled total, outstanding
// balance and status for one settlement change, rejecting overpayment before
// anything is persisted.
func ComputeSettlement(ch SettlementChange) (Outcome, error) {
	settledAfter := ch.SettledBefore.Add(ch.Delta)

	if ch.Delta.GreaterThan(decimal.Zero) {
		// total + tolerance is the hard ceiling for a create.
		if settledAfter.Sub(ch.Total).GreaterThanOrEqual(Tolerance) {
			return Outcome{}, &OverpaymentError{
				DocumentNumber: ch.DocumentNumber,
				MaxAllowed:     ch.Total.Sub(ch.SettledBefore),
			}
		}
	}
	if settledAfter.IsNegative() {
		return Outcome{}, &InconsistentStateError{
			DocumentNumber: ch.DocumentNumber,
			Stored:         ch.SettledBefore,
			Recomputed:     settledAfter,
			Detail:         "settled total would become negative",
		}
	}

	newStatus := DeriveStatus(ch.Total, settledAfter)
	if _, err := Transition(ch.OldStatus, newStatus); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		SettledAfter: settledAfter,
		Outstanding:  ch.Total.Sub(settledAfter),
		NewStatus:    newStatus,
		Revenue:      RevenueNone,
	}

	enteredPaid := newStatus == StatusPaid && ch.OldStatus != StatusPaid
	leftPaid := ch.OldStatus == StatusPaid && newStatus != StatusPaid

	if enteredPaid {
		out.ConsumesStock = true
		out.Revenue = RevenueCreate
	}
	if leftPaid {
		out.RestoresStock = true
		out.Revenue = RevenueDelete
	}

	return out, nil
}

// VerifyStoredTotal hard-fails when a stored total does not match the total
// recomputed from line items within tolerance.
func VerifyStoredTotal(documentNumber string, stored, recomputed decimal.Decimal) error {
	if stored.Sub(recomputed).Abs().LessThan(Tolerance) {
		return nil
	}
	return &InconsistentStateError{
		DocumentNumber: documentNumber,
		Stored:         stored,
		Recomputed:     recomputed,
	}
}
