package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the settlement state of a receivable or payable document.
// Draft applies to bills that have not been confirmed; confirmed documents
// move between Unpaid, PartiallyPaid and Paid in both directions.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// Tolerance is the absolute tolerance used for every money comparison.
// Partial settlements that zero the balance within tolerance count as paid.
var Tolerance = decimal.NewFromFloat(0.01)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusUnpaid, StatusPartiallyPaid, StatusPaid:
		return true
	}
	return false
}

// Settled reports whether the status carries recognized stock/revenue effects.
func (s Status) Settled() bool {
	return s == StatusPaid
}

// DeriveStatus is the one canonical status function shared by the payment,
// credit note and debit note paths. It is a pure function of (total, settled).
func DeriveStatus(total, settled decimal.Decimal) Status {
	if settled.Sub(total).Abs().LessThan(Tolerance) {
		return StatusPaid
	}
	if settled.GreaterThan(decimal.Zero) {
		return StatusPartiallyPaid
	}
	return StatusUnpaid
}

// transitions holds the reachable settlement states. Draft only moves forward
// to Unpaid (confirmation); settlement states move in both directions as
// settlements are created and deleted.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusUnpaid},
	StatusUnpaid:        {StatusPartiallyPaid, StatusPaid},
	StatusPartiallyPaid: {StatusUnpaid, StatusPaid},
	StatusPaid:          {StatusUnpaid, StatusPartiallyPaid},
}

// CanTransition reports whether from -> to is a legal edge. A no-op
// (from == to) is always legal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the new status. Every workflow that mutates
// a document status goes through here; there is no ad-hoc string comparison
// elsewhere.
func Transition(from, to Status) (Status, error) {
	if !to.Valid() {
		return from, &ValidationError{Message: fmt.Sprintf("invalid status %q", to)}
	}
	if !CanTransition(from, to) {
		return from, &ValidationError{Message: fmt.Sprintf("illegal status transition %s -> %s", from, to)}
	}
	return to, nil
}
