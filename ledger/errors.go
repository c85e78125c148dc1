package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error taxonomy for ledger postings. Every error here aborts the posting
// transaction as a whole; no partial balance/stock/revenue write survives.

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// OverpaymentError rejects a settlement that would push the settled total past
// the document total. MaxAllowed is the largest amount still acceptable.
type OverpaymentError struct {
	DocumentNumber string
	MaxAllowed     decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("settlement exceeds remaining balance on %s; maximum allowed amount is %s",
		e.DocumentNumber, e.MaxAllowed.StringFixed(2))
}

// InsufficientStockError blocks a transition that would drive stock negative.
type InsufficientStockError struct {
	ProductID   int
	ProductName string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id=%d): available %s, requested %s",
		e.ProductName, e.ProductID, e.Available.String(), e.Requested.String())
}

// InconsistentStateError is raised when stored totals do not reconcile with
// recomputed totals within tolerance. It is a hard failure, never coerced.
type InconsistentStateError struct {
	DocumentNumber string
	Stored         decimal.Decimal
	Recomputed     decimal.Decimal
	Detail         string
}

func (e *InconsistentStateError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("inconsistent ledger state on %s: %s (stored=%s recomputed=%s)",
			e.DocumentNumber, e.Detail, e.Stored.StringFixed(2), e.Recomputed.StringFixed(2))
	}
	return fmt.Sprintf("inconsistent ledger state on %s: stored=%s recomputed=%s",
		e.DocumentNumber, e.Stored.StringFixed(2), e.Recomputed.StringFixed(2))
}
