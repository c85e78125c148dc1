package ledger

import "github.com/shopspring/decimal"

// Line is the slice of a document a single product occupies. Ratio is computed
// once when the document is created and stored; settlement-time allocation
// never re-derives it from floating totals.
type Line struct {
	ProductID int
	Quantity  decimal.Decimal
	Total     decimal.Decimal
	Cost      decimal.Decimal
	Ratio     decimal.Decimal
}

// Allocation is one line item's share of a partial settlement.
type Allocation struct {
	ProductID int
	Amount    decimal.Decimal
	Cost      decimal.Decimal
}

// LineRatio computes a line's share of the document total, rounded to 6 places.
func LineRatio(lineTotal, documentTotal decimal.Decimal) decimal.Decimal {
	if documentTotal.IsZero() {
		return decimal.Zero
	}
	return lineTotal.DivRound(documentTotal, 6)
}

// Allocate splits a settlement amount across lines by their stored ratios.
// itemAmount = settlement * line.Ratio; cost follows the settled fraction of
// each line's cost. The last line absorbs the rounding remainder so the
// allocations always sum to exactly the settlement amount.
func Allocate(settlement decimal.Decimal, lines []Line) []Allocation {
	if len(lines) == 0 {
		return nil
	}

	documentTotal := decimal.Zero
	totalCost := decimal.Zero
	for _, line := range lines {
		documentTotal = documentTotal.Add(line.Total)
		totalCost = totalCost.Add(line.Cost)
	}

	// fraction of the document being settled
	settledFraction := decimal.Zero
	if !documentTotal.IsZero() {
		settledFraction = settlement.DivRound(documentTotal, 6)
	}
	fullCostShare := totalCost.Mul(settledFraction).Round(4)

	allocations := make([]Allocation, 0, len(lines))
	allocated := decimal.Zero
	costAllocated := decimal.Zero

	for i, line := range lines {
		var amount, cost decimal.Decimal
		if i == len(lines)-1 {
			amount = settlement.Sub(allocated)
			cost = fullCostShare.Sub(costAllocated)
		} else {
			amount = settlement.Mul(line.Ratio).Round(4)
			cost = line.Cost.Mul(settledFraction).Round(4)
		}
		allocated = allocated.Add(amount)
		costAllocated = costAllocated.Add(cost)
		allocations = append(allocations, Allocation{
			ProductID: line.ProductID,
			Amount:    amount,
			Cost:      cost,
		})
	}
	return allocations
}
