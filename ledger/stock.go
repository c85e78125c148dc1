package ledger

import "github.com/shopspring/decimal"

// StockStatus is always derived from (quantity, min level), never stored
// independently of a quantity change.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// StockStatusFor is the pure derivation: 0 -> out_of_stock, <=min -> low_stock,
// else in_stock.
func StockStatusFor(quantity, minStockLevel decimal.Decimal) StockStatus {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return StockStatusOutOfStock
	}
	if quantity.LessThanOrEqual(minStockLevel) {
		return StockStatusLowStock
	}
	return StockStatusInStock
}

// StockDelta is one product's quantity change inside a posting. Negative
// quantities consume stock, positive quantities restore it.
type StockDelta struct {
	ProductID   int
	ProductName string
	Quantity    decimal.Decimal
}

// ConsumptionDeltas builds the per-product decrements for a document entering
// paid. Lines for the same product are merged.
func ConsumptionDeltas(lines []Line) []StockDelta {
	return stockDeltas(lines, decimal.NewFromInt(-1))
}

// RestorationDeltas builds the per-product increments for a document leaving
// paid.
func RestorationDeltas(lines []Line) []StockDelta {
	return stockDeltas(lines, decimal.NewFromInt(1))
}

func stockDeltas(lines []Line, sign decimal.Decimal) []StockDelta {
	byProduct := make(map[int]int)
	deltas := make([]StockDelta, 0, len(lines))
	for _, line := range lines {
		qty := line.Quantity.Mul(sign)
		if idx, ok := byProduct[line.ProductID]; ok {
			deltas[idx].Quantity = deltas[idx].Quantity.Add(qty)
			continue
		}
		byProduct[line.ProductID] = len(deltas)
		deltas = append(deltas, StockDelta{ProductID: line.ProductID, Quantity: qty})
	}
	return deltas
}

// CheckAvailability rejects a set of deltas that would drive any product's
// stock negative. available maps product id to on-hand quantity.
func CheckAvailability(available map[int]decimal.Decimal, names map[int]string, deltas []StockDelta) error {
	for _, d := range deltas {
		if !d.Quantity.IsNegative() {
			continue
		}
		onHand := available[d.ProductID]
		requested := d.Quantity.Neg()
		if onHand.LessThan(requested) {
			return &InsufficientStockError{
				ProductID:   d.ProductID,
				ProductName: names[d.ProductID],
				Available:   onHand,
				Requested:   requested,
			}
		}
	}
	return nil
}
