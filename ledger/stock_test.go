package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStockStatusFor(t *testing.T) {
	cases := []struct {
		qty  string
		min  string
		want StockStatus
	}{
		{"0", "5", StockStatusOutOfStock},
		{"-1", "5", StockStatusOutOfStock},
		{"3", "5", StockStatusLowStock},
		{"5", "5", StockStatusLowStock},
		{"6", "5", StockStatusInStock},
		{"100", "0", StockStatusInStock},
	}
	for _, tc := range cases {
		if got := StockStatusFor(d(tc.qty), d(tc.min)); got != tc.want {
			t.Fatalf("StockStatusFor(%s, %s) = %s, want %s", tc.qty, tc.min, got, tc.want)
		}
	}
}

func TestConsumptionDeltas_MergesSameProduct(t *testing.T) {
	lines := []Line{
		{ProductID: 1, Quantity: d("3")},
		{ProductID: 2, Quantity: d("2")},
		{ProductID: 1, Quantity: d("1")},
	}
	deltas := ConsumptionDeltas(lines)
	if len(deltas) != 2 {
		t.Fatalf("got %d deltas, want 2", len(deltas))
	}
	if deltas[0].ProductID != 1 || !deltas[0].Quantity.Equal(d("-4")) {
		t.Fatalf("product 1 delta = %s, want -4", deltas[0].Quantity)
	}
	if deltas[1].ProductID != 2 || !deltas[1].Quantity.Equal(d("-2")) {
		t.Fatalf("product 2 delta = %s, want -2", deltas[1].Quantity)
	}
}

func TestRestorationDeltas_InverseOfConsumption(t *testing.T) {
	lines := []Line{
		{ProductID: 7, Quantity: d("4")},
	}
	consume := ConsumptionDeltas(lines)
	restore := RestorationDeltas(lines)
	if !consume[0].Quantity.Add(restore[0].Quantity).IsZero() {
		t.Fatal("consumption and restoration must cancel out")
	}
}

func TestCheckAvailability(t *testing.T) {
	available := map[int]decimal.Decimal{1: d("5"), 2: d("0")}
	names := map[int]string{1: "Widget", 2: "Gadget"}

	ok := []StockDelta{{ProductID: 1, Quantity: d("-5")}}
	if err := CheckAvailability(available, names, ok); err != nil {
		t.Fatalf("exact consumption should pass: %v", err)
	}

	short := []StockDelta{{ProductID: 2, Quantity: d("-1")}}
	err := CheckAvailability(available, names, short)
	var serr *InsufficientStockError
	if !errors.As(err, &serr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if serr.ProductID != 2 || serr.ProductName != "Gadget" {
		t.Fatalf("error names wrong product: %+v", serr)
	}
	if !serr.Available.IsZero() || !serr.Requested.Equal(d("1")) {
		t.Fatalf("error quantities wrong: %+v", serr)
	}

	// Increments never fail, whatever the on-hand quantity.
	incr := []StockDelta{{ProductID: 2, Quantity: d("10")}}
	if err := CheckAvailability(available, names, incr); err != nil {
		t.Fatalf("restoration should pass: %v", err)
	}
}
