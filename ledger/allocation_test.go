package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testLines() []Line {
	// 600 + 300 + 100 = 1000, costs 400 + 150 + 50 = 600
	docTotal := d("1000")
	lines := []Line{
		{ProductID: 1, Quantity: d("3"), Total: d("600"), Cost: d("400")},
		{ProductID: 2, Quantity: d("2"), Total: d("300"), Cost: d("150")},
		{ProductID: 3, Quantity: d("1"), Total: d("100"), Cost: d("50")},
	}
	for i := range lines {
		lines[i].Ratio = LineRatio(lines[i].Total, docTotal)
	}
	return lines
}

func TestLineRatio(t *testing.T) {
	if got := LineRatio(d("600"), d("1000")); !got.Equal(d("0.6")) {
		t.Fatalf("ratio = %s, want 0.6", got)
	}
	if got := LineRatio(d("100"), d("0")); !got.IsZero() {
		t.Fatalf("ratio with zero total = %s, want 0", got)
	}
}

func TestAllocate_ProportionalSplit(t *testing.T) {
	allocations := Allocate(d("500"), testLines())
	if len(allocations) != 3 {
		t.Fatalf("got %d allocations, want 3", len(allocations))
	}
	if !allocations[0].Amount.Equal(d("300")) {
		t.Fatalf("line 1 amount = %s, want 300", allocations[0].Amount)
	}
	if !allocations[1].Amount.Equal(d("150")) {
		t.Fatalf("line 2 amount = %s, want 150", allocations[1].Amount)
	}
	if !allocations[2].Amount.Equal(d("50")) {
		t.Fatalf("line 3 amount = %s, want 50", allocations[2].Amount)
	}
	// cost shares: half of each line's cost
	if !allocations[0].Cost.Equal(d("200")) {
		t.Fatalf("line 1 cost = %s, want 200", allocations[0].Cost)
	}
}

func TestAllocate_SumsToSettlementExactly(t *testing.T) {
	// Awkward amounts that round: the last line absorbs the remainder.
	amounts := []string{"333.33", "0.01", "999.999", "1", "777.77"}
	for _, raw := range amounts {
		settlement := d(raw)
		allocations := Allocate(settlement, testLines())

		sum := decimal.Zero
		for _, a := range allocations {
			sum = sum.Add(a.Amount)
		}
		if !sum.Equal(settlement) {
			t.Fatalf("allocations for %s sum to %s", raw, sum)
		}
	}
}

func TestAllocate_EmptyLines(t *testing.T) {
	if got := Allocate(d("100"), nil); got != nil {
		t.Fatalf("expected nil allocations, got %v", got)
	}
}
