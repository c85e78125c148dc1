package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// Scenario walk-through: invoice total=1000, payment of 600, then 400, then
// the 400 is deleted, exercising partial -> paid -> partial with edge-triggered
// side effects at each step.

func TestComputeSettlement_PartialPayment(t *testing.T) {
	out, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-001",
		Total:          d("1000"),
		SettledBefore:  d("0"),
		Delta:          d("600"),
		OldStatus:      StatusUnpaid,
	})
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}
	if out.NewStatus != StatusPartiallyPaid {
		t.Fatalf("status = %s, want %s", out.NewStatus, StatusPartiallyPaid)
	}
	if !out.Outstanding.Equal(d("400")) {
		t.Fatalf("outstanding = %s, want 400", out.Outstanding)
	}
	if out.ConsumesStock || out.RestoresStock {
		t.Fatal("partial payment must not touch stock")
	}
	if out.Revenue != RevenueNone {
		t.Fatal("partial payment must not create revenue")
	}
}

func TestComputeSettlement_CompletingPayment(t *testing.T) {
	out, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-001",
		Total:          d("1000"),
		SettledBefore:  d("600"),
		Delta:          d("400"),
		OldStatus:      StatusPartiallyPaid,
	})
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}
	if out.NewStatus != StatusPaid {
		t.Fatalf("status = %s, want %s", out.NewStatus, StatusPaid)
	}
	if !out.Outstanding.IsZero() {
		t.Fatalf("outstanding = %s, want 0", out.Outstanding)
	}
	if !out.ConsumesStock {
		t.Fatal("entering paid must consume stock")
	}
	if out.Revenue != RevenueCreate {
		t.Fatal("entering paid must create revenue")
	}
}

func TestComputeSettlement_DeletingCompletingPayment(t *testing.T) {
	out, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-001",
		Total:          d("1000"),
		SettledBefore:  d("1000"),
		Delta:          d("-400"),
		OldStatus:      StatusPaid,
	})
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}
	if out.NewStatus != StatusPartiallyPaid {
		t.Fatalf("status = %s, want %s", out.NewStatus, StatusPartiallyPaid)
	}
	if !out.Outstanding.Equal(d("400")) {
		t.Fatalf("outstanding = %s, want 400", out.Outstanding)
	}
	if !out.RestoresStock {
		t.Fatal("leaving paid must restore stock")
	}
	if out.Revenue != RevenueDelete {
		t.Fatal("leaving paid must delete revenue")
	}
}

func TestComputeSettlement_Overpayment(t *testing.T) {
	_, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-001",
		Total:          d("1000"),
		SettledBefore:  d("600"),
		Delta:          d("500"),
		OldStatus:      StatusPartiallyPaid,
	})
	var operr *OverpaymentError
	if !errors.As(err, &operr) {
		t.Fatalf("expected OverpaymentError, got %v", err)
	}
	if !operr.MaxAllowed.Equal(d("400")) {
		t.Fatalf("max allowed = %s, want 400", operr.MaxAllowed)
	}
}

func TestComputeSettlement_OverpaymentWithinToleranceAccepted(t *testing.T) {
	out, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-001",
		Total:          d("1000"),
		SettledBefore:  d("600"),
		Delta:          d("400.005"),
		OldStatus:      StatusPartiallyPaid,
	})
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}
	if out.NewStatus != StatusPaid {
		t.Fatalf("status = %s, want %s", out.NewStatus, StatusPaid)
	}
}

func TestComputeSettlement_DeleteBelowZeroFails(t *testing.T) {
	_, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-001",
		Total:          d("1000"),
		SettledBefore:  d("100"),
		Delta:          d("-200"),
		OldStatus:      StatusPartiallyPaid,
	})
	var ierr *InconsistentStateError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InconsistentStateError, got %v", err)
	}
}

func TestComputeSettlement_SideEffectsAreEdgeTriggered(t *testing.T) {
	// A second settlement while already partially paid is level, not edge:
	// no stock, no revenue.
	out, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-002",
		Total:          d("1000"),
		SettledBefore:  d("200"),
		Delta:          d("300"),
		OldStatus:      StatusPartiallyPaid,
	})
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}
	if out.NewStatus != StatusPartiallyPaid {
		t.Fatalf("status = %s, want %s", out.NewStatus, StatusPartiallyPaid)
	}
	if out.ConsumesStock || out.RestoresStock || out.Revenue != RevenueNone {
		t.Fatal("no paid-boundary crossing, no side effects")
	}
}

func TestComputeSettlement_DeleteThenRecreateIsIdempotent(t *testing.T) {
	total := d("1000")
	// Start fully paid.
	settled := total
	status := StatusPaid

	del, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-003",
		Total:          total,
		SettledBefore:  settled,
		Delta:          d("-400"),
		OldStatus:      status,
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	re, err := ComputeSettlement(SettlementChange{
		DocumentNumber: "INV-003",
		Total:          total,
		SettledBefore:  del.SettledAfter,
		Delta:          d("400"),
		OldStatus:      del.NewStatus,
	})
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}

	if !re.SettledAfter.Equal(settled) {
		t.Fatalf("settled after delete+recreate = %s, want %s", re.SettledAfter, settled)
	}
	if re.NewStatus != status {
		t.Fatalf("status after delete+recreate = %s, want %s", re.NewStatus, status)
	}
	// Stock restored on delete, consumed again on recreate: net zero.
	if !del.RestoresStock || !re.ConsumesStock {
		t.Fatal("delete must restore stock and recreate must consume it again")
	}
	if del.Revenue != RevenueDelete || re.Revenue != RevenueCreate {
		t.Fatal("revenue must be deleted then recreated")
	}
}

func TestVerifyStoredTotal(t *testing.T) {
	if err := VerifyStoredTotal("INV-004", d("100.004"), d("100.00")); err != nil {
		t.Fatalf("within tolerance should pass: %v", err)
	}
	err := VerifyStoredTotal("INV-004", d("100.02"), d("100.00"))
	var ierr *InconsistentStateError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InconsistentStateError, got %v", err)
	}
}

func TestComputeSettlement_SettledNeverExceedsTotal(t *testing.T) {
	// Property: whatever sequence of accepted settlements is applied, the
	// settled total stays within total + tolerance.
	total := d("250")
	settled := decimal.Zero
	status := StatusUnpaid
	deltas := []string{"100", "100", "49.999", "0.002", "200"}

	for _, raw := range deltas {
		out, err := ComputeSettlement(SettlementChange{
			DocumentNumber: "INV-005",
			Total:          total,
			SettledBefore:  settled,
			Delta:          d(raw),
			OldStatus:      status,
		})
		if err != nil {
			continue // rejected settlements change nothing
		}
		settled = out.SettledAfter
		status = out.NewStatus

		if settled.Sub(total).GreaterThanOrEqual(Tolerance) {
			t.Fatalf("settled %s exceeds total %s beyond tolerance", settled, total)
		}
		if status == StatusPaid && total.Sub(settled).Abs().GreaterThanOrEqual(Tolerance) {
			t.Fatalf("paid status with outstanding %s", total.Sub(settled))
		}
	}
}
