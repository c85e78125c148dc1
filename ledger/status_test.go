package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		total   string
		settled string
		want    Status
	}{
		{"nothing settled", "1000", "0", StatusUnpaid},
		{"partial", "1000", "600", StatusPartiallyPaid},
		{"exact", "1000", "1000", StatusPaid},
		{"within tolerance under", "1000", "999.995", StatusPaid},
		{"within tolerance over", "1000", "1000.005", StatusPaid},
		{"one cent short", "1000", "999.99", StatusPartiallyPaid},
		{"tiny settlement", "1000", "0.005", StatusPartiallyPaid},
		{"zero total zero settled", "0", "0", StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(d(tc.total), d(tc.settled))
			if got != tc.want {
				t.Fatalf("DeriveStatus(%s, %s) = %s, want %s", tc.total, tc.settled, got, tc.want)
			}
		})
	}
}

func TestDeriveStatus_ExactZeroBalanceCountsAsPaid(t *testing.T) {
	// A partial payment that exactly zeroes the balance is paid, not partially paid.
	if got := DeriveStatus(d("400"), d("400")); got != StatusPaid {
		t.Fatalf("got %s, want %s", got, StatusPaid)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusUnpaid},
		{StatusUnpaid, StatusPartiallyPaid},
		{StatusUnpaid, StatusPaid},
		{StatusPartiallyPaid, StatusPaid},
		{StatusPartiallyPaid, StatusUnpaid},
		{StatusPaid, StatusPartiallyPaid},
		{StatusPaid, StatusUnpaid},
		{StatusPaid, StatusPaid},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusDraft, StatusPaid},
		{StatusDraft, StatusPartiallyPaid},
		{StatusUnpaid, StatusDraft},
		{StatusPaid, StatusDraft},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestTransition_RejectsInvalidStatus(t *testing.T) {
	if _, err := Transition(StatusUnpaid, Status("bogus")); err == nil {
		t.Fatal("expected error for invalid status")
	}
	var verr *ValidationError
	_, err := Transition(StatusDraft, StatusPaid)
	if err == nil {
		t.Fatal("expected error for illegal transition")
	}
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}
