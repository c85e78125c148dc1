package config

import (
	"os"
	"strings"
)

// StrictStockChecks blocks any ledger transition that would drive a product's
// stock quantity negative. When disabled, the shortfall is logged and stock is
// clamped at zero instead of failing the whole posting.
//
// Set via env:
// - STRICT_STOCK_CHECKS=false (default true)
func StrictStockChecks() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_STOCK_CHECKS")))
	if v == "" {
		return true
	}
	return !(v == "0" || v == "false" || v == "no" || v == "n")
}

// SettledDocImmutability prevents edits to invoices/bills once any settlement
// (payment, credit note, debit note) has been applied; they must be reversed first.
//
// Set via env:
// - SETTLED_DOC_IMMUTABLE=false (default true)
func SettledDocImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SETTLED_DOC_IMMUTABLE")))
	if v == "" {
		return true
	}
	return !(v == "0" || v == "false" || v == "no" || v == "n")
}
