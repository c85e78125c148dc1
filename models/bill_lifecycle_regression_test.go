package models_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/shopspring/decimal"
)

// Bills mirror invoices but with the stock direction flipped: a bill entering
// paid means the goods arrived, so stock goes UP. Bills never create revenue.
func TestBillLifecycle_DraftConfirmSettleAndReverse(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()
	clientId, _ := utils.GetClientIdFromContext(ctx)

	vendor, err := models.CreateVendor(ctx, &models.NewVendor{Name: "Basalt Supplies"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Steel Bracket",
		StockQuantity: decimal.NewFromInt(5),
		BuyingPrice:   decimal.NewFromInt(50),
		SellingPrice:  decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	bill, err := workflow.CreateBill(ctx, logger, &models.NewBill{
		BillNumber: "BILL-3001",
		VendorID:   vendor.ID,
		Items: []models.NewBillItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(20), UnitCost: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if bill.Status != ledger.StatusDraft {
		t.Fatalf("expected draft on creation; got %s", bill.Status)
	}
	if bill.Total.Cmp(decimal.NewFromInt(1000)) != 0 {
		t.Fatalf("expected bill total=1000; got %s", bill.Total.String())
	}

	// Settling a draft bill is not allowed.
	_, err = workflow.CreateBillDebitNote(ctx, logger, &models.NewBillDebitNote{
		NoteNumber: "DN-3001",
		BillID:     bill.ID,
		Amount:     decimal.NewFromInt(1000),
	})
	var valErr *ledger.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for draft settlement; got %v", err)
	}

	confirmed, err := workflow.ConfirmBill(ctx, logger, bill.ID)
	if err != nil {
		t.Fatalf("ConfirmBill: %v", err)
	}
	if confirmed.Status != ledger.StatusUnpaid {
		t.Fatalf("expected unpaid after confirm; got %s", confirmed.Status)
	}
	assertStock(t, ctx, product.ID, 5)

	// Full debit note settles the bill: goods received, stock goes up.
	debitNote, err := workflow.CreateBillDebitNote(ctx, logger, &models.NewBillDebitNote{
		NoteNumber: "DN-3002",
		BillID:     bill.ID,
		Amount:     decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateBillDebitNote: %v", err)
	}
	settled, err := models.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("reload bill: %v", err)
	}
	if settled.Status != ledger.StatusPaid {
		t.Fatalf("expected paid after full debit note; got %s", settled.Status)
	}
	assertStock(t, ctx, product.ID, 25)

	// Bills never produce revenue rows.
	var revCount int64
	if err := config.GetDB().WithContext(ctx).Model(&models.SalesRevenue{}).
		Where("client_id = ?", clientId).
		Count(&revCount).Error; err != nil {
		t.Fatalf("count revenues: %v", err)
	}
	if revCount != 0 {
		t.Fatalf("bills must not create revenue; found %d rows", revCount)
	}

	// Overpaying a settled bill is rejected like an invoice.
	_, err = workflow.CreateBillDebitNote(ctx, logger, &models.NewBillDebitNote{
		NoteNumber: "DN-3003",
		BillID:     bill.ID,
		Amount:     decimal.NewFromInt(1),
	})
	var overErr *ledger.OverpaymentError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected OverpaymentError; got %v", err)
	}

	// Deleting the debit note takes the goods back out.
	if err := workflow.DeleteBillDebitNote(ctx, logger, debitNote.ID); err != nil {
		t.Fatalf("DeleteBillDebitNote: %v", err)
	}
	reverted, err := models.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("reload bill after reversal: %v", err)
	}
	if reverted.Status != ledger.StatusUnpaid {
		t.Fatalf("expected unpaid after debit note delete; got %s", reverted.Status)
	}
	assertStock(t, ctx, product.ID, 5)

	findings, err := workflow.RunReconciliationChecks(ctx, logger, clientId)
	if err != nil {
		t.Fatalf("RunReconciliationChecks: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings; got %+v", findings)
	}
}

// Reconciliation checks must flag stored balances that drifted from the rows
// that back them.
func TestReconciliationChecks_DetectSettledDrift(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()
	db := config.GetDB()
	clientId, _ := utils.GetClientIdFromContext(ctx)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Drift Co"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Widget",
		StockQuantity: decimal.NewFromInt(50),
		BuyingPrice:   decimal.NewFromInt(2),
		SellingPrice:  decimal.NewFromInt(4),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber: "INV-4001",
		CustomerID:    customer.ID,
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(4)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice: %v", err)
	}

	// Corrupt the stored balance behind the workflow's back.
	if err := db.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("client_id = ? AND id = ?", clientId, invoice.ID).
		Update("settled_amount", decimal.NewFromInt(7)).Error; err != nil {
		t.Fatalf("corrupt settled_amount: %v", err)
	}

	findings, err := workflow.RunReconciliationChecks(ctx, logger, clientId)
	if err != nil {
		t.Fatalf("RunReconciliationChecks: %v", err)
	}
	found := false
	for _, f := range findings {
		if f.DocumentNumber == invoice.InvoiceNumber && f.Kind == "settled_mismatch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected settled_mismatch for %s; got %+v", invoice.InvoiceNumber, findings)
	}

	// The next settlement against the drifted invoice must hard-fail instead
	// of quietly coercing the balance.
	_, err = workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(10),
	})
	var incErr *ledger.InconsistentStateError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected InconsistentStateError; got %v", err)
	}
}
