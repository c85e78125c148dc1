package models_test

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/shopspring/decimal"
)

// Two overlapping payments that would together exceed the invoice total must
// resolve to exactly one persisted payment. The row lock on the invoice forces
// the second writer to observe the first settlement and fail the overpayment
// check.
func TestConcurrentPayments_OnlyOneSettles(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()
	clientId, _ := utils.GetClientIdFromContext(ctx)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Borealis Retail"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Steel Bottle",
		SKU:           "BTL-01",
		StockQuantity: decimal.NewFromInt(50),
		BuyingPrice:   decimal.NewFromInt(40),
		SellingPrice:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber: "INV-6001",
		CustomerID:    customer.ID,
		InvoiceDate:   time.Now().UTC(),
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice: %v", err)
	}

	// 600 + 600 > 1000: at most one of these may land.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = workflow.CreatePayment(ctx, logger, &models.NewPayment{
				SalesInvoiceID: invoice.ID,
				Amount:         decimal.NewFromInt(600),
			})
		}(i)
	}
	wg.Wait()

	var succeeded, overpaid int
	for _, e := range errs {
		var overErr *ledger.OverpaymentError
		switch {
		case e == nil:
			succeeded++
		case errors.As(e, &overErr):
			overpaid++
		default:
			t.Fatalf("unexpected payment error: %v", e)
		}
	}
	if succeeded != 1 || overpaid != 1 {
		t.Fatalf("expected exactly one payment to settle and one to be rejected; got succeeded=%d overpaid=%d", succeeded, overpaid)
	}

	var count int64
	err = config.GetDB().WithContext(ctx).Model(&models.Payment{}).
		Where("client_id = ? AND sales_invoice_id = ?", clientId, invoice.ID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 persisted payment; got %d", count)
	}

	after := reloadInvoice(t, ctx, invoice.ID)
	if after.SettledAmount.Cmp(decimal.NewFromInt(600)) != 0 {
		t.Fatalf("expected settled_amount=600; got %s", after.SettledAmount.String())
	}
	if after.SettledAmount.Cmp(after.Total) > 0 {
		t.Fatalf("settled_amount %s exceeds total %s", after.SettledAmount.String(), after.Total.String())
	}
	if after.Status != ledger.StatusPartiallyPaid {
		t.Fatalf("expected partially_paid; got %s", after.Status)
	}
}

// A payment that would flip an invoice to paid is rejected when the paid-side
// stock consumption cannot be covered; the invoice and stock are left exactly
// as they were.
func TestPaymentRejectedWhenStockInsufficient(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Cascade Supplies"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Walnut Tray",
		SKU:           "TRY-01",
		StockQuantity: decimal.NewFromInt(20),
		BuyingPrice:   decimal.NewFromInt(30),
		SellingPrice:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber: "INV-7001",
		CustomerID:    customer.ID,
		InvoiceDate:   time.Now().UTC(),
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice: %v", err)
	}

	_, err = workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("CreatePayment(400): %v", err)
	}

	// A cash sale drains the stock the open invoice was counting on.
	_, err = workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber:  "INV-7002",
		CustomerID:     customer.ID,
		InvoiceDate:    time.Now().UTC(),
		PaidOnCreation: true,
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(15), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice(cash): %v", err)
	}
	assertStock(t, ctx, product.ID, 5)

	_, err = workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(600),
	})
	var stockErr *ledger.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError for completing payment; got %v", err)
	}

	// The rejected payment must leave the invoice and stock untouched.
	after := reloadInvoice(t, ctx, invoice.ID)
	if after.Status != ledger.StatusPartiallyPaid {
		t.Fatalf("expected partially_paid after rejection; got %s", after.Status)
	}
	if after.SettledAmount.Cmp(decimal.NewFromInt(400)) != 0 {
		t.Fatalf("expected settled_amount=400 after rejection; got %s", after.SettledAmount.String())
	}
	assertStock(t, ctx, product.ID, 5)

	var count int64
	err = config.GetDB().WithContext(ctx).Model(&models.Payment{}).
		Where("sales_invoice_id = ?", invoice.ID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the partial payment to persist; got %d", count)
	}
}
