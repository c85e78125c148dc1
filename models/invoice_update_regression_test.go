package models_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/shopspring/decimal"
)

// With settled-document immutability disabled, header edits on a settled
// invoice still go through, but a request that changes line items must be
// rejected rather than having the item changes dropped on the floor.
func TestUpdateSettledInvoice_ItemEditsRejected(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	t.Setenv("SETTLED_DOC_IMMUTABLE", "false")
	logger := config.GetLogger()

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Dune Outfitters"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Canvas Satchel",
		SKU:           "SAT-01",
		StockQuantity: decimal.NewFromInt(30),
		BuyingPrice:   decimal.NewFromInt(50),
		SellingPrice:  decimal.NewFromInt(120),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber: "INV-8001",
		CustomerID:    customer.ID,
		InvoiceDate:   time.Now().UTC(),
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(120)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice: %v", err)
	}

	_, err = workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("CreatePayment(200): %v", err)
	}

	// Same items, new note: accepted.
	updated, err := workflow.UpdateSalesInvoice(ctx, logger, invoice.ID, &models.NewSalesInvoice{
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    customer.ID,
		Note:          "net 30",
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(120)},
		},
	})
	if err != nil {
		t.Fatalf("UpdateSalesInvoice(note only): %v", err)
	}
	if updated.Note != "net 30" {
		t.Fatalf("expected note to update; got %q", updated.Note)
	}

	// Changed quantity: rejected outright.
	_, err = workflow.UpdateSalesInvoice(ctx, logger, invoice.ID, &models.NewSalesInvoice{
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    customer.ID,
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(9), UnitPrice: decimal.NewFromInt(120)},
		},
	})
	var valErr *ledger.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for item edit on settled invoice; got %v", err)
	}

	after := reloadInvoice(t, ctx, invoice.ID)
	if len(after.Details) != 1 || after.Details[0].Quantity.Cmp(decimal.NewFromInt(4)) != 0 {
		t.Fatalf("expected line items untouched after rejection; got %+v", after.Details)
	}
	if after.Total.Cmp(decimal.NewFromInt(480)) != 0 {
		t.Fatalf("expected total=480 after rejection; got %s", after.Total.String())
	}
}
