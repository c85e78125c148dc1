package models_test

import (
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

// Gateway messages are delivered at-least-once; redelivery must not post a
// second payment.
func TestPaymentMessage_RedeliveryPostsOnce(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()
	clientId, _ := utils.GetClientIdFromContext(ctx)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Gateway Co"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Cable",
		StockQuantity: decimal.NewFromInt(30),
		BuyingPrice:   decimal.NewFromInt(1),
		SellingPrice:  decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber: "INV-5001",
		CustomerID:    customer.ID,
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice: %v", err)
	}

	input := &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(10),
		Method:         "gateway",
		Reference:      "txn-abc",
	}
	const messageId = "msg-001"

	if err := workflow.ProcessPaymentMessage(ctx, logger, messageId, input); err != nil {
		t.Fatalf("ProcessPaymentMessage (first delivery): %v", err)
	}
	// Redelivery of the same message id is a no-op, not an overpayment.
	if err := workflow.ProcessPaymentMessage(ctx, logger, messageId, input); err != nil {
		t.Fatalf("ProcessPaymentMessage (redelivery): %v", err)
	}

	var payments int64
	if err := config.GetDB().WithContext(ctx).Model(&models.Payment{}).
		Where("client_id = ? AND sales_invoice_id = ?", clientId, invoice.ID).
		Count(&payments).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 1 {
		t.Fatalf("expected exactly one payment after redelivery; got %d", payments)
	}

	reloaded, err := models.GetSalesInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if reloaded.Status != ledger.StatusPaid {
		t.Fatalf("expected paid; got %s", reloaded.Status)
	}
	if reloaded.SettledAmount.Cmp(decimal.NewFromInt(10)) != 0 {
		t.Fatalf("expected settled=10; got %s", reloaded.SettledAmount.String())
	}

	// A different message id for the same amount is a genuine second event and
	// must fail as overpayment rather than being deduplicated.
	err = workflow.ProcessPaymentMessage(ctx, logger, "msg-002", input)
	if err == nil {
		t.Fatalf("expected overpayment on second distinct message")
	}
}
