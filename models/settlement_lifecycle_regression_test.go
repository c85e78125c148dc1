package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/shopspring/decimal"
)

// Full-stack regression: invoice settlement must keep settled amount, status,
// stock and revenue in lockstep across payments and credit notes, including
// reversals back across the paid boundary.
func TestSettlementLifecycle_PaidBoundaryDrivesStockAndRevenue(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()
	db := config.GetDB()

	clientId, _ := utils.GetClientIdFromContext(ctx)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Aurora Trading"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Ceramic Mug",
		SKU:           "MUG-01",
		StockQuantity: decimal.NewFromInt(100),
		BuyingPrice:   decimal.NewFromInt(60),
		SellingPrice:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber: "INV-1001",
		CustomerID:    customer.ID,
		InvoiceDate:   time.Now().UTC(),
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice: %v", err)
	}
	if invoice.Status != ledger.StatusUnpaid {
		t.Fatalf("expected unpaid after creation; got %s", invoice.Status)
	}
	if invoice.Total.Cmp(decimal.NewFromInt(1000)) != 0 {
		t.Fatalf("expected total=1000; got %s", invoice.Total.String())
	}
	// Unpaid invoice must not touch stock or revenue.
	assertStock(t, ctx, product.ID, 100)
	assertRevenueCount(t, ctx, clientId, invoice.InvoiceNumber, 0)

	// Partial payment: status advances but no side effects fire.
	_, err = workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("CreatePayment(400): %v", err)
	}
	reloaded := reloadInvoice(t, ctx, invoice.ID)
	if reloaded.Status != ledger.StatusPartiallyPaid {
		t.Fatalf("expected partially_paid after 400; got %s", reloaded.Status)
	}
	assertStock(t, ctx, product.ID, 100)
	assertRevenueCount(t, ctx, clientId, invoice.InvoiceNumber, 0)

	// Second payment crosses the paid boundary: stock consumed, revenue created.
	finalPayment, err := workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(600),
	})
	if err != nil {
		t.Fatalf("CreatePayment(600): %v", err)
	}
	reloaded = reloadInvoice(t, ctx, invoice.ID)
	if reloaded.Status != ledger.StatusPaid {
		t.Fatalf("expected paid after 600; got %s", reloaded.Status)
	}
	assertStock(t, ctx, product.ID, 90)
	var revenue models.SalesRevenue
	if err := db.WithContext(ctx).
		Where("client_id = ? AND sales_invoice_number = ?", clientId, invoice.InvoiceNumber).
		First(&revenue).Error; err != nil {
		t.Fatalf("fetch revenue: %v", err)
	}
	if revenue.Account != models.RevenueAccountSalesPayment {
		t.Fatalf("expected account=sales_payment; got %s", revenue.Account)
	}
	if revenue.Amount.Cmp(decimal.NewFromInt(1000)) != 0 {
		t.Fatalf("expected revenue amount=1000; got %s", revenue.Amount.String())
	}
	if revenue.CostOfGoods.Cmp(decimal.NewFromInt(600)) != 0 {
		t.Fatalf("expected cost_of_goods=600; got %s", revenue.CostOfGoods.String())
	}
	if revenue.Profit().Cmp(decimal.NewFromInt(400)) != 0 {
		t.Fatalf("expected profit=400; got %s", revenue.Profit().String())
	}

	// Fully settled: any further payment is an overpayment with max allowed 0.
	_, err = workflow.CreatePayment(ctx, logger, &models.NewPayment{
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(50),
	})
	var overErr *ledger.OverpaymentError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected OverpaymentError; got %v", err)
	}
	if !overErr.MaxAllowed.IsZero() {
		t.Fatalf("expected max allowed 0 on settled invoice; got %s", overErr.MaxAllowed.String())
	}

	// Deleting the final payment re-crosses the boundary backwards: stock
	// restored, revenue removed, status drops to partially_paid.
	if err := workflow.DeletePayment(ctx, logger, finalPayment.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	reloaded = reloadInvoice(t, ctx, invoice.ID)
	if reloaded.Status != ledger.StatusPartiallyPaid {
		t.Fatalf("expected partially_paid after payment delete; got %s", reloaded.Status)
	}
	assertStock(t, ctx, product.ID, 100)
	assertRevenueCount(t, ctx, clientId, invoice.InvoiceNumber, 0)

	// A credit note settles the remainder: paid again, this time via credit.
	creditNote, err := workflow.CreateSalesCreditNote(ctx, logger, &models.NewSalesCreditNote{
		NoteNumber:     "CN-1001",
		SalesInvoiceID: invoice.ID,
		Amount:         decimal.NewFromInt(600),
		Reason:         "goodwill",
	})
	if err != nil {
		t.Fatalf("CreateSalesCreditNote: %v", err)
	}
	reloaded = reloadInvoice(t, ctx, invoice.ID)
	if reloaded.Status != ledger.StatusPaid {
		t.Fatalf("expected paid after credit note; got %s", reloaded.Status)
	}
	assertStock(t, ctx, product.ID, 90)
	revenue = models.SalesRevenue{}
	if err := db.WithContext(ctx).
		Where("client_id = ? AND sales_invoice_number = ?", clientId, invoice.InvoiceNumber).
		First(&revenue).Error; err != nil {
		t.Fatalf("fetch revenue after credit note: %v", err)
	}
	if revenue.Account != models.RevenueAccountSalesCredit {
		t.Fatalf("expected account=sales_credit; got %s", revenue.Account)
	}

	// Deleting the credit note reverses everything again.
	if err := workflow.DeleteSalesCreditNote(ctx, logger, creditNote.ID); err != nil {
		t.Fatalf("DeleteSalesCreditNote: %v", err)
	}
	reloaded = reloadInvoice(t, ctx, invoice.ID)
	if reloaded.Status != ledger.StatusPartiallyPaid {
		t.Fatalf("expected partially_paid after credit note delete; got %s", reloaded.Status)
	}
	assertStock(t, ctx, product.ID, 100)
	assertRevenueCount(t, ctx, clientId, invoice.InvoiceNumber, 0)

	// Reconciliation checks must see no drift after all this churn.
	findings, err := workflow.RunReconciliationChecks(ctx, logger, clientId)
	if err != nil {
		t.Fatalf("RunReconciliationChecks: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings; got %+v", findings)
	}
}

// A cash sale settles in full at creation and fires both side effects
// immediately; deleting it reverses them.
func TestSettlementLifecycle_PaidOnCreationAndDelete(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	logger := config.GetLogger()
	clientId, _ := utils.GetClientIdFromContext(ctx)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:          "Notebook",
		StockQuantity: decimal.NewFromInt(20),
		BuyingPrice:   decimal.NewFromInt(3),
		SellingPrice:  decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	invoice, err := workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber:  "INV-2001",
		CustomerID:     customer.ID,
		PaidOnCreation: true,
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesInvoice(paid): %v", err)
	}
	if invoice.Status != ledger.StatusPaid {
		t.Fatalf("expected paid on creation; got %s", invoice.Status)
	}
	assertStock(t, ctx, product.ID, 16)
	assertRevenueCount(t, ctx, clientId, invoice.InvoiceNumber, 1)

	// A cash sale larger than available stock must be rejected whole: no
	// invoice row, no stock movement.
	_, err = workflow.CreateSalesInvoice(ctx, logger, &models.NewSalesInvoice{
		InvoiceNumber:  "INV-2002",
		CustomerID:     customer.ID,
		PaidOnCreation: true,
		Items: []models.NewSalesInvoiceItem{
			{ProductID: product.ID, Quantity: decimal.NewFromInt(500), UnitPrice: decimal.NewFromInt(5)},
		},
	})
	var stockErr *ledger.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError; got %v", err)
	}
	if stockErr.ProductID != product.ID {
		t.Fatalf("expected product id %d in error; got %d", product.ID, stockErr.ProductID)
	}
	assertStock(t, ctx, product.ID, 16)
	var count int64
	if err := config.GetDB().WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("client_id = ? AND invoice_number = ?", clientId, "INV-2002").
		Count(&count).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected invoice must not be persisted")
	}

	// Deleting a paid invoice restores stock and removes its revenue.
	if err := workflow.DeleteSalesInvoice(ctx, logger, invoice.ID); err != nil {
		t.Fatalf("DeleteSalesInvoice: %v", err)
	}
	assertStock(t, ctx, product.ID, 20)
	assertRevenueCount(t, ctx, clientId, invoice.InvoiceNumber, 0)
}

func reloadInvoice(t *testing.T, ctx context.Context, id int) *models.SalesInvoice {
	t.Helper()
	inv, err := models.GetSalesInvoice(ctx, id)
	if err != nil {
		t.Fatalf("reload invoice %d: %v", id, err)
	}
	return inv
}

func assertStock(t *testing.T, ctx context.Context, productID int, want int64) {
	t.Helper()
	p, err := models.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("fetch product %d: %v", productID, err)
	}
	if p.StockQuantity.Cmp(decimal.NewFromInt(want)) != 0 {
		t.Fatalf("expected stock %d for product %d; got %s", want, productID, p.StockQuantity.String())
	}
}

func assertRevenueCount(t *testing.T, ctx context.Context, clientId, invoiceNumber string, want int64) {
	t.Helper()
	var count int64
	err := config.GetDB().WithContext(ctx).Model(&models.SalesRevenue{}).
		Where("client_id = ? AND sales_invoice_number = ?", clientId, invoiceNumber).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count revenues for %s: %v", invoiceNumber, err)
	}
	if count != want {
		t.Fatalf("expected %d revenue row(s) for %s; got %d", want, invoiceNumber, count)
	}
}

// setupIntegrationEnv starts MySQL and Redis containers, connects, migrates,
// and returns a tenant-scoped context.
func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "nimbuscrm_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	client, err := models.CreateClient(ctx, &models.NewClient{
		Name:  "Test Tenant",
		Email: "owner@tenant.test",
	})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	ctx = utils.SetClientIdInContext(ctx, client.ID.String())
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	return ctx
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("crm-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("crm-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=nimbuscrm_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
