package models

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesInvoice struct {
	ID            int                  `gorm:"primary_key" json:"id"`
	ClientId      string               `gorm:"type:char(36);not null;uniqueIndex:idx_invoice_number_client" json:"client_id"`
	Client        Client               `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	InvoiceNumber string               `gorm:"size:100;not null;uniqueIndex:idx_invoice_number_client" json:"invoice_number" binding:"required"`
	CustomerID    int                  `gorm:"index;not null" json:"customer_id"`
	Customer      Customer             `gorm:"foreignKey:CustomerID" json:"customer"`
	InvoiceDate   time.Time            `json:"invoice_date"`
	DueDate       *time.Time           `json:"due_date"`
	Total         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total"`
	TotalCost     decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	Profit        decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"profit"`
	SettledAmount decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"settled_amount"`
	Status        ledger.Status        `gorm:"type:enum('draft','unpaid','partially_paid','paid');not null;default:'unpaid'" json:"status"`
	Note          string               `gorm:"type:text" json:"note"`
	Details       []SalesInvoiceDetail `gorm:"foreignKey:SalesInvoiceID;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// The uniqueIndex above is composite with client_id; gorm needs the tag on
// both columns.
func (SalesInvoice) TableName() string { return "sales_invoices" }

type SalesInvoiceDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	SalesInvoiceID  int             `gorm:"index;not null" json:"sales_invoice_id"`
	ProductID       int             `gorm:"index;not null" json:"product_id"`
	Product         Product         `gorm:"foreignKey:ProductID" json:"product"`
	ProductName     string          `gorm:"size:255" json:"product_name"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	LineCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_cost"`
	AllocationRatio decimal.Decimal `gorm:"type:decimal(12,6);default:0" json:"allocation_ratio"`
}

type NewSalesInvoiceItem struct {
	ProductID int             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

type NewSalesInvoice struct {
	InvoiceNumber string                `json:"invoice_number" binding:"required"`
	CustomerID    int                   `json:"customer_id" binding:"required"`
	InvoiceDate   time.Time             `json:"invoice_date"`
	DueDate       *time.Time            `json:"due_date"`
	Note          string                `json:"note"`
	Items         []NewSalesInvoiceItem `json:"items" binding:"required,min=1,dive"`
	// PaidOnCreation marks the invoice settled in full at creation time, the
	// cash-sale path. Stock and revenue side effects fire immediately.
	PaidOnCreation bool `json:"paid_on_creation"`
}

func (input *NewSalesInvoice) validate() error {
	if len(input.Items) == 0 {
		return &ledger.ValidationError{Message: "invoice requires at least one line item"}
	}
	for _, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return &ledger.ValidationError{Message: "line item quantity must be positive"}
		}
		if item.UnitPrice.IsNegative() {
			return &ledger.ValidationError{Message: "line item unit price cannot be negative"}
		}
	}
	return nil
}

// BuildDetails resolves products, prices the lines and computes the stored
// allocation ratios. Totals are returned alongside so the caller persists a
// consistent header.
func (input *NewSalesInvoice) BuildDetails(tx *gorm.DB, ctx context.Context, clientId string) ([]SalesInvoiceDetail, decimal.Decimal, decimal.Decimal, error) {
	details := make([]SalesInvoiceDetail, 0, len(input.Items))
	total := decimal.Zero
	totalCost := decimal.Zero

	for _, item := range input.Items {
		var product Product
		if err := tx.WithContext(ctx).
			Where("client_id = ? AND id = ?", clientId, item.ProductID).
			First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, decimal.Zero, &ledger.NotFoundError{Resource: "product", ID: item.ProductID}
			}
			return nil, decimal.Zero, decimal.Zero, err
		}

		lineTotal := item.Quantity.Mul(item.UnitPrice).Round(4)
		lineCost := item.Quantity.Mul(product.BuyingPrice).Round(4)
		total = total.Add(lineTotal)
		totalCost = totalCost.Add(lineCost)

		details = append(details, SalesInvoiceDetail{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			UnitCost:    product.BuyingPrice,
			LineTotal:   lineTotal,
			LineCost:    lineCost,
		})
	}

	for i := range details {
		details[i].AllocationRatio = ledger.LineRatio(details[i].LineTotal, total)
	}
	return details, total, totalCost, nil
}

// LedgerLines converts the stored detail rows into the allocation input form.
func (inv *SalesInvoice) LedgerLines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(inv.Details))
	for _, d := range inv.Details {
		lines = append(lines, ledger.Line{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			Total:     d.LineTotal,
			Cost:      d.LineCost,
			Ratio:     d.AllocationRatio,
		})
	}
	return lines
}

// Outstanding is the remaining balance on the invoice.
func (inv *SalesInvoice) Outstanding() decimal.Decimal {
	return inv.Total.Sub(inv.SettledAmount)
}

func GetSalesInvoice(ctx context.Context, id int) (*SalesInvoice, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[SalesInvoice](ctx, clientId, id, "Details", "Customer")
}

// GetSalesInvoiceForUpdate loads an invoice with a row lock inside a posting
// transaction.
func GetSalesInvoiceForUpdate(tx *gorm.DB, ctx context.Context, clientId string, id int) (*SalesInvoice, error) {
	var invoice SalesInvoice
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND id = ?", clientId, id).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ledger.NotFoundError{Resource: "sales invoice", ID: id}
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).
		Where("sales_invoice_id = ?", id).
		Order("id ASC").
		Find(&invoice.Details).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

type SalesInvoiceFilter struct {
	CustomerID *int           `form:"customer_id"`
	Status     *ledger.Status `form:"status"`
	From       *time.Time     `form:"from" time_format:"2006-01-02"`
	To         *time.Time     `form:"to" time_format:"2006-01-02"`
}

func GetSalesInvoices(ctx context.Context, filter *SalesInvoiceFilter) ([]*SalesInvoice, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if filter != nil {
		if filter.CustomerID != nil {
			dbCtx = dbCtx.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Status != nil {
			dbCtx = dbCtx.Where("status = ?", *filter.Status)
		}
		if filter.From != nil {
			dbCtx = dbCtx.Where("invoice_date >= ?", *filter.From)
		}
		if filter.To != nil {
			dbCtx = dbCtx.Where("invoice_date <= ?", *filter.To)
		}
	}

	var results []*SalesInvoice
	if err := dbCtx.Preload("Details").Preload("Customer").
		Order("invoice_date DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
