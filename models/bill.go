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

type Bill struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ClientId      string          `gorm:"type:char(36);not null;uniqueIndex:idx_bill_number_client" json:"client_id"`
	Client        Client          `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	BillNumber    string          `gorm:"size:100;not null;uniqueIndex:idx_bill_number_client" json:"bill_number" binding:"required"`
	VendorID      int             `gorm:"index;not null" json:"vendor_id"`
	Vendor        Vendor          `gorm:"foreignKey:VendorID" json:"vendor"`
	BillDate      time.Time       `json:"bill_date"`
	DueDate       *time.Time      `json:"due_date"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	SettledAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"settled_amount"`
	Status        ledger.Status   `gorm:"type:enum('draft','unpaid','partially_paid','paid');not null;default:'draft'" json:"status"`
	Note          string          `gorm:"type:text" json:"note"`
	Details       []BillDetail    `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BillID          int             `gorm:"index;not null" json:"bill_id"`
	ProductID       int             `gorm:"index;not null" json:"product_id"`
	Product         Product         `gorm:"foreignKey:ProductID" json:"product"`
	ProductName     string          `gorm:"size:255" json:"product_name"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	AllocationRatio decimal.Decimal `gorm:"type:decimal(12,6);default:0" json:"allocation_ratio"`
}

type NewBillItem struct {
	ProductID int             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"required"`
}

type NewBill struct {
	BillNumber string        `json:"bill_number" binding:"required"`
	VendorID   int           `json:"vendor_id" binding:"required"`
	BillDate   time.Time     `json:"bill_date"`
	DueDate    *time.Time    `json:"due_date"`
	Note       string        `json:"note"`
	Items      []NewBillItem `json:"items" binding:"required,min=1,dive"`
}

func (input *NewBill) validate() error {
	if len(input.Items) == 0 {
		return &ledger.ValidationError{Message: "bill requires at least one line item"}
	}
	for _, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return &ledger.ValidationError{Message: "line item quantity must be positive"}
		}
		if item.UnitCost.IsNegative() {
			return &ledger.ValidationError{Message: "line item unit cost cannot be negative"}
		}
	}
	return nil
}

func (input *NewBill) BuildDetails(tx *gorm.DB, ctx context.Context, clientId string) ([]BillDetail, decimal.Decimal, error) {
	details := make([]BillDetail, 0, len(input.Items))
	total := decimal.Zero

	for _, item := range input.Items {
		var product Product
		if err := tx.WithContext(ctx).
			Where("client_id = ? AND id = ?", clientId, item.ProductID).
			First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, &ledger.NotFoundError{Resource: "product", ID: item.ProductID}
			}
			return nil, decimal.Zero, err
		}

		lineTotal := item.Quantity.Mul(item.UnitCost).Round(4)
		total = total.Add(lineTotal)

		details = append(details, BillDetail{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
			LineTotal:   lineTotal,
		})
	}

	for i := range details {
		details[i].AllocationRatio = ledger.LineRatio(details[i].LineTotal, total)
	}
	return details, total, nil
}

func (b *Bill) LedgerLines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(b.Details))
	for _, d := range b.Details {
		lines = append(lines, ledger.Line{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			Total:     d.LineTotal,
			Cost:      d.LineTotal,
			Ratio:     d.AllocationRatio,
		})
	}
	return lines
}

func (b *Bill) Outstanding() decimal.Decimal {
	return b.Total.Sub(b.SettledAmount)
}

func GetBill(ctx context.Context, id int) (*Bill, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[Bill](ctx, clientId, id, "Details", "Vendor")
}

func GetBillForUpdate(tx *gorm.DB, ctx context.Context, clientId string, id int) (*Bill, error) {
	var bill Bill
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND id = ?", clientId, id).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ledger.NotFoundError{Resource: "bill", ID: id}
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).
		Where("bill_id = ?", id).
		Order("id ASC").
		Find(&bill.Details).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

type BillFilter struct {
	VendorID *int           `form:"vendor_id"`
	Status   *ledger.Status `form:"status"`
	From     *time.Time     `form:"from" time_format:"2006-01-02"`
	To       *time.Time     `form:"to" time_format:"2006-01-02"`
}

func GetBills(ctx context.Context, filter *BillFilter) ([]*Bill, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if filter != nil {
		if filter.VendorID != nil {
			dbCtx = dbCtx.Where("vendor_id = ?", *filter.VendorID)
		}
		if filter.Status != nil {
			dbCtx = dbCtx.Where("status = ?", *filter.Status)
		}
		if filter.From != nil {
			dbCtx = dbCtx.Where("bill_date >= ?", *filter.From)
		}
		if filter.To != nil {
			dbCtx = dbCtx.Where("bill_date <= ?", *filter.To)
		}
	}

	var results []*Bill
	if err := dbCtx.Preload("Details").Preload("Vendor").
		Order("bill_date DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
