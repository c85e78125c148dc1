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

// Payment is a cash collection against one sales invoice. Deleting a payment
// reverses its effect on the invoice balance; the row itself is removed, not
// voided.
type Payment struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ClientId       string          `gorm:"type:char(36);index;not null" json:"client_id"`
	Client         Client          `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	SalesInvoiceID int             `gorm:"index;not null" json:"sales_invoice_id"`
	SalesInvoice   SalesInvoice    `gorm:"foreignKey:SalesInvoiceID" json:"-"`
	InvoiceNumber  string          `gorm:"size:100;index" json:"invoice_number"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate    time.Time       `json:"payment_date"`
	Method         string          `gorm:"size:50" json:"method"`
	Reference      string          `gorm:"size:255" json:"reference"`
	Note           string          `gorm:"type:text" json:"note"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	SalesInvoiceID int             `json:"sales_invoice_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate    time.Time       `json:"payment_date"`
	Method         string          `json:"method"`
	Reference      string          `json:"reference"`
	Note           string          `json:"note"`
}

func (input *NewPayment) Validate() error {
	if !input.Amount.IsPositive() {
		return &ledger.ValidationError{Message: "payment amount must be positive"}
	}
	return nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[Payment](ctx, clientId, id)
}

func GetPaymentForUpdate(tx *gorm.DB, ctx context.Context, clientId string, id int) (*Payment, error) {
	var payment Payment
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND id = ?", clientId, id).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ledger.NotFoundError{Resource: "payment", ID: id}
		}
		return nil, err
	}
	return &payment, nil
}

func GetPayments(ctx context.Context, invoiceId *int) ([]*Payment, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if invoiceId != nil {
		dbCtx = dbCtx.Where("sales_invoice_id = ?", *invoiceId)
	}

	var results []*Payment
	if err := dbCtx.Order("payment_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SumInvoiceSettlements totals the active payments and credit notes against an
// invoice, the canonical settled amount. Runs inside the posting transaction
// so the locked parent row and the sums cannot drift.
func SumInvoiceSettlements(tx *gorm.DB, ctx context.Context, clientId string, invoiceId int) (decimal.Decimal, error) {
	type row struct {
		Total decimal.Decimal
	}
	var payments, credits row

	if err := tx.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("client_id = ? AND sales_invoice_id = ?", clientId, invoiceId).
		Scan(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	if err := tx.WithContext(ctx).Model(&SalesCreditNote{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("client_id = ? AND sales_invoice_id = ?", clientId, invoiceId).
		Scan(&credits).Error; err != nil {
		return decimal.Zero, err
	}
	return payments.Total.Add(credits.Total), nil
}

// SumBillSettlements totals the active debit notes against a bill.
func SumBillSettlements(tx *gorm.DB, ctx context.Context, clientId string, billId int) (decimal.Decimal, error) {
	type row struct {
		Total decimal.Decimal
	}
	var debits row
	if err := tx.WithContext(ctx).Model(&BillDebitNote{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("client_id = ? AND bill_id = ?", clientId, billId).
		Scan(&debits).Error; err != nil {
		return decimal.Zero, err
	}
	return debits.Total, nil
}
