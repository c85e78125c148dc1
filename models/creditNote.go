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

// SalesCreditNote reduces an invoice's receivable directly, the returns path.
// Accounting-wise it settles the invoice like a payment does, so both feed
// SumInvoiceSettlements.
type SalesCreditNote struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	ClientId       string                `gorm:"type:char(36);not null;uniqueIndex:idx_credit_note_number_client" json:"client_id"`
	Client         Client                `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	NoteNumber     string                `gorm:"size:100;not null;uniqueIndex:idx_credit_note_number_client" json:"note_number" binding:"required"`
	SalesInvoiceID int                   `gorm:"index;not null" json:"sales_invoice_id"`
	SalesInvoice   SalesInvoice          `gorm:"foreignKey:SalesInvoiceID" json:"-"`
	InvoiceNumber  string                `gorm:"size:100;index" json:"invoice_number"`
	Amount         decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"amount"`
	NoteDate       time.Time             `json:"note_date"`
	Reason         string                `gorm:"type:text" json:"reason"`
	Items          []SalesCreditNoteItem `gorm:"foreignKey:SalesCreditNoteID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// SalesCreditNoteItem is the per-line audit trail of a partial credit,
// allocated from the invoice's stored line ratios.
type SalesCreditNoteItem struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SalesCreditNoteID int             `gorm:"index;not null" json:"sales_credit_note_id"`
	ProductID         int             `gorm:"index;not null" json:"product_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Cost              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
}

type NewSalesCreditNote struct {
	NoteNumber     string          `json:"note_number" binding:"required"`
	SalesInvoiceID int             `json:"sales_invoice_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	NoteDate       time.Time       `json:"note_date"`
	Reason         string          `json:"reason"`
}

func (input *NewSalesCreditNote) Validate() error {
	if !input.Amount.IsPositive() {
		return &ledger.ValidationError{Message: "credit note amount must be positive"}
	}
	return nil
}

// BuildItems allocates the credited amount across the invoice's lines.
func (input *NewSalesCreditNote) BuildItems(invoice *SalesInvoice) []SalesCreditNoteItem {
	allocations := ledger.Allocate(input.Amount, invoice.LedgerLines())
	items := make([]SalesCreditNoteItem, 0, len(allocations))
	for _, a := range allocations {
		items = append(items, SalesCreditNoteItem{
			ProductID: a.ProductID,
			Amount:    a.Amount,
			Cost:      a.Cost,
		})
	}
	return items
}

func GetSalesCreditNote(ctx context.Context, id int) (*SalesCreditNote, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[SalesCreditNote](ctx, clientId, id, "Items")
}

func GetSalesCreditNoteForUpdate(tx *gorm.DB, ctx context.Context, clientId string, id int) (*SalesCreditNote, error) {
	var note SalesCreditNote
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND id = ?", clientId, id).
		First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ledger.NotFoundError{Resource: "sales credit note", ID: id}
		}
		return nil, err
	}
	return &note, nil
}

func GetSalesCreditNotes(ctx context.Context, invoiceId *int) ([]*SalesCreditNote, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if invoiceId != nil {
		dbCtx = dbCtx.Where("sales_invoice_id = ?", *invoiceId)
	}

	var results []*SalesCreditNote
	if err := dbCtx.Preload("Items").
		Order("note_date DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
