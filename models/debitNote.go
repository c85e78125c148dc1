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

// BillDebitNote reduces a bill's payable, the payable-side mirror of a sales
// credit note.
type BillDebitNote struct {
	ID         int                 `gorm:"primary_key" json:"id"`
	ClientId   string              `gorm:"type:char(36);not null;uniqueIndex:idx_debit_note_number_client" json:"client_id"`
	Client     Client              `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	NoteNumber string              `gorm:"size:100;not null;uniqueIndex:idx_debit_note_number_client" json:"note_number" binding:"required"`
	BillID     int                 `gorm:"index;not null" json:"bill_id"`
	Bill       Bill                `gorm:"foreignKey:BillID" json:"-"`
	BillNumber string              `gorm:"size:100;index" json:"bill_number"`
	Amount     decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"amount"`
	NoteDate   time.Time           `json:"note_date"`
	Reason     string              `gorm:"type:text" json:"reason"`
	Items      []BillDebitNoteItem `gorm:"foreignKey:BillDebitNoteID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillDebitNoteItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BillDebitNoteID int             `gorm:"index;not null" json:"bill_debit_note_id"`
	ProductID       int             `gorm:"index;not null" json:"product_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
}

type NewBillDebitNote struct {
	NoteNumber string          `json:"note_number" binding:"required"`
	BillID     int             `json:"bill_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	NoteDate   time.Time       `json:"note_date"`
	Reason     string          `json:"reason"`
}

func (input *NewBillDebitNote) Validate() error {
	if !input.Amount.IsPositive() {
		return &ledger.ValidationError{Message: "debit note amount must be positive"}
	}
	return nil
}

func (input *NewBillDebitNote) BuildItems(bill *Bill) []BillDebitNoteItem {
	allocations := ledger.Allocate(input.Amount, bill.LedgerLines())
	items := make([]BillDebitNoteItem, 0, len(allocations))
	for _, a := range allocations {
		items = append(items, BillDebitNoteItem{
			ProductID: a.ProductID,
			Amount:    a.Amount,
		})
	}
	return items
}

func GetBillDebitNote(ctx context.Context, id int) (*BillDebitNote, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[BillDebitNote](ctx, clientId, id, "Items")
}

func GetBillDebitNoteForUpdate(tx *gorm.DB, ctx context.Context, clientId string, id int) (*BillDebitNote, error) {
	var note BillDebitNote
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND id = ?", clientId, id).
		First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ledger.NotFoundError{Resource: "bill debit note", ID: id}
		}
		return nil, err
	}
	return &note, nil
}

func GetBillDebitNotes(ctx context.Context, billId *int) ([]*BillDebitNote, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if billId != nil {
		dbCtx = dbCtx.Where("bill_id = ?", *billId)
	}

	var results []*BillDebitNote
	if err := dbCtx.Preload("Items").
		Order("note_date DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
