package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateSalesCreditNote reduces an invoice's receivable. Accounting-wise the
// note settles the invoice exactly like a payment; the per-line credit
// amounts are allocated from the invoice's stored line ratios.
func CreateSalesCreditNote(ctx context.Context, logger *logrus.Logger, input *models.NewSalesCreditNote) (*models.SalesCreditNote, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var note *models.SalesCreditNote
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		invoice, err := models.GetSalesInvoiceForUpdate(tx, ctx, clientId, input.SalesInvoiceID)
		if err != nil {
			return err
		}

		if _, err := settleInvoice(tx, ctx, logger, clientId, invoice, input.Amount, models.RevenueAccountSalesCredit); err != nil {
			return err
		}

		noteDate := input.NoteDate
		if noteDate.IsZero() {
			noteDate = time.Now().UTC()
		}
		note = &models.SalesCreditNote{
			ClientId:       clientId,
			NoteNumber:     input.NoteNumber,
			SalesInvoiceID: invoice.ID,
			InvoiceNumber:  invoice.InvoiceNumber,
			Amount:         input.Amount,
			NoteDate:       noteDate,
			Reason:         input.Reason,
			Items:          input.BuildItems(invoice),
		}
		if err := tx.WithContext(ctx).Create(note).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return &ledger.ValidationError{Message: fmt.Sprintf("credit note number %s already exists", input.NoteNumber)}
			}
			config.LogError(logger, "creditNoteWorkflow.go", "CreateSalesCreditNote", "create credit note", input, err)
			return err
		}

		description := fmt.Sprintf("Credit note %s of %s applied to invoice %s.",
			note.NoteNumber, note.Amount, invoice.InvoiceNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionCreated, note.ID, models.ReferenceTypeSalesCreditNote, description, nil, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteSalesCreditNote reverses a credit: the invoice balance is recomputed
// and paid-boundary side effects undo symmetrically.
func DeleteSalesCreditNote(ctx context.Context, logger *logrus.Logger, id int) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}

	return WithPosting(ctx, logger, func(tx *gorm.DB) error {
		note, err := models.GetSalesCreditNoteForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}
		invoice, err := models.GetSalesInvoiceForUpdate(tx, ctx, clientId, note.SalesInvoiceID)
		if err != nil {
			return err
		}

		if _, err := settleInvoice(tx, ctx, logger, clientId, invoice, note.Amount.Neg(), models.RevenueAccountSalesCredit); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Where("sales_credit_note_id = ?", note.ID).
			Delete(&models.SalesCreditNoteItem{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(note).Error; err != nil {
			config.LogError(logger, "creditNoteWorkflow.go", "DeleteSalesCreditNote", "delete credit note", note.ID, err)
			return err
		}

		description := fmt.Sprintf("Credit note %s of %s deleted from invoice %s.",
			note.NoteNumber, note.Amount, invoice.InvoiceNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionDeleted, note.ID, models.ReferenceTypeSalesCreditNote, description, note, nil)
	})
}
