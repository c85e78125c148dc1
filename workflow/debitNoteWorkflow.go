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

// CreateBillDebitNote reduces a bill's payable; the payable-side mirror of a
// sales credit note.
func CreateBillDebitNote(ctx context.Context, logger *logrus.Logger, input *models.NewBillDebitNote) (*models.BillDebitNote, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var note *models.BillDebitNote
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		bill, err := models.GetBillForUpdate(tx, ctx, clientId, input.BillID)
		if err != nil {
			return err
		}

		if _, err := settleBill(tx, ctx, logger, clientId, bill, input.Amount); err != nil {
			return err
		}

		noteDate := input.NoteDate
		if noteDate.IsZero() {
			noteDate = time.Now().UTC()
		}
		note = &models.BillDebitNote{
			ClientId:   clientId,
			NoteNumber: input.NoteNumber,
			BillID:     bill.ID,
			BillNumber: bill.BillNumber,
			Amount:     input.Amount,
			NoteDate:   noteDate,
			Reason:     input.Reason,
			Items:      input.BuildItems(bill),
		}
		if err := tx.WithContext(ctx).Create(note).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return &ledger.ValidationError{Message: fmt.Sprintf("debit note number %s already exists", input.NoteNumber)}
			}
			config.LogError(logger, "debitNoteWorkflow.go", "CreateBillDebitNote", "create debit note", input, err)
			return err
		}

		description := fmt.Sprintf("Debit note %s of %s applied to bill %s.",
			note.NoteNumber, note.Amount, bill.BillNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionCreated, note.ID, models.ReferenceTypeBillDebitNote, description, nil, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteBillDebitNote reverses a debit: the bill balance is recomputed and
// paid-boundary side effects undo symmetrically.
func DeleteBillDebitNote(ctx context.Context, logger *logrus.Logger, id int) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}

	return WithPosting(ctx, logger, func(tx *gorm.DB) error {
		note, err := models.GetBillDebitNoteForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}
		bill, err := models.GetBillForUpdate(tx, ctx, clientId, note.BillID)
		if err != nil {
			return err
		}

		if _, err := settleBill(tx, ctx, logger, clientId, bill, note.Amount.Neg()); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Where("bill_debit_note_id = ?", note.ID).
			Delete(&models.BillDebitNoteItem{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(note).Error; err != nil {
			config.LogError(logger, "debitNoteWorkflow.go", "DeleteBillDebitNote", "delete debit note", note.ID, err)
			return err
		}

		description := fmt.Sprintf("Debit note %s of %s deleted from bill %s.",
			note.NoteNumber, note.Amount, bill.BillNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionDeleted, note.ID, models.ReferenceTypeBillDebitNote, description, note, nil)
	})
}
