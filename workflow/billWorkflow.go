package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateBill persists a new vendor bill in draft. Drafts carry no ledger
// weight: no balance, no stock, no settlement until confirmed.
func CreateBill(ctx context.Context, logger *logrus.Logger, input *models.NewBill) (*models.Bill, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if err := validateNewBill(input); err != nil {
		return nil, err
	}

	var bill *models.Bill
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		if _, err := models.GetResourceInTx[models.Vendor](tx, ctx, clientId, input.VendorID); err != nil {
			return err
		}

		details, total, err := input.BuildDetails(tx, ctx, clientId)
		if err != nil {
			return err
		}

		billDate := input.BillDate
		if billDate.IsZero() {
			billDate = time.Now().UTC()
		}
		bill = &models.Bill{
			ClientId:      clientId,
			BillNumber:    input.BillNumber,
			VendorID:      input.VendorID,
			BillDate:      billDate,
			DueDate:       input.DueDate,
			Total:         total,
			SettledAmount: decimal.Zero,
			Status:        ledger.StatusDraft,
			Note:          input.Note,
			Details:       details,
		}
		if err := tx.WithContext(ctx).Create(bill).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return &ledger.ValidationError{Message: fmt.Sprintf("bill number %s already exists", input.BillNumber)}
			}
			config.LogError(logger, "billWorkflow.go", "CreateBill", "create bill", input.BillNumber, err)
			return err
		}

		description := fmt.Sprintf("Bill %s created with total %s.", bill.BillNumber, bill.Total)
		return models.CreateActivity(tx, ctx, models.ActivityActionCreated, bill.ID, models.ReferenceTypeBill, description, nil, bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// ConfirmBill moves a draft bill into unpaid, the only legal exit from draft.
func ConfirmBill(ctx context.Context, logger *logrus.Logger, id int) (*models.Bill, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}

	var bill *models.Bill
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		var err error
		bill, err = models.GetBillForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}

		newStatus, err := ledger.Transition(bill.Status, ledger.StatusUnpaid)
		if err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Model(&models.Bill{}).
			Where("client_id = ? AND id = ?", clientId, bill.ID).
			Update("status", newStatus).Error; err != nil {
			config.LogError(logger, "billWorkflow.go", "ConfirmBill", "update status", bill.ID, err)
			return err
		}
		bill.Status = newStatus

		description := fmt.Sprintf("Bill %s confirmed.", bill.BillNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionUpdated, bill.ID, models.ReferenceTypeBill, description, nil, bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// DeleteBill removes a bill and its debit notes. A paid bill first reverses
// its stock receipt.
func DeleteBill(ctx context.Context, logger *logrus.Logger, id int) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}

	return WithPosting(ctx, logger, func(tx *gorm.DB) error {
		bill, err := models.GetBillForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}

		if bill.Status == ledger.StatusPaid {
			deltas := ledger.ConsumptionDeltas(bill.LedgerLines())
			if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, bill.ID, models.ReferenceTypeBill); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).
			Where("client_id = ? AND bill_id = ?", clientId, bill.ID).
			Delete(&models.BillDebitNote{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Where("bill_id = ?", bill.ID).
			Delete(&models.BillDetail{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(bill).Error; err != nil {
			config.LogError(logger, "billWorkflow.go", "DeleteBill", "delete bill", bill.ID, err)
			return err
		}

		description := fmt.Sprintf("Bill %s deleted.", bill.BillNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionDeleted, bill.ID, models.ReferenceTypeBill, description, bill, nil)
	})
}

// settleBill mirrors settleInvoice on the payable side. Entering paid
// receives the purchased stock; leaving paid reverses the receipt. Bills
// never touch revenue.
func settleBill(tx *gorm.DB, ctx context.Context, logger *logrus.Logger, clientId string, bill *models.Bill, delta decimal.Decimal) (ledger.Outcome, error) {
	if bill.Status == ledger.StatusDraft {
		return ledger.Outcome{}, &ledger.ValidationError{Message: fmt.Sprintf("bill %s is a draft and cannot be settled", bill.BillNumber)}
	}

	settledBefore, err := models.SumBillSettlements(tx, ctx, clientId, bill.ID)
	if err != nil {
		return ledger.Outcome{}, err
	}
	if err := ledger.VerifyStoredTotal(bill.BillNumber, bill.SettledAmount, settledBefore); err != nil {
		config.LogError(logger, "billWorkflow.go", "settleBill", "stored settled amount drift", bill.BillNumber, err)
		return ledger.Outcome{}, err
	}

	outcome, err := ledger.ComputeSettlement(ledger.SettlementChange{
		DocumentNumber: bill.BillNumber,
		Total:          bill.Total,
		SettledBefore:  settledBefore,
		Delta:          delta,
		OldStatus:      bill.Status,
	})
	if err != nil {
		return ledger.Outcome{}, err
	}

	// Direction flips on the payable side: a fully settled bill means the
	// goods arrived.
	if outcome.ConsumesStock {
		deltas := ledger.RestorationDeltas(bill.LedgerLines())
		if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, bill.ID, models.ReferenceTypeBill); err != nil {
			return ledger.Outcome{}, err
		}
	}
	if outcome.RestoresStock {
		deltas := ledger.ConsumptionDeltas(bill.LedgerLines())
		if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, bill.ID, models.ReferenceTypeBill); err != nil {
			return ledger.Outcome{}, err
		}
	}

	if err := tx.WithContext(ctx).Model(&models.Bill{}).
		Where("client_id = ? AND id = ?", clientId, bill.ID).
		Updates(map[string]interface{}{
			"settled_amount": outcome.SettledAfter,
			"status":         outcome.NewStatus,
		}).Error; err != nil {
		config.LogError(logger, "billWorkflow.go", "settleBill", "update bill balance", bill.ID, err)
		return ledger.Outcome{}, err
	}
	bill.SettledAmount = outcome.SettledAfter
	bill.Status = outcome.NewStatus
	return outcome, nil
}

func validateNewBill(input *models.NewBill) error {
	if input == nil {
		return &ledger.ValidationError{Message: "bill payload is required"}
	}
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
