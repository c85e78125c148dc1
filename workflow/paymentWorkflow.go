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

// CreatePayment applies a cash collection to an invoice: recompute settled
// total and status, and when the invoice crosses into paid, decrement stock
// and recognize revenue — all in one transaction.
func CreatePayment(ctx context.Context, logger *logrus.Logger, input *models.NewPayment) (*models.Payment, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		var txErr error
		payment, txErr = createPaymentInTx(tx, ctx, logger, clientId, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// createPaymentInTx is the posting body shared by the REST path and the
// gateway message path. The caller owns the transaction and the tenant lock.
func createPaymentInTx(tx *gorm.DB, ctx context.Context, logger *logrus.Logger, clientId string, input *models.NewPayment) (*models.Payment, error) {
	invoice, err := models.GetSalesInvoiceForUpdate(tx, ctx, clientId, input.SalesInvoiceID)
	if err != nil {
		return nil, err
	}

	outcome, err := settleInvoice(tx, ctx, logger, clientId, invoice, input.Amount, models.RevenueAccountSalesPayment)
	if err != nil {
		return nil, err
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}
	payment := &models.Payment{
		ClientId:       clientId,
		SalesInvoiceID: invoice.ID,
		InvoiceNumber:  invoice.InvoiceNumber,
		Amount:         input.Amount,
		PaymentDate:    paymentDate,
		Method:         input.Method,
		Reference:      input.Reference,
		Note:           input.Note,
	}
	if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
		config.LogError(logger, "paymentWorkflow.go", "createPaymentInTx", "create payment", input, err)
		return nil, err
	}

	description := fmt.Sprintf("Payment of %s received for invoice %s; outstanding %s.",
		input.Amount, invoice.InvoiceNumber, outcome.Outstanding)
	if err := models.CreateActivity(tx, ctx, models.ActivityActionPaymentReceived, payment.ID, models.ReferenceTypePayment, description, nil, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment reverses a collection: the invoice balance is recomputed and,
// when the deletion pulls the invoice back out of paid, stock is restored and
// the revenue row removed.
func DeletePayment(ctx context.Context, logger *logrus.Logger, id int) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}

	return WithPosting(ctx, logger, func(tx *gorm.DB) error {
		payment, err := models.GetPaymentForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}
		invoice, err := models.GetSalesInvoiceForUpdate(tx, ctx, clientId, payment.SalesInvoiceID)
		if err != nil {
			return err
		}

		// Recompute before the row disappears so SettledBefore still
		// includes it.
		if _, err := settleInvoice(tx, ctx, logger, clientId, invoice, payment.Amount.Neg(), models.RevenueAccountSalesPayment); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
			config.LogError(logger, "paymentWorkflow.go", "DeletePayment", "delete payment", payment.ID, err)
			return err
		}

		description := fmt.Sprintf("Payment of %s deleted for invoice %s.", payment.Amount, invoice.InvoiceNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionDeleted, payment.ID, models.ReferenceTypePayment, description, payment, nil)
	})
}

// settleInvoice is the one place an invoice's settled amount and status
// change. delta carries the sign of the event: positive for a settlement row
// being created, negative for one being deleted. The caller creates/deletes
// the row itself after this returns; everything runs in the same posting
// transaction so a later failure rolls the whole event back.
func settleInvoice(tx *gorm.DB, ctx context.Context, logger *logrus.Logger, clientId string, invoice *models.SalesInvoice, delta decimal.Decimal, account models.RevenueAccount) (ledger.Outcome, error) {
	settledBefore, err := models.SumInvoiceSettlements(tx, ctx, clientId, invoice.ID)
	if err != nil {
		return ledger.Outcome{}, err
	}
	// The stored running balance and the sum of active rows must agree.
	if err := ledger.VerifyStoredTotal(invoice.InvoiceNumber, invoice.SettledAmount, settledBefore); err != nil {
		config.LogError(logger, "paymentWorkflow.go", "settleInvoice", "stored settled amount drift", invoice.InvoiceNumber, err)
		return ledger.Outcome{}, err
	}

	outcome, err := ledger.ComputeSettlement(ledger.SettlementChange{
		DocumentNumber: invoice.InvoiceNumber,
		Total:          invoice.Total,
		SettledBefore:  settledBefore,
		Delta:          delta,
		OldStatus:      invoice.Status,
	})
	if err != nil {
		return ledger.Outcome{}, err
	}

	// Stock first: an insufficient stock rejection must abort before any
	// balance write.
	if outcome.ConsumesStock {
		deltas := ledger.ConsumptionDeltas(invoice.LedgerLines())
		if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, invoice.ID, models.ReferenceTypeSalesInvoice); err != nil {
			return ledger.Outcome{}, err
		}
	}
	if outcome.RestoresStock {
		deltas := ledger.RestorationDeltas(invoice.LedgerLines())
		if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, invoice.ID, models.ReferenceTypeSalesInvoice); err != nil {
			return ledger.Outcome{}, err
		}
	}

	switch outcome.Revenue {
	case ledger.RevenueCreate:
		if err := RecognizeRevenue(tx, ctx, logger, clientId, invoice, account); err != nil {
			return ledger.Outcome{}, err
		}
	case ledger.RevenueDelete:
		if err := DerecognizeRevenue(tx, ctx, logger, clientId, invoice); err != nil {
			return ledger.Outcome{}, err
		}
	}

	if err := tx.WithContext(ctx).Model(&models.SalesInvoice{}).
		Where("client_id = ? AND id = ?", clientId, invoice.ID).
		Updates(map[string]interface{}{
			"settled_amount": outcome.SettledAfter,
			"status":         outcome.NewStatus,
		}).Error; err != nil {
		config.LogError(logger, "paymentWorkflow.go", "settleInvoice", "update invoice balance", invoice.ID, err)
		return ledger.Outcome{}, err
	}
	invoice.SettledAmount = outcome.SettledAfter
	invoice.Status = outcome.NewStatus
	return outcome, nil
}
