package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RecognizeRevenue creates the single revenue row for an invoice that just
// entered paid. The unique index on (client_id, sales_invoice_number) turns a
// double recognition into a constraint violation instead of a silent
// duplicate.
func RecognizeRevenue(tx *gorm.DB, ctx context.Context, logger *logrus.Logger, clientId string, invoice *models.SalesInvoice, account models.RevenueAccount) error {
	revenue := models.SalesRevenue{
		ClientId:           clientId,
		SalesInvoiceNumber: invoice.InvoiceNumber,
		SalesInvoiceID:     invoice.ID,
		Account:            account,
		Amount:             invoice.Total,
		CostOfGoods:        invoice.TotalCost,
		RecognizedAt:       time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&revenue).Error; err != nil {
		if isDuplicateKeyErr(err) {
			// A revenue row already exists for this invoice number. The
			// stored ledger state disagrees with the transition we just
			// computed.
			config.LogError(logger, "revenueRecognition.go", "RecognizeRevenue", "duplicate revenue", invoice.InvoiceNumber, err)
			return fmt.Errorf("revenue already recognized for invoice %s", invoice.InvoiceNumber)
		}
		config.LogError(logger, "revenueRecognition.go", "RecognizeRevenue", "create revenue", invoice.InvoiceNumber, err)
		return err
	}

	description := fmt.Sprintf("Revenue of %s recognized for invoice %s (profit %s).",
		revenue.Amount, invoice.InvoiceNumber, revenue.Profit())
	return models.CreateActivity(tx, ctx, models.ActivityActionCreated, invoice.ID, models.ReferenceTypeSalesInvoice, description, nil, &revenue)
}

// DerecognizeRevenue deletes the revenue row when an invoice leaves paid. A
// missing row is tolerated; leaving paid must always succeed.
func DerecognizeRevenue(tx *gorm.DB, ctx context.Context, logger *logrus.Logger, clientId string, invoice *models.SalesInvoice) error {
	var revenue models.SalesRevenue
	err := tx.WithContext(ctx).
		Where("client_id = ? AND sales_invoice_number = ?", clientId, invoice.InvoiceNumber).
		First(&revenue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		config.LogError(logger, "revenueRecognition.go", "DerecognizeRevenue", "find revenue", invoice.InvoiceNumber, err)
		return err
	}

	if err := tx.WithContext(ctx).Delete(&revenue).Error; err != nil {
		config.LogError(logger, "revenueRecognition.go", "DerecognizeRevenue", "delete revenue", invoice.InvoiceNumber, err)
		return err
	}

	description := fmt.Sprintf("Revenue of %s removed for invoice %s.", revenue.Amount, invoice.InvoiceNumber)
	return models.CreateActivity(tx, ctx, models.ActivityActionDeleted, invoice.ID, models.ReferenceTypeSalesInvoice, description, &revenue, nil)
}
