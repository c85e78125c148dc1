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

// CreateSalesInvoice persists a new invoice. An unpaid invoice touches
// nothing but its own rows; a cash sale (paid on creation) additionally
// decrements stock and recognizes revenue in the same transaction.
func CreateSalesInvoice(ctx context.Context, logger *logrus.Logger, input *models.NewSalesInvoice) (*models.SalesInvoice, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if err := validateNewSalesInvoice(input); err != nil {
		return nil, err
	}

	var invoice *models.SalesInvoice
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		if _, err := models.GetResourceInTx[models.Customer](tx, ctx, clientId, input.CustomerID); err != nil {
			return err
		}

		details, total, totalCost, err := input.BuildDetails(tx, ctx, clientId)
		if err != nil {
			return err
		}

		invoiceDate := input.InvoiceDate
		if invoiceDate.IsZero() {
			invoiceDate = time.Now().UTC()
		}

		invoice = &models.SalesInvoice{
			ClientId:      clientId,
			InvoiceNumber: input.InvoiceNumber,
			CustomerID:    input.CustomerID,
			InvoiceDate:   invoiceDate,
			DueDate:       input.DueDate,
			Total:         total,
			TotalCost:     totalCost,
			Profit:        total.Sub(totalCost),
			SettledAmount: decimal.Zero,
			Status:        ledger.StatusUnpaid,
			Note:          input.Note,
			Details:       details,
		}

		if input.PaidOnCreation {
			invoice.SettledAmount = total
			invoice.Status = ledger.StatusPaid
		}

		if err := tx.WithContext(ctx).Create(invoice).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return &ledger.ValidationError{Message: fmt.Sprintf("invoice number %s already exists", input.InvoiceNumber)}
			}
			config.LogError(logger, "invoiceWorkflow.go", "CreateSalesInvoice", "create invoice", input.InvoiceNumber, err)
			return err
		}

		description := fmt.Sprintf("Invoice %s created with total %s.", invoice.InvoiceNumber, invoice.Total)
		if err := models.CreateActivity(tx, ctx, models.ActivityActionCreated, invoice.ID, models.ReferenceTypeSalesInvoice, description, nil, invoice); err != nil {
			return err
		}

		if input.PaidOnCreation {
			deltas := ledger.ConsumptionDeltas(invoice.LedgerLines())
			if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, invoice.ID, models.ReferenceTypeSalesInvoice); err != nil {
				return err
			}
			if err := RecognizeRevenue(tx, ctx, logger, clientId, invoice, models.RevenueAccountSales); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// UpdateSalesInvoice replaces the mutable header fields and, while the
// invoice has no settlements, its line items. Settled invoices only accept
// note/due-date edits.
func UpdateSalesInvoice(ctx context.Context, logger *logrus.Logger, id int, input *models.NewSalesInvoice) (*models.SalesInvoice, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if err := validateNewSalesInvoice(input); err != nil {
		return nil, err
	}

	var invoice *models.SalesInvoice
	err := WithPosting(ctx, logger, func(tx *gorm.DB) error {
		var err error
		invoice, err = models.GetSalesInvoiceForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}
		before := *invoice

		settled, err := models.SumInvoiceSettlements(tx, ctx, clientId, invoice.ID)
		if err != nil {
			return err
		}

		if settled.GreaterThan(decimal.Zero) || invoice.Status == ledger.StatusPaid {
			if config.SettledDocImmutability() {
				return &ledger.ValidationError{Message: "settled invoices accept only note and due date changes"}
			}
			if invoiceItemsChanged(invoice.Details, input.Items) {
				return &ledger.ValidationError{Message: "line items cannot be changed on an invoice with settlements"}
			}
		}

		if settled.IsZero() && invoice.Status != ledger.StatusPaid {
			details, total, totalCost, err := input.BuildDetails(tx, ctx, clientId)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).
				Where("sales_invoice_id = ?", invoice.ID).
				Delete(&models.SalesInvoiceDetail{}).Error; err != nil {
				return err
			}
			for i := range details {
				details[i].SalesInvoiceID = invoice.ID
			}
			if err := tx.WithContext(ctx).Create(&details).Error; err != nil {
				return err
			}
			invoice.Details = details
			invoice.Total = total
			invoice.TotalCost = totalCost
			invoice.Profit = total.Sub(totalCost)
			invoice.CustomerID = input.CustomerID
			if !input.InvoiceDate.IsZero() {
				invoice.InvoiceDate = input.InvoiceDate
			}
		}
		invoice.DueDate = input.DueDate
		invoice.Note = input.Note

		if err := tx.WithContext(ctx).Omit("Details").Save(invoice).Error; err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "UpdateSalesInvoice", "save invoice", invoice.ID, err)
			return err
		}

		description := fmt.Sprintf("Invoice %s updated.", invoice.InvoiceNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionUpdated, invoice.ID, models.ReferenceTypeSalesInvoice, description, &before, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// invoiceItemsChanged reports whether the requested line items differ from the
// stored ones in product, quantity, or unit price.
func invoiceItemsChanged(details []models.SalesInvoiceDetail, items []models.NewSalesInvoiceItem) bool {
	if len(details) != len(items) {
		return true
	}
	for i, item := range items {
		if details[i].ProductID != item.ProductID {
			return true
		}
		if details[i].Quantity.Cmp(item.Quantity) != 0 {
			return true
		}
		if details[i].UnitPrice.Cmp(item.UnitPrice) != 0 {
			return true
		}
	}
	return false
}

// DeleteSalesInvoice removes an invoice and its settlements. A paid invoice
// first restores every line item's stock and drops its revenue row, so the
// round trip create-paid-then-delete leaves stock exactly where it started.
func DeleteSalesInvoice(ctx context.Context, logger *logrus.Logger, id int) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}

	return WithPosting(ctx, logger, func(tx *gorm.DB) error {
		invoice, err := models.GetSalesInvoiceForUpdate(tx, ctx, clientId, id)
		if err != nil {
			return err
		}

		if invoice.Status == ledger.StatusPaid {
			deltas := ledger.RestorationDeltas(invoice.LedgerLines())
			if err := ApplyStockDeltas(tx, ctx, logger, clientId, deltas, invoice.ID, models.ReferenceTypeSalesInvoice); err != nil {
				return err
			}
			if err := DerecognizeRevenue(tx, ctx, logger, clientId, invoice); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).
			Where("client_id = ? AND sales_invoice_id = ?", clientId, invoice.ID).
			Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Where("client_id = ? AND sales_invoice_id = ?", clientId, invoice.ID).
			Delete(&models.SalesCreditNote{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Where("sales_invoice_id = ?", invoice.ID).
			Delete(&models.SalesInvoiceDetail{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(invoice).Error; err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "DeleteSalesInvoice", "delete invoice", invoice.ID, err)
			return err
		}

		description := fmt.Sprintf("Invoice %s deleted.", invoice.InvoiceNumber)
		return models.CreateActivity(tx, ctx, models.ActivityActionDeleted, invoice.ID, models.ReferenceTypeSalesInvoice, description, invoice, nil)
	})
}

func validateNewSalesInvoice(input *models.NewSalesInvoice) error {
	if input == nil {
		return &ledger.ValidationError{Message: "invoice payload is required"}
	}
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
