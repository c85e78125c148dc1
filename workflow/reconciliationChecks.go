package workflow

import (
	"context"
	"fmt"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ReconciliationFinding is one detected mismatch between stored ledger state
// and the state recomputed from first principles.
type ReconciliationFinding struct {
	ClientId       string `json:"client_id"`
	DocumentNumber string `json:"document_number"`
	Kind           string `json:"kind"`
	Detail         string `json:"detail"`
}

// RunReconciliationChecks sweeps one tenant's invoices and bills and reports
// every stored total, settled amount, status or revenue row that disagrees
// with a recomputation. Read-only; intended for a nightly run or an admin
// trigger.
func RunReconciliationChecks(ctx context.Context, logger *logrus.Logger, clientId string) ([]ReconciliationFinding, error) {
	db := config.GetDB()
	var findings []ReconciliationFinding

	var invoices []models.SalesInvoice
	if err := db.WithContext(ctx).
		Where("client_id = ?", clientId).
		Preload("Details").
		Find(&invoices).Error; err != nil {
		config.LogError(logger, "reconciliationChecks.go", "RunReconciliationChecks", "load invoices", clientId, err)
		return nil, err
	}

	for i := range invoices {
		inv := &invoices[i]

		lineSum := decimal.Zero
		for _, d := range inv.Details {
			lineSum = lineSum.Add(d.LineTotal)
		}
		if err := ledger.VerifyStoredTotal(inv.InvoiceNumber, inv.Total, lineSum); err != nil {
			findings = append(findings, ReconciliationFinding{
				ClientId:       clientId,
				DocumentNumber: inv.InvoiceNumber,
				Kind:           "total_mismatch",
				Detail:         err.Error(),
			})
		}

		settled, err := models.SumInvoiceSettlements(db.WithContext(ctx), ctx, clientId, inv.ID)
		if err != nil {
			return nil, err
		}
		if err := ledger.VerifyStoredTotal(inv.InvoiceNumber, inv.SettledAmount, settled); err != nil {
			findings = append(findings, ReconciliationFinding{
				ClientId:       clientId,
				DocumentNumber: inv.InvoiceNumber,
				Kind:           "settled_mismatch",
				Detail:         err.Error(),
			})
		}

		if inv.Status != ledger.StatusDraft {
			derived := ledger.DeriveStatus(inv.Total, settled)
			if derived != inv.Status {
				findings = append(findings, ReconciliationFinding{
					ClientId:       clientId,
					DocumentNumber: inv.InvoiceNumber,
					Kind:           "status_mismatch",
					Detail:         fmt.Sprintf("stored status %s, derived %s", inv.Status, derived),
				})
			}
		}

		var revenueCount int64
		if err := db.WithContext(ctx).Model(&models.SalesRevenue{}).
			Where("client_id = ? AND sales_invoice_number = ?", clientId, inv.InvoiceNumber).
			Count(&revenueCount).Error; err != nil {
			return nil, err
		}
		if inv.Status == ledger.StatusPaid && revenueCount == 0 {
			findings = append(findings, ReconciliationFinding{
				ClientId:       clientId,
				DocumentNumber: inv.InvoiceNumber,
				Kind:           "revenue_missing",
				Detail:         "invoice is paid but has no revenue row",
			})
		}
		if inv.Status != ledger.StatusPaid && revenueCount > 0 {
			findings = append(findings, ReconciliationFinding{
				ClientId:       clientId,
				DocumentNumber: inv.InvoiceNumber,
				Kind:           "revenue_orphaned",
				Detail:         "invoice is not paid but has a revenue row",
			})
		}
	}

	var bills []models.Bill
	if err := db.WithContext(ctx).
		Where("client_id = ?", clientId).
		Preload("Details").
		Find(&bills).Error; err != nil {
		config.LogError(logger, "reconciliationChecks.go", "RunReconciliationChecks", "load bills", clientId, err)
		return nil, err
	}

	for i := range bills {
		bill := &bills[i]

		lineSum := decimal.Zero
		for _, d := range bill.Details {
			lineSum = lineSum.Add(d.LineTotal)
		}
		if err := ledger.VerifyStoredTotal(bill.BillNumber, bill.Total, lineSum); err != nil {
			findings = append(findings, ReconciliationFinding{
				ClientId:       clientId,
				DocumentNumber: bill.BillNumber,
				Kind:           "total_mismatch",
				Detail:         err.Error(),
			})
		}

		settled, err := models.SumBillSettlements(db.WithContext(ctx), ctx, clientId, bill.ID)
		if err != nil {
			return nil, err
		}
		if err := ledger.VerifyStoredTotal(bill.BillNumber, bill.SettledAmount, settled); err != nil {
			findings = append(findings, ReconciliationFinding{
				ClientId:       clientId,
				DocumentNumber: bill.BillNumber,
				Kind:           "settled_mismatch",
				Detail:         err.Error(),
			})
		}

		if bill.Status != ledger.StatusDraft {
			derived := ledger.DeriveStatus(bill.Total, settled)
			if derived != bill.Status {
				findings = append(findings, ReconciliationFinding{
					ClientId:       clientId,
					DocumentNumber: bill.BillNumber,
					Kind:           "status_mismatch",
					Detail:         fmt.Sprintf("stored status %s, derived %s", bill.Status, derived),
				})
			}
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":     "ReconciliationChecks",
			"client_id": clientId,
			"findings":  len(findings),
		}).Info("ledger reconciliation checks completed")
	}
	return findings, nil
}
