package reports

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/shopspring/decimal"
)

type OutstandingReceivableResponse struct {
	InvoiceID     int             `json:"InvoiceId"`
	InvoiceNumber string          `json:"InvoiceNumber"`
	CustomerID    int             `json:"CustomerId"`
	CustomerName  *string         `json:"CustomerName,omitempty"`
	InvoiceDate   time.Time       `json:"InvoiceDate"`
	DueDate       *time.Time      `json:"DueDate,omitempty"`
	Total         decimal.Decimal `json:"Total"`
	SettledAmount decimal.Decimal `json:"SettledAmount"`
	Outstanding   decimal.Decimal `json:"Outstanding"`
	Status        string          `json:"Status"`
}

// GetOutstandingReceivablesReport lists every invoice that still carries a
// balance, oldest first.
func GetOutstandingReceivablesReport(ctx context.Context) ([]*OutstandingReceivableResponse, error) {

	sql := `
SELECT
    sales_invoices.id AS invoice_id,
    sales_invoices.invoice_number,
    sales_invoices.customer_id,
    customers.name AS customer_name,
    sales_invoices.invoice_date,
    sales_invoices.due_date,
    sales_invoices.total,
    sales_invoices.settled_amount,
    sales_invoices.total - sales_invoices.settled_amount AS outstanding,
    sales_invoices.status
FROM
    sales_invoices
        LEFT JOIN
    customers ON customers.id = sales_invoices.customer_id
WHERE
    sales_invoices.client_id = @clientId
        AND sales_invoices.status IN ('unpaid' , 'partially_paid')
ORDER BY sales_invoices.invoice_date ASC , sales_invoices.id ASC;
`

	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	var records []*OutstandingReceivableResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql,
		map[string]interface{}{"clientId": clientId}).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
