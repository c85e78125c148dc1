package reports

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/shopspring/decimal"
)

type RevenueByCustomerResponse struct {
	CustomerID   int             `json:"CustomerId"`
	CustomerName *string         `json:"CustomerName,omitempty"`
	InvoiceCount int             `json:"InvoiceCount"`
	TotalRevenue decimal.Decimal `json:"TotalRevenue"`
	TotalCost    decimal.Decimal `json:"TotalCost"`
	TotalProfit  decimal.Decimal `json:"TotalProfit"`
}

// GetRevenueByCustomerReport aggregates recognized revenue per customer over
// a date window. Only paid invoices produce revenue rows, so joining through
// sales_revenues keeps the report aligned with the ledger.
func GetRevenueByCustomerReport(ctx context.Context, fromDate, toDate time.Time) ([]*RevenueByCustomerResponse, error) {

	sql := `
SELECT
    siv.customer_id,
    customers.name AS customer_name,
    siv.invoice_count,
    siv.total_revenue,
    siv.total_cost,
    siv.total_revenue - siv.total_cost AS total_profit
FROM
    (SELECT
        sales_invoices.customer_id,
            COUNT(sales_revenues.id) AS invoice_count,
            SUM(sales_revenues.amount) AS total_revenue,
            SUM(sales_revenues.cost_of_goods) AS total_cost
    FROM
        sales_revenues
            JOIN
        sales_invoices ON sales_invoices.id = sales_revenues.sales_invoice_id
    WHERE
        sales_revenues.client_id = @clientId
            AND sales_revenues.recognized_at BETWEEN @fromDate AND @toDate
    GROUP BY sales_invoices.customer_id) AS siv
        LEFT JOIN
    customers ON customers.id = siv.customer_id;
`

	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	var records []*RevenueByCustomerResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql,
		map[string]interface{}{
			"clientId": clientId,
			"fromDate": fromDate,
			"toDate":   toDate,
		}).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
