package models

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// SalesRevenue is a derived, append-only record of realized profit. The unique
// index on (client_id, sales_invoice_number) makes duplicate recognition for
// one invoice structurally impossible.
type SalesRevenue struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ClientId           string          `gorm:"type:char(36);not null;uniqueIndex:idx_revenue_invoice_client" json:"client_id"`
	Client             Client          `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	SalesInvoiceNumber string          `gorm:"size:100;not null;uniqueIndex:idx_revenue_invoice_client" json:"sales_invoice_number"`
	SalesInvoiceID     int             `gorm:"index;not null" json:"sales_invoice_id"`
	Account            RevenueAccount  `gorm:"type:enum('sales','sales_payment','sales_credit');not null" json:"account"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CostOfGoods        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_of_goods"`
	RecognizedAt       time.Time       `json:"recognized_at"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Profit is derived, never stored.
func (r *SalesRevenue) Profit() decimal.Decimal {
	return r.Amount.Sub(r.CostOfGoods)
}

func GetSalesRevenue(ctx context.Context, id int) (*SalesRevenue, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[SalesRevenue](ctx, clientId, id)
}

type RevenueFilter struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

func GetSalesRevenues(ctx context.Context, filter *RevenueFilter) ([]*SalesRevenue, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if filter != nil {
		if filter.From != nil {
			dbCtx = dbCtx.Where("recognized_at >= ?", *filter.From)
		}
		if filter.To != nil {
			dbCtx = dbCtx.Where("recognized_at <= ?", *filter.To)
		}
	}

	var results []*SalesRevenue
	if err := dbCtx.Order("recognized_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
