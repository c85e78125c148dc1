package workflow

import (
	"context"
	"fmt"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyStockDeltas mutates product stock inside a posting transaction. Rows
// are locked FOR UPDATE in product id order, availability is checked against
// the locked quantities, and stock_status is rederived with every quantity
// write. One stock_updated activity row is written per changed product.
func ApplyStockDeltas(tx *gorm.DB, ctx context.Context, logger *logrus.Logger, clientId string, deltas []ledger.StockDelta, refId int, refType models.ReferenceType) error {
	if len(deltas) == 0 {
		return nil
	}

	productIds := make([]int, 0, len(deltas))
	for _, d := range deltas {
		productIds = append(productIds, d.ProductID)
	}

	var products []models.Product
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ? AND id IN ?", clientId, productIds).
		Order("id ASC").
		Find(&products).Error; err != nil {
		config.LogError(logger, "stockProcessing.go", "ApplyStockDeltas", "lock products", productIds, err)
		return err
	}

	byId := make(map[int]*models.Product, len(products))
	for i := range products {
		byId[products[i].ID] = &products[i]
	}
	for _, d := range deltas {
		if _, ok := byId[d.ProductID]; !ok {
			return &ledger.NotFoundError{Resource: "product", ID: d.ProductID}
		}
	}

	if config.StrictStockChecks() {
		available := make(map[int]decimal.Decimal, len(products))
		names := make(map[int]string, len(products))
		for id, p := range byId {
			available[id] = p.StockQuantity
			names[id] = p.Name
		}
		if err := ledger.CheckAvailability(available, names, deltas); err != nil {
			return err
		}
	}

	for _, d := range deltas {
		product := byId[d.ProductID]
		before := product.StockQuantity
		product.StockQuantity = product.StockQuantity.Add(d.Quantity)
		product.StockStatus = ledger.StockStatusFor(product.StockQuantity, product.MinStockLevel)

		if err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("client_id = ? AND id = ?", clientId, product.ID).
			Updates(map[string]interface{}{
				"stock_quantity": product.StockQuantity,
				"stock_status":   product.StockStatus,
			}).Error; err != nil {
			config.LogError(logger, "stockProcessing.go", "ApplyStockDeltas", "update product", product.ID, err)
			return err
		}

		description := fmt.Sprintf("Stock for %s changed from %s to %s.", product.Name, before, product.StockQuantity)
		if err := models.CreateActivity(tx, ctx, models.ActivityActionStockUpdated, refId, refType, description,
			map[string]interface{}{"product_id": product.ID, "stock_quantity": before},
			map[string]interface{}{"product_id": product.ID, "stock_quantity": product.StockQuantity},
		); err != nil {
			config.LogError(logger, "stockProcessing.go", "ApplyStockDeltas", "create activity", product.ID, err)
			return err
		}
	}

	models.InvalidateProductCache(clientId)
	return nil
}
