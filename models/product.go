package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/shopspring/decimal"
)

const productCacheTTL = 5 * time.Minute

type Product struct {
	ID            int                `gorm:"primary_key" json:"id"`
	ClientId      string             `gorm:"type:char(36);index;not null" json:"client_id"`
	Client        Client             `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	Name          string             `gorm:"size:255;not null" json:"name" binding:"required"`
	SKU           string             `gorm:"size:100;index" json:"sku"`
	Description   string             `gorm:"type:text" json:"description"`
	StockQuantity decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"stock_quantity"`
	MinStockLevel decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"min_stock_level"`
	BuyingPrice   decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"buying_price"`
	SellingPrice  decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	StockStatus   ledger.StockStatus `gorm:"type:enum('in_stock','low_stock','out_of_stock');not null;default:'out_of_stock'" json:"stock_status"`
	ImageKey      string             `gorm:"size:500" json:"image_key"`
	ThumbnailKey  string             `gorm:"size:500" json:"thumbnail_key"`
	IsActive      bool               `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku"`
	Description   string          `json:"description"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	BuyingPrice   decimal.Decimal `json:"buying_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
}

func productCacheKey(clientId string) string {
	return fmt.Sprintf("products:%s", clientId)
}

// InvalidateProductCache drops the cached product list for a tenant. Called by
// every stock mutation.
func InvalidateProductCache(clientId string) {
	_ = config.RemoveRedisKey(productCacheKey(clientId))
}

func (input *NewProduct) validate() error {
	if input.StockQuantity.IsNegative() {
		return errors.New("stock quantity cannot be negative")
	}
	if input.MinStockLevel.IsNegative() {
		return errors.New("min stock level cannot be negative")
	}
	if input.BuyingPrice.IsNegative() || input.SellingPrice.IsNegative() {
		return errors.New("prices cannot be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product := Product{
		ClientId:      clientId,
		Name:          input.Name,
		SKU:           input.SKU,
		Description:   input.Description,
		StockQuantity: input.StockQuantity,
		MinStockLevel: input.MinStockLevel,
		BuyingPrice:   input.BuyingPrice,
		SellingPrice:  input.SellingPrice,
		StockStatus:   ledger.StockStatusFor(input.StockQuantity, input.MinStockLevel),
		IsActive:      true,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	InvalidateProductCache(clientId)
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.SKU = input.SKU
	product.Description = input.Description
	product.StockQuantity = input.StockQuantity
	product.MinStockLevel = input.MinStockLevel
	product.BuyingPrice = input.BuyingPrice
	product.SellingPrice = input.SellingPrice
	// stock_status is never written independently of quantity
	product.StockStatus = ledger.StockStatusFor(product.StockQuantity, product.MinStockLevel)

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	InvalidateProductCache(clientId)
	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	product, err := utils.FetchModel[Product](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var refCount int64
	if err := db.WithContext(ctx).Model(&SalesInvoiceDetail{}).
		Where("product_id = ?", id).
		Count(&refCount).Error; err != nil {
		return nil, err
	}
	if refCount == 0 {
		if err := db.WithContext(ctx).Model(&BillDetail{}).
			Where("product_id = ?", id).
			Count(&refCount).Error; err != nil {
			return nil, err
		}
	}
	if refCount > 0 {
		return nil, errors.New("product is referenced by historical documents and cannot be deleted")
	}

	if err := db.WithContext(ctx).Delete(product).Error; err != nil {
		return nil, err
	}
	InvalidateProductCache(clientId)
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[Product](ctx, clientId, id)
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	// Unfiltered list is cached; stock mutations invalidate it.
	if name == nil || *name == "" {
		var cached []*Product
		if hit, err := config.GetRedisObject(productCacheKey(clientId), &cached); err == nil && hit {
			return cached, nil
		}
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Product
	if err := dbCtx.Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}

	if name == nil || *name == "" {
		_ = config.SetRedisObject(productCacheKey(clientId), results, productCacheTTL)
	}
	return results, nil
}

// AttachProductImage stores the uploaded object keys after the image and its
// thumbnail were written to cloud storage.
func AttachProductImage(ctx context.Context, id int, imageKey, thumbnailKey string) (*Product, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	product, err := utils.FetchModel[Product](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	product.ImageKey = imageKey
	product.ThumbnailKey = thumbnailKey

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	InvalidateProductCache(clientId)
	return product, nil
}
