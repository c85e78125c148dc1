package models

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
)

// Vendor is the payable-side party on Bills.
type Vendor struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ClientId  string    `gorm:"type:char(36);index;not null" json:"client_id"`
	Client    Client    `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (input *NewVendor) validate() error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	vendor := Vendor{
		ClientId: clientId,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		IsActive: true,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func UpdateVendor(ctx context.Context, id int, input *NewVendor) (*Vendor, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	vendor, err := utils.FetchModel[Vendor](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	vendor.Name = input.Name
	vendor.Email = input.Email
	vendor.Phone = input.Phone
	vendor.Address = input.Address

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func DeleteVendor(ctx context.Context, id int) (*Vendor, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	vendor, err := utils.FetchModel[Vendor](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var billCount int64
	if err := db.WithContext(ctx).Model(&Bill{}).
		Where("client_id = ? AND vendor_id = ?", clientId, id).
		Count(&billCount).Error; err != nil {
		return nil, err
	}
	if billCount > 0 {
		return nil, errors.New("vendor has bills and cannot be deleted")
	}

	if err := db.WithContext(ctx).Delete(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[Vendor](ctx, clientId, id)
}

func GetVendors(ctx context.Context, name *string) ([]*Vendor, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Vendor
	if err := dbCtx.Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
