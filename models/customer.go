package models

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
)

type Customer struct {
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

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (input *NewCustomer) validate() error {
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

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	customer := Customer{
		ClientId: clientId,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		IsActive: true,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	customer.Name = input.Name
	customer.Email = input.Email
	customer.Phone = input.Phone
	customer.Address = input.Address

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, clientId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var invoiceCount int64
	if err := db.WithContext(ctx).Model(&SalesInvoice{}).
		Where("client_id = ? AND customer_id = ?", clientId, id).
		Count(&invoiceCount).Error; err != nil {
		return nil, err
	}
	if invoiceCount > 0 {
		return nil, errors.New("customer has invoices and cannot be deleted")
	}

	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[Customer](ctx, clientId, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Customer
	if err := dbCtx.Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
