package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
)

// Client is a tenant. Every tenant-owned table carries its ID as client_id.
type Client struct {
	ID        uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email" binding:"required"`
	Phone     string    `gorm:"size:30" json:"phone"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, err
		}
	}

	client := Client{
		ID:       uuid.New(),
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		IsActive: true,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func GetClientById(ctx context.Context, id string) (*Client, error) {
	db := config.GetDB()
	var client Client
	if err := db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &client, nil
}
