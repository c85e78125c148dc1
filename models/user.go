package models

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	ClientId     string    `gorm:"type:char(36);index;not null" json:"client_id"`
	Client       Client    `gorm:"foreignKey:ClientId;constraint:OnDelete:CASCADE" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email" binding:"required"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:member" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func CreateUser(ctx context.Context, clientId string, input *NewUser) (*User, error) {
	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = RoleMember
	}
	if role != RoleAdmin && role != RoleMember {
		return nil, errors.New("invalid role")
	}

	user := User{
		ClientId:     clientId,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail looks the user up across tenants; login happens before a
// tenant context exists.
func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := config.GetDB()
	var user User
	skipCtx := utils.SetClientIdInContext(ctx, "")
	err := db.WithContext(skipCtx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, clientId string, id int) (*User, error) {
	return utils.FetchModel[User](ctx, clientId, id)
}
