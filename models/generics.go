package models

import (
	"context"
	"errors"

	"github.com/nimbuscrm/crm_backend/utils"
	"gorm.io/gorm"
)

// GetResourceInTx fetches one tenant-scoped row inside the caller's
// transaction.
func GetResourceInTx[T any](tx *gorm.DB, ctx context.Context, clientId string, id int) (*T, error) {
	var result T
	err := tx.WithContext(ctx).
		Where("client_id = ?", clientId).
		First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetResource fetches one tenant-scoped row using the ctx's client id.
func GetResource[T any](ctx context.Context, id int) (*T, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}
	return utils.FetchModel[T](ctx, clientId, id)
}
