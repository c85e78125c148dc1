package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"gorm.io/gorm"
)

// Activity is the write-only audit trail. One row per state-changing ledger
// action, written inside the posting transaction.
type Activity struct {
	ID            int            `gorm:"primary_key" json:"id"`
	ClientId      string         `gorm:"type:char(36);index;not null" json:"client_id"`
	Action        ActivityAction `gorm:"size:30;not null" json:"action"`
	Description   string         `gorm:"type:text;not null" json:"description"`
	ReferenceId   int            `gorm:"index" json:"reference_id"`
	ReferenceType ReferenceType  `gorm:"size:50" json:"reference_type"`
	Before        string         `gorm:"type:text" json:"before"`
	After         string         `gorm:"type:text" json:"after"`
	UserId        int            `gorm:"index" json:"user_id"`
	UserName      string         `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// CreateActivity writes an audit row inside the caller's transaction and
// queues the matching outbox event so external consumers hear about it after
// commit.
func CreateActivity(tx *gorm.DB, ctx context.Context, action ActivityAction, refId int, refType ReferenceType, description string, before, after interface{}) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return errors.New("client id is required")
	}

	beforeJSON, err := marshalOrEmpty(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalOrEmpty(after)
	if err != nil {
		return err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	activity := Activity{
		ClientId:      clientId,
		Action:        action,
		Description:   description,
		ReferenceId:   refId,
		ReferenceType: refType,
		Before:        beforeJSON,
		After:         afterJSON,
		UserId:        userId,
		UserName:      userName,
	}
	if err := tx.WithContext(ctx).Create(&activity).Error; err != nil {
		return err
	}

	return QueueOutboxEvent(tx, ctx, clientId, refId, refType, action, afterJSON)
}

func marshalOrEmpty(obj interface{}) (string, error) {
	if obj == nil {
		return "", nil
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type ActivityFilter struct {
	ReferenceType *ReferenceType `form:"reference_type"`
	ReferenceId   *int           `form:"reference_id"`
	Limit         int            `form:"limit"`
}

func GetActivities(ctx context.Context, filter *ActivityFilter) ([]*Activity, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("client_id = ?", clientId)
	limit := 50
	if filter != nil {
		if filter.ReferenceType != nil {
			dbCtx = dbCtx.Where("reference_type = ?", *filter.ReferenceType)
		}
		if filter.ReferenceId != nil {
			dbCtx = dbCtx.Where("reference_id = ?", *filter.ReferenceId)
		}
		if filter.Limit > 0 && filter.Limit <= 500 {
			limit = filter.Limit
		}
	}

	var results []*Activity
	if err := dbCtx.Order("id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
